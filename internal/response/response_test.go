package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
)

func TestCommandErrorFromErr(t *testing.T) {
	t.Run("domain error keeps its code", func(t *testing.T) {
		err := errcode.New(errcode.DuplicateKey, "duplicate key")
		cmdErr := CommandErrorFromErr(err)
		assert.Equal(t, errcode.DuplicateKey, cmdErr.Code)
		assert.Equal(t, "duplicate key", cmdErr.Message)
	})

	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		err := errcode.New(errcode.ExceededTimeLimit, "timeout")
		cmdErr := CommandErrorFromErr(errors.Join(errors.New("outer"), err))
		assert.Equal(t, errcode.ExceededTimeLimit, cmdErr.Code)
	})

	t.Run("unknown error becomes internal", func(t *testing.T) {
		cmdErr := CommandErrorFromErr(errors.New("boom"))
		assert.Equal(t, errcode.InternalError, cmdErr.Code)
		assert.Equal(t, "boom", cmdErr.Message)
	})
}

func TestCommandErrorDocument(t *testing.T) {
	cmdErr := NewCommandError(errcode.Unauthorized, "not allowed")
	doc, err := cmdErr.Document()
	require.NoError(t, err)

	ok, lerr := doc.LookupErr("ok")
	require.NoError(t, lerr)
	f, _ := ok.DoubleOK()
	assert.Zero(t, f)

	code, lerr := doc.LookupErr("code")
	require.NoError(t, lerr)
	i, _ := code.Int32OK()
	assert.Equal(t, int32(13), i)

	name, lerr := doc.LookupErr("codeName")
	require.NoError(t, lerr)
	s, _ := name.StringValueOK()
	assert.Equal(t, "Unauthorized", s)
}

func TestResponseUnion(t *testing.T) {
	raw, err := bson.Marshal(bson.D{{Key: "ok", Value: float64(1)}})
	require.NoError(t, err)

	success := NewResult(NewPgResponse(bson.Raw(raw)))
	assert.True(t, success.OK())
	assert.Nil(t, success.Err())
	doc, ok := success.RawDocument()
	assert.True(t, ok)
	assert.Equal(t, bson.Raw(raw), doc)

	failure := NewError(NewCommandError(errcode.BadValue, "bad"))
	assert.False(t, failure.OK())
	assert.Nil(t, failure.Result())
	_, ok = failure.RawDocument()
	assert.False(t, ok)
}

func TestPgResponseCursorID(t *testing.T) {
	tests := []struct {
		name   string
		doc    bson.D
		wantID int64
		wantOK bool
	}{
		{"live cursor", bson.D{{Key: "cursor", Value: bson.D{{Key: "id", Value: int64(99)}}}}, 99, true},
		{"exhausted cursor", bson.D{{Key: "cursor", Value: bson.D{{Key: "id", Value: int64(0)}}}}, 0, false},
		{"no cursor", bson.D{{Key: "ok", Value: float64(1)}}, 0, false},
		{"non-integer id", bson.D{{Key: "cursor", Value: bson.D{{Key: "id", Value: "nope"}}}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := bson.Marshal(tt.doc)
			require.NoError(t, err)

			id, ok := NewPgResponse(bson.Raw(raw)).CursorID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}
