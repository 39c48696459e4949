package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
	"github.com/fyrsmithlabs/docgateway/internal/request"
	"github.com/fyrsmithlabs/docgateway/internal/response"
	"github.com/fyrsmithlabs/docgateway/internal/session"
)

// fakeClient is a canned-response DataClient recording how it was called.
type fakeClient struct {
	resp *response.PgResponse
	conn session.BackendConnection
	err  error

	called        string
	scale         float64
	allParameters bool
	showDetails   bool
	params        []string
	opID          string
}

type fakeConn struct {
	closed bool
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func (f *fakeClient) simple(name string) (*response.PgResponse, error) {
	f.called = name
	return f.resp, f.err
}

func (f *fakeClient) firstPage(name string) (*response.PgResponse, session.BackendConnection, error) {
	f.called = name
	return f.resp, f.conn, f.err
}

func (f *fakeClient) ExecuteDelete(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("delete")
}
func (f *fakeClient) ExecuteInsert(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("insert")
}
func (f *fakeClient) ExecuteUpdate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("update")
}
func (f *fakeClient) ExecuteFind(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	return f.firstPage("find")
}
func (f *fakeClient) ExecuteAggregate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	return f.firstPage("aggregate")
}
func (f *fakeClient) ExecuteListCollections(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, session.BackendConnection, error) {
	return f.firstPage("listCollections")
}
func (f *fakeClient) ExecuteFindAndModify(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("findAndModify")
}
func (f *fakeClient) ExecuteListDatabases(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("listDatabases")
}
func (f *fakeClient) ExecuteDistinctQuery(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("distinct")
}
func (f *fakeClient) ExecuteCountQuery(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("count")
}
func (f *fakeClient) ExecuteValidate(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("validate")
}
func (f *fakeClient) ExecuteCurrentOp(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("currentOp")
}
func (f *fakeClient) ExecuteCompact(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	return f.simple("compact")
}
func (f *fakeClient) ExecuteCollStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	f.scale = scale
	return f.simple("collStats")
}
func (f *fakeClient) ExecuteDbStats(ctx context.Context, reqCtx *request.RequestContext, scale float64, connCtx *session.ConnectionContext) (*response.PgResponse, error) {
	f.scale = scale
	return f.simple("dbStats")
}
func (f *fakeClient) ExecuteGetParameter(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, allParameters, showDetails bool, params []string) (*response.PgResponse, error) {
	f.allParameters = allParameters
	f.showDetails = showDetails
	f.params = params
	return f.simple("getParameter")
}
func (f *fakeClient) ExecuteKillOp(ctx context.Context, reqCtx *request.RequestContext, connCtx *session.ConnectionContext, opID string) (*response.PgResponse, error) {
	f.opID = opID
	return f.simple("killOp")
}

func mustRaw(t *testing.T, doc bson.D) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	return bson.Raw(raw)
}

func okResponse(t *testing.T) *response.PgResponse {
	t.Helper()
	return response.NewPgResponse(mustRaw(t, bson.D{{Key: "ok", Value: float64(1)}}))
}

func newReqCtx(t *testing.T, db, collection string, commandName string, doc bson.D) *request.RequestContext {
	t.Helper()
	return &request.RequestContext{
		Request:    request.New(request.TypeFromCommand(commandName), mustRaw(t, doc)),
		Info:       request.NewInfo(db, collection, commandName),
		ActivityID: "act-42",
		Tracker:    request.NewTracker(),
	}
}

func TestProcessSimpleCommands(t *testing.T) {
	tests := []struct {
		command    string
		wantCalled string
	}{
		{"findAndModify", "findAndModify"},
		{"listDatabases", "listDatabases"},
		{"distinct", "distinct"},
		{"validate", "validate"},
		{"currentOp", "currentOp"},
		{"compact", "compact"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			client := &fakeClient{resp: okResponse(t)}
			p := New(client, nil)

			reqCtx := newReqCtx(t, "appdb", "orders", tt.command, bson.D{{Key: tt.command, Value: "orders"}})
			resp, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
			require.NoError(t, err)
			assert.True(t, resp.OK())
			assert.Equal(t, tt.wantCalled, client.called)
		})
	}
}

func TestProcessUnknownCommand(t *testing.T) {
	client := &fakeClient{resp: okResponse(t)}
	p := New(client, nil)

	reqCtx := newReqCtx(t, "appdb", "", "shutdown", bson.D{{Key: "shutdown", Value: int32(1)}})
	_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))

	var derr *errcode.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errcode.CommandNotFound, derr.Code)
	assert.Empty(t, client.called)
}

func TestProcessCountRequiresCollection(t *testing.T) {
	client := &fakeClient{resp: okResponse(t)}
	p := New(client, nil)

	reqCtx := newReqCtx(t, "appdb", "", "count", bson.D{{Key: "count", Value: int32(1)}})
	_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))

	var derr *errcode.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, errcode.InvalidNamespace, derr.Code)
	assert.Empty(t, client.called, "no backend call on precondition failure")
}

func TestProcessWriteTransformsErrors(t *testing.T) {
	backendDoc := bson.D{
		{Key: "ok", Value: float64(1)},
		{Key: "n", Value: int32(2)},
		{Key: "writeErrors", Value: bson.A{
			bson.D{
				{Key: "index", Value: int32(0)},
				{Key: "code", Value: int32(11000)},
				{Key: "errmsg", Value: "duplicate key"},
			},
		}},
	}
	client := &fakeClient{resp: response.NewPgResponse(mustRaw(t, backendDoc))}
	p := New(client, nil)

	reqCtx := newReqCtx(t, "appdb", "orders", "insert", bson.D{{Key: "insert", Value: "orders"}})
	resp, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
	require.NoError(t, err)
	assert.Equal(t, "insert", client.called)

	doc, ok := resp.RawDocument()
	require.True(t, ok)
	msg, lerr := doc.LookupErr("writeErrors", "0", "errmsg")
	require.NoError(t, lerr)
	s, _ := msg.StringValueOK()
	assert.Equal(t, "duplicate key - ActivityId: act-42", s)

	// Surrounding fields survive in order.
	n, lerr := doc.LookupErr("n")
	require.NoError(t, lerr)
	i, _ := n.Int32OK()
	assert.Equal(t, int32(2), i)
}

func TestProcessWritePassthroughWithoutErrors(t *testing.T) {
	client := &fakeClient{resp: okResponse(t)}
	p := New(client, nil)

	reqCtx := newReqCtx(t, "appdb", "orders", "delete", bson.D{{Key: "delete", Value: "orders"}})
	resp, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
	require.NoError(t, err)

	doc, ok := resp.RawDocument()
	require.True(t, ok)
	assert.Equal(t, okResponse(t).Document(), doc)
}

func TestProcessFirstPageSavesCursor(t *testing.T) {
	cursorDoc := bson.D{
		{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(777)},
			{Key: "firstBatch", Value: bson.A{}},
		}},
		{Key: "ok", Value: float64(1)},
	}
	conn := &fakeConn{}
	client := &fakeClient{resp: response.NewPgResponse(mustRaw(t, cursorDoc)), conn: conn}
	p := New(client, nil)

	connCtx := session.NewConnectionContext("u", "", 17)
	reqCtx := newReqCtx(t, "appdb", "orders", "find", bson.D{{Key: "find", Value: "orders"}})
	resp, err := p.Process(context.Background(), reqCtx, connCtx)
	require.NoError(t, err)
	assert.True(t, resp.OK())

	saved := connCtx.Cursors.Get(777)
	require.NotNil(t, saved)
	assert.Equal(t, "appdb.orders", saved.Namespace)
	assert.Same(t, session.BackendConnection(conn), saved.Conn)
	assert.False(t, conn.closed)
}

func TestProcessFirstPageExhaustedCursorReleasesConnection(t *testing.T) {
	exhausted := bson.D{
		{Key: "cursor", Value: bson.D{
			{Key: "id", Value: int64(0)},
			{Key: "firstBatch", Value: bson.A{}},
		}},
		{Key: "ok", Value: float64(1)},
	}
	conn := &fakeConn{}
	client := &fakeClient{resp: response.NewPgResponse(mustRaw(t, exhausted)), conn: conn}
	p := New(client, nil)

	connCtx := session.NewConnectionContext("u", "", 17)
	reqCtx := newReqCtx(t, "appdb", "orders", "aggregate", bson.D{{Key: "aggregate", Value: "orders"}})
	_, err := p.Process(context.Background(), reqCtx, connCtx)
	require.NoError(t, err)

	assert.Zero(t, connCtx.Cursors.Len())
	assert.True(t, conn.closed)
}

func TestProcessStatsScale(t *testing.T) {
	tests := []struct {
		name      string
		doc       bson.D
		wantScale float64
		wantCode  errcode.Code
	}{
		{"double", bson.D{{Key: "collStats", Value: "orders"}, {Key: "scale", Value: 2.5}}, 2.5, errcode.OK},
		{"int32", bson.D{{Key: "collStats", Value: "orders"}, {Key: "scale", Value: int32(4)}}, 4.0, errcode.OK},
		{"int64", bson.D{{Key: "collStats", Value: "orders"}, {Key: "scale", Value: int64(9)}}, 9.0, errcode.OK},
		{"absent", bson.D{{Key: "collStats", Value: "orders"}}, 1.0, errcode.OK},
		{"null", bson.D{{Key: "collStats", Value: "orders"}, {Key: "scale", Value: nil}}, 1.0, errcode.OK},
		{"string", bson.D{{Key: "collStats", Value: "orders"}, {Key: "scale", Value: "big"}}, 0, errcode.TypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{resp: okResponse(t)}
			p := New(client, nil)

			reqCtx := newReqCtx(t, "appdb", "orders", "collStats", tt.doc)
			_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
			if tt.wantCode != errcode.OK {
				var derr *errcode.Error
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, tt.wantCode, derr.Code)
				assert.Empty(t, client.called)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "collStats", client.called)
			assert.Equal(t, tt.wantScale, client.scale)
		})
	}
}

func TestProcessGetParameter(t *testing.T) {
	t.Run("rejects non-admin database", func(t *testing.T) {
		client := &fakeClient{resp: okResponse(t)}
		p := New(client, nil)

		reqCtx := newReqCtx(t, "appdb", "", "getParameter", bson.D{{Key: "getParameter", Value: "*"}})
		_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))

		var derr *errcode.Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, errcode.Unauthorized, derr.Code)
		assert.Empty(t, client.called)
	})

	t.Run("wildcard means all parameters without details", func(t *testing.T) {
		client := &fakeClient{resp: okResponse(t)}
		p := New(client, nil)

		reqCtx := newReqCtx(t, "admin", "", "getParameter", bson.D{{Key: "getParameter", Value: "*"}})
		_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
		require.NoError(t, err)
		assert.True(t, client.allParameters)
		assert.False(t, client.showDetails)
	})

	t.Run("wildcard drops requested parameter names", func(t *testing.T) {
		client := &fakeClient{resp: okResponse(t)}
		p := New(client, nil)

		doc := bson.D{
			{Key: "getParameter", Value: "*"},
			{Key: "maxConnections", Value: int32(1)},
		}
		reqCtx := newReqCtx(t, "admin", "", "getParameter", doc)
		_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
		require.NoError(t, err)
		assert.True(t, client.allParameters)
		assert.False(t, client.showDetails)
		assert.Empty(t, client.params)
	})

	t.Run("non-bool option values are a type mismatch", func(t *testing.T) {
		tests := []struct {
			name string
			opts bson.D
		}{
			{"allParameters string", bson.D{{Key: "allParameters", Value: "yes"}}},
			{"showDetails string", bson.D{{Key: "showDetails", Value: "sure"}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client := &fakeClient{resp: okResponse(t)}
				p := New(client, nil)

				reqCtx := newReqCtx(t, "admin", "", "getParameter", bson.D{{Key: "getParameter", Value: tt.opts}})
				_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))

				var derr *errcode.Error
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, errcode.TypeMismatch, derr.Code)
				assert.Empty(t, client.called)
			})
		}
	})

	t.Run("options sub-document with parameter names", func(t *testing.T) {
		client := &fakeClient{resp: okResponse(t)}
		p := New(client, nil)

		doc := bson.D{
			{Key: "getParameter", Value: bson.D{
				{Key: "allParameters", Value: int32(1)},
				{Key: "showDetails", Value: true},
				{Key: "bogusOption", Value: "ignored"},
			}},
			{Key: "maxConnections", Value: int32(1)},
			{Key: "featureFlag", Value: int32(1)},
			{Key: "$db", Value: "admin"},
			{Key: "comment", Value: "hi"},
		}
		reqCtx := newReqCtx(t, "admin", "", "getParameter", doc)
		_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
		require.NoError(t, err)
		assert.True(t, client.allParameters)
		assert.True(t, client.showDetails)
		assert.Equal(t, []string{"maxConnections", "featureFlag"}, client.params)
	})
}

func TestProcessKillOp(t *testing.T) {
	tests := []struct {
		name     string
		db       string
		doc      bson.D
		wantCode errcode.Code
		wantOpID string
	}{
		{"non-admin", "appdb", bson.D{{Key: "killOp", Value: int32(1)}, {Key: "op", Value: "12:34"}}, errcode.Unauthorized, ""},
		{"missing op", "admin", bson.D{{Key: "killOp", Value: int32(1)}}, errcode.BadValue, ""},
		{"op wrong type", "admin", bson.D{{Key: "killOp", Value: int32(1)}, {Key: "op", Value: int32(7)}}, errcode.TypeMismatch, ""},
		{"valid", "admin", bson.D{{Key: "killOp", Value: int32(1)}, {Key: "op", Value: "12:34"}}, errcode.OK, "12:34"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{resp: okResponse(t)}
			p := New(client, nil)

			reqCtx := newReqCtx(t, tt.db, "", "killOp", tt.doc)
			_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
			if tt.wantCode != errcode.OK {
				var derr *errcode.Error
				require.ErrorAs(t, err, &derr)
				assert.Equal(t, tt.wantCode, derr.Code)
				assert.Empty(t, client.called)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "killOp", client.called)
			assert.Equal(t, tt.wantOpID, client.opID)
		})
	}
}

func TestProcessBackendErrorPassesThrough(t *testing.T) {
	backendErr := errcode.New(errcode.ExceededTimeLimit, "statement timeout")
	client := &fakeClient{err: backendErr}
	p := New(client, nil)

	reqCtx := newReqCtx(t, "appdb", "orders", "find", bson.D{{Key: "find", Value: "orders"}})
	_, err := p.Process(context.Background(), reqCtx, session.NewConnectionContext("u", "", 17))
	assert.True(t, errors.Is(err, backendErr) || err == backendErr)
}
