package response

import "go.mongodb.org/mongo-driver/bson"

// PgResponse wraps the raw result document the backend execution client
// returned for one command.
type PgResponse struct {
	doc bson.Raw
}

// NewPgResponse wraps a backend result document.
func NewPgResponse(doc bson.Raw) *PgResponse {
	return &PgResponse{doc: doc}
}

// Document returns the raw result bytes.
func (p *PgResponse) Document() bson.Raw { return p.doc }

// CursorID extracts the streaming continuation id (`cursor.id`) from the
// result. The second return is false when the result carries no cursor or
// the cursor is exhausted server-side (id 0).
func (p *PgResponse) CursorID() (int64, bool) {
	v, err := p.doc.LookupErr("cursor", "id")
	if err != nil {
		return 0, false
	}
	id, ok := v.Int64OK()
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}
