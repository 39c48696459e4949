// Package request models one parsed gateway command: the raw command
// document, its resolved target, the per-request correlation id, and the
// timing ledger written at phase boundaries.
package request

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/fyrsmithlabs/docgateway/internal/errcode"
)

// Request is an immutable view over a parsed command document. It is owned
// for the lifetime of one command execution and only read.
type Request struct {
	typ Type
	doc bson.Raw
}

// New wraps a validated command document. The caller (the wire-protocol
// layer) guarantees doc is well-formed BSON.
func New(typ Type, doc bson.Raw) *Request {
	return &Request{typ: typ, doc: doc}
}

// Type returns the command kind.
func (r *Request) Type() Type { return r.typ }

// Document returns the raw command document.
func (r *Request) Document() bson.Raw { return r.doc }

// ExtractFields iterates the top-level fields of the command document,
// invoking fn for each key/value pair in document order. Iteration stops
// at the first error returned by fn.
func (r *Request) ExtractFields(fn func(key string, value bson.RawValue) error) error {
	elems, err := r.doc.Elements()
	if err != nil {
		return errcode.NewBadValue("malformed command document")
	}
	for _, elem := range elems {
		key, err := elem.KeyErr()
		if err != nil {
			return errcode.NewBadValue("malformed command document")
		}
		value, err := elem.ValueErr()
		if err != nil {
			return errcode.NewBadValue("malformed command document")
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Comment returns the free-form comment string attached to the command,
// or "" when absent or not a string. Clients use it to carry trace context
// since the wire protocol has no header channel.
func (r *Request) Comment() string {
	v, err := r.doc.LookupErr("comment")
	if err != nil {
		return ""
	}
	s, _ := v.StringValueOK()
	return s
}

// Info is the request-info accessor: the command's resolved target
// database and collection. Resolution failures are deferred until the
// accessor is called so commands that never touch a collection are not
// penalized.
type Info struct {
	database    string
	collection  string
	commandName string
}

// NewInfo builds request info from the connection layer's resolution of
// the command's `$db` field and collection argument. collection may be
// empty for database-level commands.
func NewInfo(database, collection, commandName string) *Info {
	return &Info{database: database, collection: collection, commandName: commandName}
}

// DB returns the target database.
func (i *Info) DB() (string, error) {
	if i.database == "" {
		return "", errcode.New(errcode.InvalidNamespace, "no database provided")
	}
	return i.database, nil
}

// Collection returns the target collection, failing with InvalidNamespace
// when the command did not address one.
func (i *Info) Collection() (string, error) {
	if i.collection == "" {
		return "", errcode.Newf(errcode.InvalidNamespace, "invalid namespace for %s", i.commandName)
	}
	return i.collection, nil
}

// CollectionOrUnknown returns the collection name for telemetry attribution.
func (i *Info) CollectionOrUnknown() string {
	if i.collection == "" {
		return "unknown"
	}
	return i.collection
}

// CommandName returns the wire-level command name.
func (i *Info) CommandName() string { return i.commandName }

// RequestContext bundles everything one command execution owns: the
// parsed request, its info accessor, the gateway-generated activity id
// correlating logs, traces, and metrics for this request, and the timing
// ledger written at phase boundaries.
type RequestContext struct {
	Request    *Request
	Info       *Info
	ActivityID string
	Tracker    *Tracker
}
