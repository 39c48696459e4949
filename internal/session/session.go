// Package session holds per-connection state borrowed by the
// request-execution core: the authenticated identity, negotiated
// capabilities, and the connection-scoped cursor store. The connection
// layer owns this state; the core only reads it and saves cursors.
package session

import "context"

// ConnectionContext is the client session state shared by reference
// across one command's execution.
type ConnectionContext struct {
	// AuthenticatedUser is the identity established during the handshake.
	AuthenticatedUser string

	// ClientInfo is the driver identification from the handshake
	// (e.g. "PyMongo/4.14.1"). Used for telemetry attribution.
	ClientInfo string

	// MaxWireVersion is the capability level negotiated at handshake.
	MaxWireVersion int32

	// Cursors is the connection-scoped cursor store.
	Cursors *CursorStore
}

// NewConnectionContext creates session state with an empty cursor store.
func NewConnectionContext(user, clientInfo string, maxWireVersion int32) *ConnectionContext {
	return &ConnectionContext{
		AuthenticatedUser: user,
		ClientInfo:        clientInfo,
		MaxWireVersion:    maxWireVersion,
		Cursors:           NewCursorStore(),
	}
}

// BackendConnection is the live backend connection pinned to a cursor so
// follow-up batches run against the same session.
type BackendConnection interface {
	Close(ctx context.Context) error
}
