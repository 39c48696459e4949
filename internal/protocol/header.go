// Package protocol holds the wire-level message types shared between the
// connection layer and the request-execution core. Framing and parsing of
// the raw byte stream happen outside this module.
package protocol

// OpCode identifies the wire message kind.
type OpCode int32

const (
	OpReply      OpCode = 1
	OpQuery      OpCode = 2004
	OpCompressed OpCode = 2012
	OpMsg        OpCode = 2013
)

func (o OpCode) String() string {
	switch o {
	case OpReply:
		return "OP_REPLY"
	case OpQuery:
		return "OP_QUERY"
	case OpCompressed:
		return "OP_COMPRESSED"
	case OpMsg:
		return "OP_MSG"
	default:
		return "OP_UNKNOWN"
	}
}

// Header is the standard 16-byte message header. Length is the declared
// size of the whole message including the header itself.
type Header struct {
	Length     int32
	RequestID  int32
	ResponseTo int32
	OpCode     OpCode
}
