package sockjs

import (
	"errors"
	"fmt"
)

// ErrSessionNotOpen is returned by Session operations called on a
// session which is not in open state anymore.
var ErrSessionNotOpen = errors.New("sockjs: session not in open state")

// Close statuses used by the engine itself. Anything >= 3000 is free
// for applications per SockJS conventions.
const (
	// StatusGoAway is a normal server initiated close.
	StatusGoAway uint32 = 3000
	// StatusAnotherConnection is sent to a receiver arriving for a
	// session which already has one attached.
	StatusAnotherConnection uint32 = 2010
	// StatusInterrupted is used when a transport connection died and
	// the client did not resume the session in time.
	StatusInterrupted uint32 = 1002
	// StatusSlowConsumer is used when session outbound buffer
	// overflowed send_queue_max_size.
	StatusSlowConsumer uint32 = 3008
)

// Reasons paired with engine close statuses.
const (
	ReasonGoAway            = "Go away!"
	ReasonAnotherConnection = "Another connection still open"
	ReasonInterrupted       = "Connection interrupted"
	ReasonSlowConsumer      = "Slow consumer"
)

// Reassembly violations. Any of them kills the connection they
// happened on, never the whole server.
var (
	ErrInterleavedMessage     = errors.New("sockjs: new data frame started before previous message completed")
	ErrUnexpectedContinuation = errors.New("sockjs: continuation frame without preceding data frame")
	ErrReservedOpcode         = errors.New("sockjs: reserved opcode in data frame")
	ErrMessageTooLarge        = errors.New("sockjs: message exceeds size limit")
)

// DecodeError describes a malformed inbound payload. Offset points at
// the offending byte when the underlying JSON decoder reported one.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("sockjs: malformed payload at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
