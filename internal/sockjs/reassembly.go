package sockjs

import (
	"github.com/gobwas/ws"
)

// messageAssembler merges fragmented websocket data frames back into
// complete messages for the raw websocket endpoint. One assembler
// serves one connection and is not goroutine safe: the connection read
// loop is its only caller.
//
// Control frames never go through the assembler, they are allowed to
// interleave with a fragmented message by RFC 6455 and are handled by
// the read loop directly.
type messageAssembler struct {
	pending bool
	opcode  ws.OpCode
	buf     []byte
	limit   int
}

func newMessageAssembler(limit int) *messageAssembler {
	return &messageAssembler{limit: limit}
}

// push consumes one data frame. When the frame completes a message it
// returns the opcode of the first fragment, the merged payload and
// true. A frame violating fragmentation rules returns an error and
// leaves the assembler unusable, the caller must drop the connection.
func (a *messageAssembler) push(op ws.OpCode, fin bool, payload []byte) (ws.OpCode, []byte, bool, error) {
	switch op {
	case ws.OpText, ws.OpBinary:
		if a.pending {
			return 0, nil, false, ErrInterleavedMessage
		}
		if a.limit > 0 && len(payload) > a.limit {
			return 0, nil, false, ErrMessageTooLarge
		}
		if fin {
			return op, payload, true, nil
		}
		a.pending = true
		a.opcode = op
		a.buf = append(a.buf[:0], payload...)
		return 0, nil, false, nil
	case ws.OpContinuation:
		if !a.pending {
			return 0, nil, false, ErrUnexpectedContinuation
		}
		if a.limit > 0 && len(a.buf)+len(payload) > a.limit {
			return 0, nil, false, ErrMessageTooLarge
		}
		a.buf = append(a.buf, payload...)
		if !fin {
			return 0, nil, false, nil
		}
		opcode := a.opcode
		message := a.buf
		a.pending = false
		a.buf = nil
		return opcode, message, true, nil
	default:
		return 0, nil, false, ErrReservedOpcode
	}
}
