package sockjs

import (
	"encoding/json"
	"errors"
	"fmt"

	segjson "github.com/segmentio/encoding/json"
)

// SockJS frames as they go over the wire. HTTP transports suffix every
// frame with a newline, websocket transports send them as is.
const (
	openFrame      = "o"
	heartbeatFrame = "h"
)

// messageFrame encodes messages into an a-frame: a["msg1","msg2"].
func messageFrame(messages ...string) string {
	b, err := segjson.Marshal(messages)
	if err != nil {
		// Strings always marshal, this is unreachable with valid UTF-8
		// and merely keeps the frame well-formed otherwise.
		return "a[]"
	}
	return "a" + string(b)
}

// closeFrame encodes a close frame: c[3000,"Go away!"].
func closeFrame(status uint32, reason string) string {
	b, _ := segjson.Marshal(reason)
	return fmt.Sprintf("c[%d,%s]", status, b)
}

// parseCloseFrame extracts status and reason from an encoded close
// frame so websocket transports can map it to a close control frame.
func parseCloseFrame(frame string) (status uint32, reason string) {
	var items [2]interface{}
	if err := json.Unmarshal([]byte(frame)[1:], &items); err != nil {
		return StatusGoAway, ReasonGoAway
	}
	statusF, _ := items[0].(float64)
	reason, _ = items[1].(string)
	return uint32(statusF), reason
}

// decodeMessages parses one inbound payload: either a bare JSON string
// or a JSON array of strings. Decoding goes through encoding/json so a
// malformed payload yields a DecodeError with the byte offset the
// decoder stopped at.
func decodeMessages(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("payload expected")}
	}
	switch data[0] {
	case '[':
		var messages []string
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, decodeError(err)
		}
		return messages, nil
	case '"':
		var message string
		if err := json.Unmarshal(data, &message); err != nil {
			return nil, decodeError(err)
		}
		return []string{message}, nil
	default:
		return nil, &DecodeError{Err: fmt.Errorf("unexpected character %q", data[0])}
	}
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &DecodeError{Offset: syntaxErr.Offset, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &DecodeError{Offset: typeErr.Offset, Err: err}
	}
	return &DecodeError{Err: err}
}
