package sockjs

import (
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// rawWebsocket serves the /websocket endpoint: plain websocket messages
// with no SockJS framing. Sessions get generated IDs since the URL
// carries none.
func (h *Handler) rawWebsocket(w http.ResponseWriter, r *http.Request) {
	transportConnectCount.WithLabelValues(transportRawWebsocket).Inc()
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		// UpgradeHTTP already replied to the client.
		log.Debug().Err(err).Msg("raw websocket upgrade error")
		return
	}
	sessionID := uuid.NewString()
	sess := newSession(r, sessionID, h.opts, h.handler)
	h.registry.add(sessionID, sess)
	recv := newRawWSReceiver(conn, h.opts.WriteTimeout, h.opts.ResponseLimit)
	sess.attachReceiver(recv)

	go func() {
		defer func() {
			sess.closeFromTransport(recv)
			recv.interrupt()
			_ = conn.Close()
			// Raw sessions die with their connection, no transport can
			// resume them, so unregister right away.
			h.registry.remove(sessionID)
		}()
		assembler := newMessageAssembler(h.opts.MessageSizeLimit)
		for {
			hdr, err := ws.ReadHeader(conn)
			if err != nil {
				return
			}
			if h.opts.MessageSizeLimit > 0 && hdr.Length > int64(h.opts.MessageSizeLimit) {
				// Refuse before buffering the payload.
				recv.closeWithStatus(ws.StatusMessageTooBig, ErrMessageTooLarge.Error())
				return
			}
			payload := make([]byte, hdr.Length)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
			if hdr.Masked {
				ws.Cipher(payload, hdr.Mask, 0)
			}
			switch hdr.OpCode {
			case ws.OpPing:
				recv.pong(payload)
			case ws.OpPong:
				// Client answered a heartbeat ping.
			case ws.OpClose:
				recv.echoClose(payload)
				return
			default:
				_, message, complete, err := assembler.push(hdr.OpCode, hdr.Fin, payload)
				if err != nil {
					log.Debug().Str("session", sessionID).Err(err).Msg("websocket framing violation")
					status := ws.StatusProtocolError
					if err == ErrMessageTooLarge {
						status = ws.StatusMessageTooBig
					}
					recv.closeWithStatus(status, err.Error())
					return
				}
				if !complete {
					continue
				}
				if err := sess.accept(string(message)); err != nil {
					return
				}
				transportMessagesReceived.WithLabelValues(transportRawWebsocket).Inc()
			}
		}
	}()
}

// rawWSReceiver writes session traffic straight onto the connection:
// messages become binary websocket messages fragmented at the response
// limit, heartbeats become pings, the close frame becomes a websocket
// close with the same status and reason.
type rawWSReceiver struct {
	mu           sync.Mutex
	conn         net.Conn
	writeTimeout time.Duration
	frameLimit   int
	closed       bool
	closeSent    bool
	done         chan struct{}
	interrupted  chan struct{}
}

func newRawWSReceiver(conn net.Conn, writeTimeout time.Duration, frameLimit int) *rawWSReceiver {
	return &rawWSReceiver{
		conn:         conn,
		writeTimeout: writeTimeout,
		frameLimit:   frameLimit,
		done:         make(chan struct{}),
		interrupted:  make(chan struct{}),
	}
}

func (r *rawWSReceiver) sendBulk(messages ...string) {
	if len(messages) == 0 {
		return
	}
	for _, msg := range messages {
		if !r.writeMessage([]byte(msg)) {
			return
		}
	}
	transportMessagesSent.WithLabelValues(transportRawWebsocket).Add(float64(len(messages)))
}

// writeMessage writes one message, fragmenting payloads larger than
// the frame limit into a continuation sequence.
func (r *rawWSReceiver) writeMessage(payload []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	chunks := splitPayload(payload, r.frameLimit)
	for i, chunk := range chunks {
		op := ws.OpBinary
		if i > 0 {
			op = ws.OpContinuation
		}
		fin := i == len(chunks)-1
		if !r.writeFrameLocked(ws.NewFrame(op, fin, chunk)) {
			return false
		}
	}
	return true
}

func (r *rawWSReceiver) sendFrame(frame string) {
	switch {
	case frame == openFrame:
		// The raw endpoint has no open frame, a finished upgrade is it.
	case frame == heartbeatFrame:
		r.mu.Lock()
		if !r.closed {
			r.writeFrameLocked(ws.NewPingFrame(nil))
		}
		r.mu.Unlock()
	case strings.HasPrefix(frame, "c"):
		status, reason := parseCloseFrame(frame)
		r.closeWithStatus(ws.StatusCode(status), reason)
	default:
		// Message frames never come through here, sendBulk writes
		// messages without SockJS framing.
	}
}

// pong answers a ping, echoing its payload per RFC 6455.
func (r *rawWSReceiver) pong(payload []byte) {
	r.mu.Lock()
	if !r.closed {
		r.writeFrameLocked(ws.NewPongFrame(payload))
	}
	r.mu.Unlock()
}

// echoClose answers the closing handshake started by the client.
func (r *rawWSReceiver) echoClose(payload []byte) {
	r.mu.Lock()
	if !r.closed && !r.closeSent {
		r.closeSent = true
		r.writeFrameLocked(ws.NewCloseFrame(payload))
	}
	r.mu.Unlock()
}

// closeWithStatus writes a close frame with the given status, leaving
// the connection teardown to close or the read loop.
func (r *rawWSReceiver) closeWithStatus(status ws.StatusCode, reason string) {
	r.mu.Lock()
	if !r.closed && !r.closeSent {
		r.closeSent = true
		r.writeFrameLocked(ws.NewCloseFrame(ws.NewCloseFrameBody(status, reason)))
	}
	r.mu.Unlock()
}

// writeFrameLocked writes one frame. Caller must hold r.mu. On write
// error the receiver marks itself interrupted.
func (r *rawWSReceiver) writeFrameLocked(frame ws.Frame) bool {
	if r.writeTimeout > 0 {
		_ = r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	}
	if err := ws.WriteFrame(r.conn, frame); err != nil {
		r.closed = true
		close(r.interrupted)
		return false
	}
	if r.writeTimeout > 0 {
		_ = r.conn.SetWriteDeadline(time.Time{})
	}
	return true
}

func (r *rawWSReceiver) canSend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *rawWSReceiver) doneNotify() <-chan struct{} {
	return r.done
}

func (r *rawWSReceiver) interruptedNotify() <-chan struct{} {
	return r.interrupted
}

func (r *rawWSReceiver) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if !r.closeSent {
		r.closeSent = true
		r.writeFrameLocked(ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
	}
	_ = r.conn.Close()
	close(r.done)
}

func (r *rawWSReceiver) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.interrupted)
}
