package sockjs

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var writeBufferPool = &sync.Pool{}

func newUpgrader(opts Options) *websocket.Upgrader {
	upgrader := &websocket.Upgrader{
		ReadBufferSize:    opts.WebsocketReadBufferSize,
		EnableCompression: opts.WebsocketCompression,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			if status == http.StatusBadRequest {
				http.Error(w, `Can "Upgrade" only to "WebSocket".`, status)
				return
			}
			http.Error(w, reason.Error(), status)
		},
	}
	if opts.WebsocketUseWriteBufferPool {
		upgrader.WriteBufferPool = writeBufferPool
	} else {
		upgrader.WriteBufferSize = opts.WebsocketWriteBufferSize
	}
	if opts.CheckOrigin != nil {
		upgrader.CheckOrigin = opts.CheckOrigin
	} else {
		// SockJS clients connect cross domain, the handshake must not
		// be stricter than the HTTP transports are.
		upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return upgrader
}

// sockjsWebsocket serves the framed websocket transport: SockJS frames
// travel as text messages over a single full duplex connection.
func (h *Handler) sockjsWebsocket(w http.ResponseWriter, r *http.Request, sessionID string) {
	transportConnectCount.WithLabelValues(transportWebsocket).Inc()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade error")
		return
	}
	if h.opts.MessageSizeLimit > 0 {
		conn.SetReadLimit(int64(h.opts.MessageSizeLimit))
	}
	pingInterval := h.opts.HeartbeatDelay
	if pingInterval > 0 {
		pongWait := pingInterval * 10 / 9
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	sess, _ := h.registry.getOrCreate(r, sessionID)
	recv := newWSReceiver(conn, pingInterval, h.opts.WriteTimeout)
	sess.attachReceiver(recv)

	// Separate goroutine for better GC of caller's data.
	go func() {
		defer func() {
			sess.closeFromTransport(recv)
			recv.interrupt()
			_ = conn.Close()
		}()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				// Binary frames are not part of the framed protocol.
				return
			}
			if len(data) == 0 {
				continue
			}
			messages, err := decodeMessages(data)
			if err != nil {
				// A frame that does not decode kills the connection,
				// there is no error frame to answer with.
				log.Debug().Str("session", sessionID).Err(err).Msg("malformed websocket frame")
				return
			}
			if err := sess.accept(messages...); err != nil {
				return
			}
			transportMessagesReceived.WithLabelValues(transportWebsocket).Add(float64(len(messages)))
		}
	}()
}

// wsReceiver delivers frames as websocket text messages. It owns the
// write side of the connection, including control pings which keep the
// read deadline of the peer loop moving.
type wsReceiver struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
	pingInterval time.Duration
	pingTimer    *time.Timer
	closed       bool
	done         chan struct{}
	interrupted  chan struct{}
}

func newWSReceiver(conn *websocket.Conn, pingInterval, writeTimeout time.Duration) *wsReceiver {
	r := &wsReceiver{
		conn:         conn,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		done:         make(chan struct{}),
		interrupted:  make(chan struct{}),
	}
	if pingInterval > 0 {
		r.pingTimer = time.AfterFunc(pingInterval, r.ping)
	}
	return r
}

func (r *wsReceiver) ping() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	deadline := time.Now().Add(r.pingInterval / 2)
	if err := r.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		r.closed = true
		close(r.interrupted)
		return
	}
	r.pingTimer = time.AfterFunc(r.pingInterval, r.ping)
}

func (r *wsReceiver) sendBulk(messages ...string) {
	if len(messages) == 0 {
		return
	}
	r.sendFrame(messageFrame(messages...))
	transportMessagesSent.WithLabelValues(transportWebsocket).Add(float64(len(messages)))
}

func (r *wsReceiver) sendFrame(frame string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.writeTimeout > 0 {
		_ = r.conn.SetWriteDeadline(time.Now().Add(r.writeTimeout))
	}
	if err := r.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		r.closed = true
		close(r.interrupted)
		return
	}
	if r.writeTimeout > 0 {
		_ = r.conn.SetWriteDeadline(time.Time{})
	}
}

func (r *wsReceiver) canSend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *wsReceiver) doneNotify() <-chan struct{} {
	return r.done
}

func (r *wsReceiver) interruptedNotify() <-chan struct{} {
	return r.interrupted
}

func (r *wsReceiver) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.pingTimer != nil {
		r.pingTimer.Stop()
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = r.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = r.conn.Close()
	close(r.done)
}

// interrupt ends the receiver without the closing handshake, used when
// the read side observed the connection die.
func (r *wsReceiver) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.pingTimer != nil {
		r.pingTimer.Stop()
	}
	close(r.interrupted)
}
