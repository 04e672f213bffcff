package sockjs

import (
	"net/http"
	"time"
)

// ConflictPolicy tells what to do when a receiver arrives for a session
// which already has one attached.
type ConflictPolicy uint8

const (
	// ConflictReject closes the new receiver with 2010 and keeps the
	// old one. This is what SockJS clients expect by default.
	ConflictReject ConflictPolicy = iota
	// ConflictEvict closes the old receiver with 2010 and attaches the
	// new one.
	ConflictEvict
)

// Options control one Handler. Zero values of most fields mean defaults
// from DefaultOptions.
type Options struct {
	// SockJSURL is an address of SockJS client library to load in
	// iframe transports.
	SockJSURL string
	// Websocket enables the framed websocket transport.
	Websocket bool
	// RawWebsocket enables the /websocket endpoint speaking plain
	// websocket messages without SockJS framing.
	RawWebsocket bool
	// CookieNeeded makes the handler report cookie_needed to clients
	// and emit a JSESSIONID cookie on HTTP transport responses.
	CookieNeeded bool
	// HeartbeatDelay is a period of heartbeat frames sent into an
	// attached receiver.
	HeartbeatDelay time.Duration
	// DisconnectDelay is how long a session survives without any
	// receiver before it is closed and swept.
	DisconnectDelay time.Duration
	// SweepInterval is a period of expired session lookups.
	SweepInterval time.Duration
	// ResponseLimit caps payload bytes written into one streaming
	// response, and the websocket frame size before fragmentation.
	ResponseLimit int
	// SendQueueMaxSize caps bytes buffered for a session with a slow
	// or detached receiver. Session closes with 3008 once exceeded.
	SendQueueMaxSize int
	// MessageSizeLimit caps a single inbound message size.
	MessageSizeLimit int
	// ReceiverConflict selects the policy for concurrent receivers.
	ReceiverConflict ConflictPolicy
	// AffinityCookie is the only cookie name visible to application
	// handlers through Session.Headers.
	AffinityCookie string
	// WriteTimeout bounds one write into a transport connection.
	WriteTimeout time.Duration
	// CheckOrigin is called before websocket upgrades and on CORS
	// requests. Nil allows any origin: SockJS exists for cross domain
	// transport, restricting origins is the application's decision.
	CheckOrigin func(*http.Request) bool

	// Websocket upgrader knobs, passed to gorilla upgrader as is.
	WebsocketReadBufferSize     int
	WebsocketWriteBufferSize    int
	WebsocketUseWriteBufferPool bool
	WebsocketCompression        bool
}

// DefaultOptions mirror defaults SockJS server implementations agree on.
var DefaultOptions = Options{
	SockJSURL:        "https://cdn.jsdelivr.net/npm/sockjs-client@1/dist/sockjs.min.js",
	Websocket:        true,
	RawWebsocket:     true,
	HeartbeatDelay:   25 * time.Second,
	DisconnectDelay:  5 * time.Second,
	SweepInterval:    time.Second,
	ResponseLimit:    128 * 1024,
	SendQueueMaxSize: 10 * 1024 * 1024,
	MessageSizeLimit: 65536,
	ReceiverConflict: ConflictReject,
	AffinityCookie:   "JSESSIONID",
	WriteTimeout:     time.Second,
}

// normalized returns a copy of o with unset fields filled from
// DefaultOptions so the rest of the package never branches on zero
// values.
func (o Options) normalized() Options {
	if o.SockJSURL == "" {
		o.SockJSURL = DefaultOptions.SockJSURL
	}
	if o.HeartbeatDelay <= 0 {
		o.HeartbeatDelay = DefaultOptions.HeartbeatDelay
	}
	if o.DisconnectDelay <= 0 {
		o.DisconnectDelay = DefaultOptions.DisconnectDelay
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultOptions.SweepInterval
	}
	if o.ResponseLimit <= 0 {
		o.ResponseLimit = DefaultOptions.ResponseLimit
	}
	if o.SendQueueMaxSize <= 0 {
		o.SendQueueMaxSize = DefaultOptions.SendQueueMaxSize
	}
	if o.MessageSizeLimit <= 0 {
		o.MessageSizeLimit = DefaultOptions.MessageSizeLimit
	}
	if o.AffinityCookie == "" {
		o.AffinityCookie = DefaultOptions.AffinityCookie
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultOptions.WriteTimeout
	}
	return o
}
