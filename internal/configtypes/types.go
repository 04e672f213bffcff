package configtypes

// Log configures logging behavior.
type Log struct {
	// Level is a log level. Can be trace, debug, info, warn, error, fatal or none.
	Level string `mapstructure:"level" json:"level" yaml:"level" toml:"level"`
	// File is a path to log file. Empty value means output to console.
	File string `mapstructure:"file" json:"file" yaml:"file" toml:"file"`
}

// HTTPServer configures HTTP server of sockbridge.
type HTTPServer struct {
	// Address to bind HTTP server to.
	Address string `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	// Port to bind HTTP server to.
	Port int `mapstructure:"port" json:"port" yaml:"port" toml:"port"`
	// InternalAddress to bind internal endpoints (health, metrics, pprof) to.
	// Empty value means Address is used.
	InternalAddress string `mapstructure:"internal_address" json:"internal_address" yaml:"internal_address" toml:"internal_address"`
	// InternalPort to serve internal endpoints on. Empty value means internal
	// endpoints are served on the main port.
	InternalPort string `mapstructure:"internal_port" json:"internal_port" yaml:"internal_port" toml:"internal_port"`
	// ShutdownTimeout bounds graceful shutdown time.
	ShutdownTimeout Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// Client contains configuration of connection-level options.
type Client struct {
	// AllowedOrigins is a list of allowed origin glob patterns for websocket
	// upgrade and CORS requests. An empty list only lets same-origin
	// requests through.
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	// ConnectionRateLimit limits the number of accepted connection requests
	// per second. Zero value means no limit.
	ConnectionRateLimit int `mapstructure:"connection_rate_limit" json:"connection_rate_limit" yaml:"connection_rate_limit" toml:"connection_rate_limit"`
}

// WebSocket contains websocket upgrader options shared by SockJS websocket
// transport and the raw websocket endpoint.
type WebSocket struct {
	ReadBufferSize     int  `mapstructure:"read_buffer_size" json:"read_buffer_size" yaml:"read_buffer_size" toml:"read_buffer_size"`
	WriteBufferSize    int  `mapstructure:"write_buffer_size" json:"write_buffer_size" yaml:"write_buffer_size" toml:"write_buffer_size"`
	UseWriteBufferPool bool `mapstructure:"use_write_buffer_pool" json:"use_write_buffer_pool" yaml:"use_write_buffer_pool" toml:"use_write_buffer_pool"`
	Compression        bool `mapstructure:"compression" json:"compression" yaml:"compression" toml:"compression"`
}

// SockJS contains engine-wide SockJS protocol options. Per-application
// sections may override some of them.
type SockJS struct {
	// URL is a SockJS client library link used in iframe transports.
	URL string `mapstructure:"url" json:"url" yaml:"url" toml:"url"`
	// HeartbeatInterval dictates how often to send heartbeat frames into
	// attached receivers.
	HeartbeatInterval Duration `mapstructure:"heartbeat_interval" json:"heartbeat_interval" yaml:"heartbeat_interval" toml:"heartbeat_interval"`
	// SessionTimeout is how long a session survives with no attached
	// receiver before it is swept.
	SessionTimeout Duration `mapstructure:"session_timeout" json:"session_timeout" yaml:"session_timeout" toml:"session_timeout"`
	// SweepInterval is how often the registry looks for expired sessions.
	SweepInterval Duration `mapstructure:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval" toml:"sweep_interval"`
	// MaxBytesStreaming limits the number of payload bytes written into one
	// streaming response before it is finished, and the maximum websocket
	// frame size before fragmentation kicks in.
	MaxBytesStreaming int `mapstructure:"max_bytes_streaming" json:"max_bytes_streaming" yaml:"max_bytes_streaming" toml:"max_bytes_streaming"`
	// SendQueueMaxSize is a maximum amount of bytes buffered for a session
	// with a slow or detached receiver. Session closes once exceeded.
	SendQueueMaxSize int `mapstructure:"send_queue_max_size" json:"send_queue_max_size" yaml:"send_queue_max_size" toml:"send_queue_max_size"`
	// MessageSizeLimit caps a single inbound message size in bytes.
	MessageSizeLimit int `mapstructure:"message_size_limit" json:"message_size_limit" yaml:"message_size_limit" toml:"message_size_limit"`
	// ReceiverConflict is a policy applied when a second receiver arrives
	// for a session which already has one attached: "reject" or "evict".
	ReceiverConflict string `mapstructure:"receiver_conflict" json:"receiver_conflict" yaml:"receiver_conflict" toml:"receiver_conflict"`
	// AffinityCookie is the only cookie name exposed to application
	// handlers through session headers.
	AffinityCookie string `mapstructure:"affinity_cookie" json:"affinity_cookie" yaml:"affinity_cookie" toml:"affinity_cookie"`
	// WriteTimeout is a maximum time of one write into transport connection.
	WriteTimeout Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout" toml:"write_timeout"`

	WebSocket WebSocket `mapstructure:"websocket" json:"websocket" yaml:"websocket" toml:"websocket"`
}

// App describes one mounted SockJS application endpoint.
type App struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix"`
	// DisableWebsocket turns both websocket transports off for this app so
	// only HTTP transports remain.
	DisableWebsocket bool `mapstructure:"disable_websocket" json:"disable_websocket" yaml:"disable_websocket" toml:"disable_websocket"`
	// CookieNeeded makes the app report cookie_needed in the info payload
	// and emit JSESSIONID cookie on HTTP transport responses.
	CookieNeeded bool `mapstructure:"cookie_needed" json:"cookie_needed" yaml:"cookie_needed" toml:"cookie_needed"`
	// MaxBytesStreaming overrides sockjs.max_bytes_streaming for this app
	// when greater than zero.
	MaxBytesStreaming int `mapstructure:"max_bytes_streaming" json:"max_bytes_streaming" yaml:"max_bytes_streaming" toml:"max_bytes_streaming"`
}

// Prometheus metrics configuration.
type Prometheus struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix"`
}

// Health endpoint configuration.
type Health struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix"`
}

// Debug pprof configuration.
type Debug struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	HandlerPrefix string `mapstructure:"handler_prefix" json:"handler_prefix" yaml:"handler_prefix" toml:"handler_prefix"`
}
