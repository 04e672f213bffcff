package sockjs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	transportConnectCount     *prometheus.CounterVec
	transportMessagesSent     *prometheus.CounterVec
	transportMessagesReceived *prometheus.CounterVec
	sessionsActive            prometheus.Gauge
	sessionsSweptCount        prometheus.Counter
)

func init() {
	transportConnectCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sockbridge",
		Subsystem: "transport",
		Name:      "connect_count",
		Help:      "Number of connection requests to transport endpoints.",
	}, []string{"transport"})
	transportMessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sockbridge",
		Subsystem: "transport",
		Name:      "messages_sent",
		Help:      "Number of messages sent to clients.",
	}, []string{"transport"})
	transportMessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sockbridge",
		Subsystem: "transport",
		Name:      "messages_received",
		Help:      "Number of messages received from clients.",
	}, []string{"transport"})
	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sockbridge",
		Subsystem: "session",
		Name:      "num_active",
		Help:      "Number of alive sessions.",
	})
	sessionsSweptCount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sockbridge",
		Subsystem: "session",
		Name:      "swept_count",
		Help:      "Number of sessions evicted by the idle sweeper.",
	})
	_ = prometheus.DefaultRegisterer.Register(transportConnectCount)
	_ = prometheus.DefaultRegisterer.Register(transportMessagesSent)
	_ = prometheus.DefaultRegisterer.Register(transportMessagesReceived)
	_ = prometheus.DefaultRegisterer.Register(sessionsActive)
	_ = prometheus.DefaultRegisterer.Register(sessionsSweptCount)
}

// Transport label values.
const (
	transportWebsocket    = "websocket"
	transportRawWebsocket = "raw_websocket"
	transportXHRStreaming = "xhr_streaming"
	transportXHRPolling   = "xhr"
)
