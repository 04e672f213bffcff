package sockjs

import (
	"io"
	"net/http"
	"sync"
)

// httpReceiver streams frames into one HTTP response. It counts bytes
// written and reports itself done once the response limit is reached.
// Streaming transports use a large limit, polling uses a limit of one
// byte so any single frame completes the response.
type httpReceiver struct {
	mu          sync.Mutex
	rw          http.ResponseWriter
	flusher     http.Flusher
	maxBytes    int
	written     int
	closed      bool
	transport   string
	done        chan struct{}
	interrupted chan struct{}
}

func newHTTPReceiver(rw http.ResponseWriter, maxBytes int, transport string) *httpReceiver {
	flusher, _ := rw.(http.Flusher)
	return &httpReceiver{
		rw:          rw,
		flusher:     flusher,
		maxBytes:    maxBytes,
		transport:   transport,
		done:        make(chan struct{}),
		interrupted: make(chan struct{}),
	}
}

func (r *httpReceiver) sendBulk(messages ...string) {
	if len(messages) == 0 {
		return
	}
	r.sendFrame(messageFrame(messages...))
	transportMessagesSent.WithLabelValues(r.transport).Add(float64(len(messages)))
}

func (r *httpReceiver) sendFrame(frame string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	n, err := io.WriteString(r.rw, frame+"\n")
	if err != nil {
		r.closed = true
		close(r.interrupted)
		return
	}
	if r.flusher != nil {
		r.flusher.Flush()
	}
	r.written += n
	if r.maxBytes > 0 && r.written >= r.maxBytes {
		r.closed = true
		close(r.done)
	}
}

func (r *httpReceiver) canSend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed
}

func (r *httpReceiver) doneNotify() <-chan struct{} {
	return r.done
}

func (r *httpReceiver) interruptedNotify() <-chan struct{} {
	return r.interrupted
}

func (r *httpReceiver) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.done)
	}
}

// interrupt marks the receiver dead because its HTTP request went away
// before the response completed.
func (r *httpReceiver) interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.interrupted)
	}
}
