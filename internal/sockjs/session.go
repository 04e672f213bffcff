package sockjs

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/sockbridge/sockbridge/internal/queue"
	"github.com/sockbridge/sockbridge/internal/timers"
)

// State of a session.
type State int32

const (
	// StateConnecting means the session exists but no receiver has
	// attached yet, the open frame was not sent.
	StateConnecting State = iota
	// StateOpen means the open frame was sent and the session passes
	// messages both ways.
	StateOpen
	// StateClosing means the close frame is recorded and replayed to
	// receivers until the session is disposed.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session is what application handlers get for every started session.
type Session interface {
	// ID returns the session identifier from the URL, or a generated
	// one for raw websocket sessions.
	ID() string
	// Request returns the HTTP request which created the session.
	Request() *http.Request
	// Headers returns a copy of the creating request headers with the
	// Cookie header narrowed down to the affinity cookie.
	Headers() http.Header
	// Recv reads one message from the session, blocking until a
	// message arrives or the session closes. Returns ErrSessionNotOpen
	// after close.
	Recv() (string, error)
	// Send writes one message into the session. Messages are buffered
	// while no receiver is attached, up to the configured queue limit.
	Send(msg string) error
	// Close closes the session with status and reason. Calling Close
	// on an already closed session returns ErrSessionNotOpen.
	Close(status uint32, reason string) error
	// Context is canceled when the session closes.
	Context() context.Context
	// State reports the current session state.
	State() State
}

// receiver is one transport connection able to deliver frames to the
// client. At most one receiver is attached to a session at any moment.
type receiver interface {
	// sendBulk delivers messages, framing them the way the transport
	// requires.
	sendBulk(messages ...string)
	// sendFrame delivers one already encoded frame.
	sendFrame(frame string)
	// canSend reports whether the receiver is still able to deliver.
	canSend() bool
	// doneNotify closes when the receiver finished normally.
	doneNotify() <-chan struct{}
	// interruptedNotify closes when the receiver died mid-work.
	interruptedNotify() <-chan struct{}
	// close ends the receiver, releasing its connection.
	close()
}

type session struct {
	mu      sync.Mutex
	id      string
	req     *http.Request
	headers http.Header
	opts    Options
	handler func(Session)

	state       State
	interrupted bool
	recv        receiver
	closeFrame  string

	sendBuffer []string
	sendBytes  int
	recvBuffer queue.Queue

	lastActivity time.Time

	ctx              context.Context
	cancel           context.CancelFunc
	startHandlerOnce sync.Once
}

func newSession(req *http.Request, id string, opts Options, handler func(Session)) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:           id,
		req:          req,
		headers:      affinityHeaders(req, opts.AffinityCookie),
		opts:         opts,
		handler:      handler,
		state:        StateConnecting,
		recvBuffer:   queue.New(),
		lastActivity: time.Now(),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// affinityHeaders copies request headers replacing the Cookie header
// with the affinity cookie alone, so application code never observes
// other cookies sent by the browser.
func affinityHeaders(req *http.Request, cookieName string) http.Header {
	headers := req.Header.Clone()
	headers.Del("Cookie")
	if cookieName != "" {
		if c, err := req.Cookie(cookieName); err == nil {
			headers.Set("Cookie", c.String())
		}
	}
	return headers
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Request() *http.Request {
	return s.req
}

func (s *session) Headers() http.Header {
	return s.headers
}

func (s *session) Context() context.Context {
	return s.ctx
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) Recv() (string, error) {
	msg, ok := s.recvBuffer.Wait()
	if !ok {
		return "", ErrSessionNotOpen
	}
	return msg, nil
}

// accept pushes messages arrived from a transport into the session.
func (s *session) accept(messages ...string) error {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()
	for _, msg := range messages {
		if !s.recvBuffer.Add(msg) {
			return ErrSessionNotOpen
		}
	}
	return nil
}

func (s *session) Send(msg string) error {
	s.mu.Lock()
	if s.state != StateConnecting && s.state != StateOpen {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.sendBuffer = append(s.sendBuffer, msg)
	s.sendBytes += len(msg)
	overflow := s.opts.SendQueueMaxSize > 0 && s.sendBytes > s.opts.SendQueueMaxSize
	if !overflow {
		s.flushLocked()
	}
	s.mu.Unlock()
	if overflow {
		_ = s.Close(StatusSlowConsumer, ReasonSlowConsumer)
		return ErrSessionNotOpen
	}
	return nil
}

// flushLocked delivers buffered messages to the attached receiver.
// Caller must hold s.mu.
func (s *session) flushLocked() {
	if s.recv == nil || !s.recv.canSend() {
		return
	}
	if len(s.sendBuffer) == 0 {
		return
	}
	messages := s.sendBuffer
	s.sendBuffer = nil
	s.sendBytes = 0
	s.recv.sendBulk(messages...)
}

func (s *session) Close(status uint32, reason string) error {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		s.mu.Unlock()
		return ErrSessionNotOpen
	}
	s.closeFrame = closeFrame(status, reason)
	s.state = StateClosing
	s.flushLocked()
	if s.recv != nil {
		s.recv.sendFrame(s.closeFrame)
		s.recv.close()
		s.recv = nil
	}
	s.lastActivity = time.Now()
	s.recvBuffer.Close()
	s.cancel()
	s.mu.Unlock()
	return nil
}

// attachReceiver gives the session a new receiver. The session decides
// what the receiver observes: the close frame for finished sessions,
// the conflict close for busy ones, or the regular frame flow.
func (s *session) attachReceiver(recv receiver) {
	s.mu.Lock()
	if s.state == StateClosing || s.state == StateClosed {
		frame := s.closeFrame
		s.mu.Unlock()
		recv.sendFrame(frame)
		recv.close()
		return
	}
	if s.interrupted {
		s.closeFrame = closeFrame(StatusInterrupted, ReasonInterrupted)
		s.state = StateClosed
		s.recvBuffer.Close()
		s.cancel()
		frame := s.closeFrame
		s.mu.Unlock()
		recv.sendFrame(frame)
		recv.close()
		return
	}
	if s.recv != nil {
		if s.opts.ReceiverConflict == ConflictReject {
			s.mu.Unlock()
			recv.sendFrame(closeFrame(StatusAnotherConnection, ReasonAnotherConnection))
			recv.close()
			return
		}
		// Evict: the old receiver ends with the conflict close, the
		// new one takes over.
		old := s.recv
		s.recv = nil
		old.sendFrame(closeFrame(StatusAnotherConnection, ReasonAnotherConnection))
		old.close()
	}
	s.recv = recv
	s.lastActivity = time.Now()
	if s.state == StateConnecting {
		recv.sendFrame(openFrame)
		s.state = StateOpen
		s.startHandlerOnce.Do(func() {
			// Separate goroutine for the application handler so
			// transport goroutines never run application code.
			go s.handler(s)
		})
	}
	s.flushLocked()
	heartbeat := s.opts.HeartbeatDelay
	s.mu.Unlock()
	go s.receiverLifecycle(recv, heartbeat)
}

// receiverLifecycle follows one attached receiver: detaches it when it
// ends and feeds heartbeat frames while it lives.
func (s *session) receiverLifecycle(recv receiver, heartbeat time.Duration) {
	for {
		tm := timers.AcquireTimer(heartbeat)
		select {
		case <-recv.doneNotify():
			timers.ReleaseTimer(tm)
			s.detachReceiver(recv)
			return
		case <-recv.interruptedNotify():
			timers.ReleaseTimer(tm)
			s.interruptReceiver(recv)
			return
		case <-tm.C:
			timers.ReleaseTimer(tm)
			s.mu.Lock()
			attached := s.recv == recv && s.state == StateOpen
			s.mu.Unlock()
			if !attached {
				return
			}
			recv.sendFrame(heartbeatFrame)
		}
	}
}

func (s *session) detachReceiver(recv receiver) {
	s.mu.Lock()
	if s.recv == recv {
		s.recv = nil
		s.lastActivity = time.Now()
	}
	s.mu.Unlock()
}

func (s *session) interruptReceiver(recv receiver) {
	s.mu.Lock()
	if s.recv == recv {
		s.recv = nil
		s.interrupted = true
		s.lastActivity = time.Now()
	}
	s.mu.Unlock()
}

// closeFromTransport is called by full duplex transports when their
// connection went away: for a websocket session connection death is
// session death, there is nothing to reconnect.
func (s *session) closeFromTransport(recv receiver) {
	s.mu.Lock()
	if s.recv != nil && s.recv != recv {
		// Session was taken over by another receiver.
		s.mu.Unlock()
		return
	}
	s.recv = nil
	if s.state != StateClosed {
		if s.closeFrame == "" {
			s.closeFrame = closeFrame(StatusInterrupted, ReasonInterrupted)
		}
		s.state = StateClosed
		s.recvBuffer.Close()
		s.cancel()
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// idleExpired reports whether the sweeper should evict the session.
func (s *session) idleExpired(now time.Time, delay time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return true
	}
	return s.recv == nil && now.Sub(s.lastActivity) > delay
}

// expire finishes a session the sweeper found idle.
func (s *session) expire() {
	s.mu.Lock()
	if s.recv != nil {
		// A receiver attached between the sweep check and now.
		s.mu.Unlock()
		return
	}
	if s.state != StateClosed {
		if s.closeFrame == "" {
			s.closeFrame = closeFrame(StatusInterrupted, ReasonInterrupted)
		}
		s.state = StateClosed
		s.recvBuffer.Close()
		s.cancel()
	}
	s.mu.Unlock()
}
