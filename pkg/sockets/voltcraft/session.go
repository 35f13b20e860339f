package voltcraft

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mlsorensen/gosocket/internal/observability"
	"github.com/mlsorensen/gosocket/pkg/sockets/voltcraft/comms"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds the wait for a reply when no other timeout is configured.
const DefaultTimeout = 10 * time.Second

// Transport is the command channel of one connected socket: writes go to the command
// characteristic and replies arrive as notifications.
type Transport interface {
	Write(frame []byte) error

	// Subscribe registers the notification callback. The session calls it at most once.
	Subscribe(onNotify func(buf []byte)) error
}

// State is the position of a Session in its command cycle.
type State int32

const (
	// StateIdle: no notification subscription yet.
	StateIdle State = iota
	// StateSubscribed: notifications enabled, no command in flight.
	StateSubscribed
	// StateAwaitingResponse: a frame was written and its reply has not been consumed.
	StateAwaitingResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribed:
		return "subscribed"
	case StateAwaitingResponse:
		return "awaiting_response"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTimeout sets how long Send waits for a reply. Zero or negative disables the
// session timeout, leaving only the caller's context.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithLogger sets the base logger; the session adds its own id to it.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// Session is the single command channel to one socket. Commands are strictly
// serialized: Send holds the session until the reply to its frame has been consumed,
// so at most one command is ever in flight.
//
// The protocol carries no request id. A reply is matched to the most recent write by
// arrival order only.
type Session struct {
	transport Transport
	timeout   time.Duration
	logger    zerolog.Logger
	id        string

	sendMu sync.Mutex
	state  atomic.Int32

	replies chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// NewSession creates a session over t. Nothing is sent until the first Send.
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: t,
		timeout:   DefaultTimeout,
		logger:    log.Logger,
		id:        uuid.NewString(),
		replies:   make(chan []byte, 1),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session", s.id).Logger()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.logger.Trace().Stringer("from", prev).Stringer("to", next).Msg("session state")
	}
}

// Send writes cmd to the socket and blocks until its reply has been decoded and
// interpreted, the timeout expires, ctx ends, or the session is closed. Whatever the
// outcome, the session is ready for the next command when Send returns.
func (s *Session) Send(ctx context.Context, cmd comms.Command) (err error) {
	if cmd.Done() {
		return comms.ErrCommandReused
	}
	frame, err := comms.Encode(cmd.Body())
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Name(), err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	if err := s.ensureSubscribed(); err != nil {
		return err
	}
	if err := cmd.Claim(); err != nil {
		return err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger := s.logger.With().Str("command", cmd.Name()).Logger()
	start := time.Now()
	defer func() {
		observability.RecordCommand(cmd.Name(), resultLabel(err), time.Since(start))
		if err != nil {
			logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("command failed")
		}
	}()

	s.setState(StateAwaitingResponse)
	defer s.setState(StateSubscribed)

	// A reply that lands between this drain and the write below is taken as the
	// answer to cmd; the wire format carries nothing to tell the two apart.
	s.discardStale()

	logger.Debug().Hex("frame", frame).Msg("write")
	if err := s.transport.Write(frame); err != nil {
		return &TransportError{Op: "write", Cause: err}
	}

	var raw []byte
	select {
	case raw = <-s.replies:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %w", ErrTimeout, cmd.Name(), ctx.Err())
		}
		return ctx.Err()
	case <-s.closed:
		if s.closeErr != nil {
			return &TransportError{Op: "notify", Cause: s.closeErr}
		}
		return ErrSessionClosed
	}

	logger.Debug().Hex("reply", raw).Msg("notification")
	body, err := comms.DecodeReply(raw)
	if err != nil {
		return err
	}
	return cmd.Interpret(body)
}

// Close ends the session. A Send waiting for a reply returns immediately; it reports
// cause as a *TransportError when cause is non-nil. Later Sends fail with
// ErrSessionClosed.
func (s *Session) Close(cause error) {
	s.closeOnce.Do(func() {
		s.closeErr = cause
		close(s.closed)
	})
}

// ensureSubscribed performs the Idle -> Subscribed transition. It runs under sendMu,
// so the transport is subscribed at most once; a failed attempt leaves the session idle.
func (s *Session) ensureSubscribed() error {
	if s.State() != StateIdle {
		return nil
	}
	s.logger.Debug().Msg("enabling notifications")
	if err := s.transport.Subscribe(s.handleNotification); err != nil {
		return &TransportError{Op: "subscribe", Cause: err}
	}
	s.setState(StateSubscribed)
	return nil
}

// handleNotification runs on the transport's callback context. It only hands the
// buffer over; decoding happens in Send.
func (s *Session) handleNotification(buf []byte) {
	if s.State() != StateAwaitingResponse {
		s.dropNotification(buf)
		return
	}
	reply := bytes.Clone(buf)
	select {
	case s.replies <- reply:
	default:
		s.dropNotification(buf)
	}
}

func (s *Session) dropNotification(buf []byte) {
	observability.RecordStaleNotification()
	s.logger.Warn().Hex("data", buf).Msg("dropping notification with no command waiting")
}

// discardStale empties the reply slot, removing a late reply to a command that already
// gave up waiting.
func (s *Session) discardStale() {
	select {
	case stale := <-s.replies:
		s.dropNotification(stale)
	default:
	}
}

func resultLabel(err error) string {
	var transportErr *TransportError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, comms.ErrFraming):
		return "framing_error"
	case errors.Is(err, comms.ErrAuthenticationFailed):
		return "auth_failed"
	case errors.Is(err, comms.ErrUnexpectedResponse):
		return "unexpected_response"
	case errors.As(err, &transportErr):
		return "transport_error"
	case errors.Is(err, ErrSessionClosed):
		return "closed"
	default:
		return "error"
	}
}
