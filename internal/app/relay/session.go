/*
Package relay contains the connection registry and broadcast core.

This file defines the Session lifecycle: attach an authenticated identity to
the registry, spawn its outbound pump, run the inbound read loop, and tear
everything down when the connection closes.
*/
package relay

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/app/directory"
	"chatrelay/internal/pkg/logx"
)

// State is the lifecycle state of a session.
type State int32

const (
	StateAttaching State = iota
	StateActive
	StateClosing
	StateClosed
)

// Options are the delivery and teardown policy knobs for the relay core.
type Options struct {
	// EchoSelf controls whether a sender receives its own broadcasts.
	EchoSelf bool

	// RemoveOnDisconnect deletes the registry entry on detach instead of
	// keeping it with Disconnected status.
	RemoveOnDisconnect bool

	// QueueSize is the per-connection outbound queue capacity.
	QueueSize int
}

// DefaultQueueSize is the outbound queue capacity used when Options leaves it zero.
const DefaultQueueSize = 256

// Session orchestrates one connection's full life. The display name is
// resolved once at attach time and cached; no directory lookup happens per
// message.
type Session struct {
	key         string
	displayName string

	registry    *Registry
	broadcaster *Broadcaster
	opts        Options

	send  chan Frame
	state atomic.Int32

	logger zerolog.Logger
}

// NewSession resolves the user key through the identity directory and
// prepares a session for it. A resolution failure rejects the connection:
// no registry entry is created and no goroutine is spawned.
func NewSession(ctx context.Context, userKey string, resolver directory.Resolver, registry *Registry, broadcaster *Broadcaster, opts Options) (*Session, error) {
	profile, err := resolver.Resolve(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("identity resolution failed for %q: %w", userKey, err)
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	sessionLogger := logx.Logger().With().
		Str("component", "session").
		Str("user_key", profile.Key).
		Logger()

	s := &Session{
		key:         profile.Key,
		displayName: profile.DisplayName,
		registry:    registry,
		broadcaster: broadcaster,
		opts:        opts,
		logger:      sessionLogger,
	}
	s.state.Store(int32(StateAttaching))

	return s, nil
}

// Key returns the session's user key.
func (s *Session) Key() string {
	return s.key
}

// DisplayName returns the display name cached at attach time.
func (s *Session) DisplayName() string {
	return s.displayName
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run attaches the session to the registry, spawns the outbound pump bound
// to a fresh queue, and blocks in the read loop until the stream closes or
// errors. Teardown is performed before returning: the registry entry is
// detached (status flip or removal per Options) and the queue is closed,
// which terminates the pump. Run must be called at most once.
func (s *Session) Run(stream Stream) {
	s.send = make(chan Frame, s.opts.QueueSize)

	pump := NewPump(stream, s.send, s.logger)
	go pump.Run()

	prev, existed := s.registry.Upsert(s.key, NewConnectedEntry(s.send))
	if existed && prev.Connected() {
		s.logger.Warn().Msg("Previous connection for key was kicked by this attach.")
	}

	s.state.Store(int32(StateActive))
	s.logger.Info().Str("status", StatusConnected.String()).Msg("New client attached.")

	s.readLoop(stream)

	s.state.Store(int32(StateClosing))

	s.registry.Detach(s.key, s.send, s.opts.RemoveOnDisconnect)

	s.state.Store(int32(StateClosed))
	s.logger.Info().Str("status", StatusDisconnected.String()).Msg("Client detached.")
}

// readLoop consumes inbound frames until EOF or a read error. Valid text
// frames go to the broadcaster; malformed ones are dropped and logged,
// never fatal to the session. Non-text frames bypass the broadcaster
// entirely and are passed through unmodified to this session's own pump.
func (s *Session) readLoop(stream Stream) {
	stream.SetReadLimit(maxFrameSize)

	if err := stream.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	stream.SetPongHandler(func(string) error {
		return stream.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := stream.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Read loop ended with unexpected close.")
			}
			return
		}

		if kind != websocket.TextMessage {
			s.passThrough(Frame{Kind: kind, Payload: data})
			continue
		}

		if err := s.broadcaster.Deliver(s.key, s.displayName, data); err != nil {
			s.logger.Warn().Err(err).Msg("Dropped malformed inbound frame.")
		}
	}
}

// passThrough forwards a non-text frame to this session's own pump.
// The queue may already be closed if a newer attach kicked this session
// between the read and the send; that race is absorbed as a drop.
func (s *Session) passThrough(f Frame) {
	defer func() {
		if recover() != nil {
			s.logger.Debug().Int("frame_kind", f.Kind).Msg("Pass-through after kick; frame dropped.")
		}
	}()

	select {
	case s.send <- f:
	default:
		s.logger.Warn().Int("frame_kind", f.Kind).Msg("Outbound queue full; pass-through frame dropped.")
	}
}
