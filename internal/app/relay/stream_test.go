package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatrelay/internal/app/directory"
)

// errStreamClosed is what fakeStream reads return once the stream is closed.
var errStreamClosed = errors.New("fake stream closed")

// scriptedFrame is one inbound frame (or read error) a fakeStream serves.
type scriptedFrame struct {
	kind int
	data []byte
	err  error
}

// fakeStream is an in-memory Stream double. Inbound frames are pushed through
// the inbound channel; every write is captured on the writes channel.
type fakeStream struct {
	inbound chan scriptedFrame
	writes  chan Frame

	mu       sync.Mutex
	writeErr error

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		inbound: make(chan scriptedFrame, 16),
		writes:  make(chan Frame, 64),
		closed:  make(chan struct{}),
	}
}

func (s *fakeStream) ReadMessage() (int, []byte, error) {
	select {
	case f := <-s.inbound:
		return f.kind, f.data, f.err
	case <-s.closed:
		return 0, nil, errStreamClosed
	}
}

func (s *fakeStream) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	err := s.writeErr
	s.mu.Unlock()

	if err != nil {
		return err
	}

	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}

	s.writes <- Frame{Kind: messageType, Payload: data}
	return nil
}

func (s *fakeStream) setWriteErr(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

func (s *fakeStream) SetReadLimit(limit int64)            {}
func (s *fakeStream) SetReadDeadline(t time.Time) error   { return nil }
func (s *fakeStream) SetWriteDeadline(t time.Time) error  { return nil }
func (s *fakeStream) SetPongHandler(h func(string) error) {}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeResolver maps user keys to display names.
type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, userKey string) (*directory.Profile, error) {
	name, ok := f[userKey]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return &directory.Profile{Key: userKey, ID: "id-" + userKey, DisplayName: name}, nil
}
