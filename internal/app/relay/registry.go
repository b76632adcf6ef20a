/*
Package relay contains the connection registry and broadcast core.

This file defines the Registry, the process-wide map from user key to
connection state. It is the single source of truth for "who is online" and
the only mutable state shared across sessions.
*/
package relay

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

// Status is the connection state of a registry entry.
type Status int

const (
	// StatusDisconnected marks an identity known to the registry but not
	// currently attached to a live connection.
	StatusDisconnected Status = iota

	// StatusConnected marks an identity with a live connection and an
	// active outbound handle.
	StatusConnected
)

// String implements fmt.Stringer for log output.
func (s Status) String() string {
	if s == StatusConnected {
		return "connected"
	}
	return "disconnected"
}

// ErrNotConnected is returned when enqueueing to an entry without a handle.
var ErrNotConnected = errors.New("relay: entry has no outbound handle")

// ErrQueueFull is returned when a recipient's outbound queue is saturated.
var ErrQueueFull = errors.New("relay: outbound queue full")

// ErrHandleClosed is returned when the outbound handle was torn down
// concurrently with the enqueue attempt.
var ErrHandleClosed = errors.New("relay: outbound handle closed")

// Entry is the registry record for one user key: its connection status and,
// while connected, the sending side of its outbound queue.
type Entry struct {
	Status Status

	// send is the connection's outbound queue. Non-nil iff Status is
	// StatusConnected. The receiving end is drained by exactly one Pump.
	send chan Frame
}

// NewConnectedEntry builds a Connected entry around an outbound queue.
func NewConnectedEntry(send chan Frame) Entry {
	return Entry{Status: StatusConnected, send: send}
}

// Connected reports whether the entry has a live outbound handle.
func (e Entry) Connected() bool {
	return e.Status == StatusConnected && e.send != nil
}

// Enqueue attempts a non-blocking send of the frame to the entry's queue.
// A handle torn down between snapshot and send is an expected race: the
// closed-channel panic is absorbed and reported as ErrHandleClosed.
func (e Entry) Enqueue(f Frame) (err error) {
	if e.send == nil {
		return ErrNotConnected
	}

	defer func() {
		if recover() != nil {
			err = ErrHandleClosed
		}
	}()

	select {
	case e.send <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

// Peer is one (key, entry) pair from a registry snapshot.
type Peer struct {
	Key   string
	Entry Entry
}

// Registry is the concurrently-accessible map from user key to Entry.
//
// All mutations are mutually exclusive with each other and with snapshot
// reads at whole-map granularity. Handle closure always happens inside the
// critical section, so every outbound channel is closed exactly once, by
// whichever operation removes it from the map. No registry operation
// performs network I/O while holding the lock; fan-out sends use the
// snapshot's cloned handles after release.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	logger  zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	registryLogger := logx.Logger().With().Str("component", "registry").Logger()

	return &Registry{
		entries: make(map[string]Entry),
		logger:  registryLogger,
	}
}

// Upsert inserts or replaces the entry for key and returns the previous
// entry, if any, so callers can detect "already connected" conflicts.
//
// A replaced live handle is closed here, which terminates the old
// connection's pump: a second attach for the same key kicks the first.
// Callers must not close the returned entry's handle themselves.
func (r *Registry) Upsert(key string, e Entry) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.entries[key]

	if existed && prev.send != nil && prev.send != e.send {
		close(prev.send)
		r.logger.Warn().Str("user_key", key).Msg("Replaced live connection for key; previous pump torn down.")
	}

	r.entries[key] = e

	return prev, existed
}

// Get returns a snapshot read of the entry for key.
func (r *Registry) Get(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	return e, ok
}

// SetStatus updates the status of an existing entry in place.
// A missing key is logged and ignored: a late status update racing a
// removal is not an error.
func (r *Registry) SetStatus(key string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		r.logger.Warn().Str("user_key", key).Stringer("status", status).Msg("SetStatus for absent key ignored.")
		return
	}

	e.Status = status
	r.entries[key] = e
}

// Snapshot returns a point-in-time copy of all (key, entry) pairs for
// fan-out. It does not reflect updates that happen after it returns.
func (r *Registry) Snapshot() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Peer, 0, len(r.entries))
	for key, e := range r.entries {
		peers = append(peers, Peer{Key: key, Entry: e})
	}

	return peers
}

// Remove drops the entry for key entirely, closing its handle if live.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return
	}

	if e.send != nil {
		close(e.send)
	}

	delete(r.entries, key)
}

// Detach tears down the connection state a session installed, guarded by
// handle identity: if the stored handle is not the caller's, the entry was
// already replaced by a newer attach and the detach is a stale no-op.
//
// With remove set the entry is dropped entirely; otherwise it is kept with
// StatusDisconnected so the identity survives for re-login.
func (r *Registry) Detach(key string, send chan Frame, remove bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		r.logger.Warn().Str("user_key", key).Msg("Detach for absent key ignored.")
		return
	}

	if e.send != send {
		r.logger.Info().Str("user_key", key).Msg("Ignoring detach for stale connection.")
		return
	}

	close(e.send)

	if remove {
		delete(r.entries, key)
	} else {
		r.entries[key] = Entry{Status: StatusDisconnected}
	}
}

// Len returns the current number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// CloseAll closes every live handle and marks all entries Disconnected.
// Used during graceful shutdown so every pump drains and exits.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, e := range r.entries {
		if e.send != nil {
			close(e.send)
		}
		r.entries[key] = Entry{Status: StatusDisconnected}
	}

	r.logger.Info().Int("entries", len(r.entries)).Msg("All outbound handles closed.")
}
