/*
Package relay contains the connection registry and broadcast core: it tracks
which identities currently have a live connection, owns each connection's
outbound queue, and fans inbound messages out to the other connected peers.

This file defines the duplex stream abstraction the core operates on and the
frame type carried through each connection's outbound queue.
*/
package relay

import "time"

// Stream is the duplex message stream a session operates on.
// *websocket.Conn satisfies it; tests substitute in-memory fakes.
type Stream interface {
	// ReadMessage blocks until the next inbound frame arrives.
	ReadMessage() (messageType int, p []byte, err error)

	// WriteMessage writes a single outbound frame.
	WriteMessage(messageType int, data []byte) error

	// SetReadLimit caps the size of inbound frames.
	SetReadLimit(limit int64)

	// SetReadDeadline bounds how long a read may block.
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline bounds how long a write may block.
	SetWriteDeadline(t time.Time) error

	// SetPongHandler installs the handler invoked on pong control frames.
	SetPongHandler(h func(appData string) error)

	// Close tears down the underlying connection.
	Close() error
}

// Frame is one outbound wire frame queued for a connection's pump.
// Kind carries the websocket message type so non-text frames pass through
// the queue unmodified.
type Frame struct {
	Kind    int
	Payload []byte
}
