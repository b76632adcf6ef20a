/*
Package relay contains the connection registry and broadcast core.

This file defines the outbound Pump, the single goroutine that owns a
connection's write half. It decouples broadcast producers from the possibly
slow network writer: a blocked client can only fill its own queue.
*/
package relay

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeWait is the timeout for a single write to the stream.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod is the heartbeat interval. Must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize caps inbound frame size in bytes.
	maxFrameSize = 8192
)

// Pump drains a connection's outbound queue into its stream, one frame at a
// time, preserving submission order. It terminates when the queue is closed
// (the entry was detached or the process is shutting down) or on the first
// write failure, so a permanently broken stream's session is promptly torn
// down by the read loop observing the closed connection.
type Pump struct {
	stream Stream
	queue  <-chan Frame
	logger zerolog.Logger
}

// NewPump binds a pump to a stream's write half and a freshly created queue.
func NewPump(stream Stream, queue <-chan Frame, logger zerolog.Logger) *Pump {
	return &Pump{
		stream: stream,
		queue:  queue,
		logger: logger,
	}
}

// Run is the pump loop. It must run in its own goroutine, and is the only
// writer to the stream for the lifetime of the connection.
func (p *Pump) Run() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := p.stream.Close(); err != nil {
			p.logger.Debug().Err(err).Msg("Stream close error in pump teardown.")
		}
	}()

	for {
		select {
		case frame, ok := <-p.queue:
			if !p.writeFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !p.writePing() {
				return
			}
		}
	}
}

// writeFrame writes one queued frame to the stream. A closed queue produces
// a close frame. Returns false when the pump loop should terminate.
func (p *Pump) writeFrame(frame Frame, ok bool) bool {
	if err := p.stream.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set write deadline.")
		return false
	}

	if !ok {
		if err := p.stream.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			p.logger.Debug().Err(err).Msg("Error writing close frame.")
		}
		return false
	}

	if err := p.stream.WriteMessage(frame.Kind, frame.Payload); err != nil {
		p.logger.Warn().Err(err).Msg("Outbound write failed; terminating pump.")
		return false
	}

	return true
}

// writePing sends the periodic heartbeat ping.
// Returns false when the pump loop should terminate.
func (p *Pump) writePing() bool {
	if err := p.stream.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		p.logger.Error().Err(err).Msg("Failed to set write deadline on ping.")
		return false
	}

	if err := p.stream.WriteMessage(websocket.PingMessage, nil); err != nil {
		p.logger.Warn().Err(err).Msg("Heartbeat write failed; terminating pump.")
		return false
	}

	return true
}
