/*
Package relay contains the connection registry and broadcast core.

This file defines the Broadcaster, which renders an inbound message into a
display envelope and fans it out to every connected registry entry matching
the delivery policy.
*/
package relay

import (
	"errors"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/pkg/logx"
)

// Broadcaster fans inbound messages out to connected peers.
type Broadcaster struct {
	registry *Registry

	// echoSelf controls whether the sender receives a copy of its own
	// message. Off by default to avoid duplicate local rendering.
	echoSelf bool

	logger zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster over the given registry.
func NewBroadcaster(registry *Registry, echoSelf bool) *Broadcaster {
	broadcastLogger := logx.Logger().With().Str("component", "broadcaster").Logger()

	return &Broadcaster{
		registry: registry,
		echoSelf: echoSelf,
		logger:   broadcastLogger,
	}
}

// Deliver validates the raw inbound frame, renders the outbound envelope
// once, and enqueues it on every connected entry's handle. The sender is
// skipped unless echo is enabled.
//
// A parse failure returns ErrMalformedMessage and produces no broadcast.
// Per-recipient enqueue failures (closed handle racing a disconnect, full
// queue) are logged and skipped, never propagated: partial delivery on a
// racing disconnect is expected.
func (b *Broadcaster) Deliver(senderKey, senderName string, raw []byte) error {
	text, err := ParseInbound(raw)
	if err != nil {
		return err
	}

	envelope := Envelope{Sender: senderName, Text: text}

	payload, err := envelope.Encode()
	if err != nil {
		return err
	}

	frame := Frame{Kind: websocket.TextMessage, Payload: payload}

	// Snapshot first; every enqueue below happens without the registry lock.
	for _, peer := range b.registry.Snapshot() {
		if !peer.Entry.Connected() {
			continue
		}

		if !b.echoSelf && peer.Key == senderKey {
			continue
		}

		if err := peer.Entry.Enqueue(frame); err != nil {
			if errors.Is(err, ErrHandleClosed) || errors.Is(err, ErrNotConnected) {
				b.logger.Debug().
					Str("sender_key", senderKey).
					Str("recipient_key", peer.Key).
					Msg("Recipient disconnected mid-broadcast; envelope dropped.")
				continue
			}

			b.logger.Warn().
				Err(err).
				Str("sender_key", senderKey).
				Str("recipient_key", peer.Key).
				Msg("Failed to enqueue envelope for recipient.")
		}
	}

	return nil
}
