/*
Package relay contains the connection registry and broadcast core.

This file defines the wire contracts: the inbound message frame clients send
and the outbound envelope recipients receive.
*/
package relay

import (
	"encoding/json"
	"errors"
)

// ErrMalformedMessage is returned for inbound text frames that do not parse
// as the expected {"message": "..."} object.
var ErrMalformedMessage = errors.New("relay: malformed inbound message")

// inboundMessage mirrors the inbound wire frame. The pointer distinguishes a
// missing "message" field from an empty one.
type inboundMessage struct {
	Message *string `json:"message"`
}

// ParseInbound validates an inbound text frame and extracts its text payload.
func ParseInbound(raw []byte) (string, error) {
	var msg inboundMessage

	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", ErrMalformedMessage
	}

	if msg.Message == nil {
		return "", ErrMalformedMessage
	}

	return *msg.Message, nil
}

// Envelope is the rendered, recipient-facing representation of a chat
// message. It is immutable after construction: the encoded bytes are shared
// read-only across every recipient's queue.
//
// The JSON field names are the outbound wire contract and must stay stable.
type Envelope struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Encode renders the envelope to its outbound wire form.
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
