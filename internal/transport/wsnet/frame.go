// Package wsnet carries the paired-device transport over a websocket between the
// companion (server) and the wearable (client).
package wsnet

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/i474232898/sunshine-wear/internal/transport"
)

type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	SendBufferSize   int
	// BatchDelay postpones delivery of non-urgent data items.
	BatchDelay time.Duration
}

func DefaultSettings() *Settings {
	return &Settings{
		HandshakeTimeout: 2 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      15 * time.Second,
		PingInterval:     5 * time.Second,
		SendBufferSize:   16,
		BatchDelay:       2 * time.Second,
	}
}

type frameType string

const (
	frameHello   frameType = "hello"
	frameMessage frameType = "message"
	frameAck     frameType = "ack"
	frameData    frameType = "data"
)

// Frame is the unit written to the websocket, JSON encoded.
type Frame struct {
	Type   frameType       `json:"type"`
	ID     string          `json:"id,omitempty"`
	Node   *transport.Node `json:"node,omitempty"`
	Path   string          `json:"path,omitempty"`
	Data   []byte          `json:"data,omitempty"`
	Kind   string          `json:"kind,omitempty"`
	Urgent bool            `json:"urgent,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func newFrameID() string {
	return ulid.Make().String()
}

func dataFrame(kind transport.EventKind, path string, data []byte, urgent bool) *Frame {
	return &Frame{
		Type:   frameData,
		ID:     newFrameID(),
		Path:   path,
		Data:   data,
		Kind:   kind.String(),
		Urgent: urgent,
	}
}

func eventKind(kind string) transport.EventKind {
	if kind == transport.EventDeleted.String() {
		return transport.EventDeleted
	}
	return transport.EventChanged
}
