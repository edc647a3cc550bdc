// Package events defines the messages pushed to dashboard clients over the
// websocket channel.
package events

import (
	"time"
)

// MessageType identifies a pushed message.
type MessageType string

const (
	// TypeConnection is sent once to every client after it registers.
	TypeConnection MessageType = "connection"

	// TypeDatasetReloaded is broadcast after a successful reload. Clients
	// should refetch whatever they display.
	TypeDatasetReloaded MessageType = "dataset.reloaded"
)

// Message is the envelope of every pushed message.
type Message struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// ConnectionEvent is the payload of TypeConnection.
type ConnectionEvent struct {
	Status   string `json:"status"`
	ClientID string `json:"client_id"`
}
