package events

import (
	"strings"
	"time"
)

// Type names a dashboard event.
type Type string

const (
	TypeAlert      Type = "alert"
	TypeClear      Type = "clear"
	TypeCountdown  Type = "countdown"
	TypeStatus     Type = "status"
	TypeNews       Type = "news"
	TypeSirenStart Type = "siren_start"
	TypeSirenStop  Type = "siren_stop"
	TypeTone       Type = "tone"
)

// Event is one message on the dashboard stream.
type Event struct {
	Type Type        `json:"type"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data,omitempty"`
}

// Sink receives events. A nil Sink is valid and drops everything.
type Sink interface {
	Publish(Event)
}

// ParseTypes splits a comma-separated filter like "alert,clear".
func ParseTypes(v string) []Type {
	var types []Type
	for _, t := range strings.Split(v, ",") {
		trimmed := strings.TrimSpace(t)
		if trimmed != "" {
			types = append(types, Type(trimmed))
		}
	}
	return types
}
