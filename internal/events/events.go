package events

import (
	"context"
	"time"
)

// Event topic constants
const (
	TopicNoticeInfo    = "adverthide.notice.info"
	TopicNoticeError   = "adverthide.notice.error"
	TopicAccessDemoted = "adverthide.access.demoted"

	// TopicAll matches every topic above.
	TopicAll = "adverthide.>"
)

// Notice levels
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// Event types

// Notice is a human-readable message produced by a tick, the equivalent of
// the host platform's admin message queue.
type Notice struct {
	TickID  string    `json:"tick_id"`
	Level   string    `json:"level"`
	Step    string    `json:"step,omitempty"` // failing step for error notices
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// AccessDemoted reports content items whose access level a tick changed.
type AccessDemoted struct {
	TickID string    `json:"tick_id"`
	IDs    []int64   `json:"ids"`
	From   int64     `json:"from"`
	To     int64     `json:"to"`
	Time   time.Time `json:"time"`
}

// NoticeTopic returns the topic a notice of the given level is published on.
func NoticeTopic(level string) string {
	if level == LevelError {
		return TopicNoticeError
	}
	return TopicNoticeInfo
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// HeaderTickID carries the tick id of an event on transports with headers,
// so consumers can correlate without decoding the payload.
const HeaderTickID = "Adverthide-Tick-Id"

// TickOf returns the tick id carried by event, or "" for foreign types.
func TickOf(event any) string {
	switch e := event.(type) {
	case Notice:
		return e.TickID
	case *Notice:
		return e.TickID
	case AccessDemoted:
		return e.TickID
	case *AccessDemoted:
		return e.TickID
	}
	return ""
}

// Message is an event as delivered to a subscriber.
type Message struct {
	Topic  string
	TickID string
	Data   []byte
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	// Subscribe delivers events matching topic until the returned cancel
	// function is called, which also closes the channel.
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
