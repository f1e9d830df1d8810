// Package idgen generates tick ids backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// TickPrefix is prepended to every tick id.
const TickPrefix = "tick-"

// alphabet excludes look-alike characters so ids can be read back from logs.
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

const length = 12

// NewTickID returns a fresh tick id such as "tick-7hq2m9c4xkpa".
func NewTickID() (string, error) {
	id, err := nanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate tick id: %w", err)
	}
	return TickPrefix + id, nil
}

// MustTickID is NewTickID for callers with no error path. If the random source
// fails it falls back to a fixed id rather than panicking.
func MustTickID() string {
	id, err := NewTickID()
	if err != nil {
		return TickPrefix + "unknown"
	}
	return id
}
