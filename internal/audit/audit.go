// Package audit records which content items each tick demoted.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/metrics"
)

// Record is one audit line, written for every tick that changed access.
type Record struct {
	TickID  string    `json:"tick_id"`
	Time    time.Time `json:"time"`
	Updated []int64   `json:"updated"`
	From    int64     `json:"from"`
	To      int64     `json:"to"`
}

// Encode returns the record as a single JSONL line, newline included.
func (r Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode audit record: %w", err)
	}
	return append(data, '\n'), nil
}

// Destination is the interface for an audit target (file, S3, git).
type Destination interface {
	// Name identifies the destination in logs and metrics.
	Name() string
	// Write stores one encoded record.
	Write(ctx context.Context, rec Record, line []byte) error
}

// Trail writes records to every configured destination. Failures are logged
// and counted but never returned: auditing must not fail a tick.
type Trail struct {
	destinations []Destination
	logger       *slog.Logger
}

// NewTrail creates a trail over the given destinations.
func NewTrail(logger *slog.Logger, destinations ...Destination) *Trail {
	return &Trail{destinations: destinations, logger: logger}
}

// Len returns the number of destinations.
func (t *Trail) Len() int {
	if t == nil {
		return 0
	}
	return len(t.destinations)
}

// Record writes rec to all destinations. A nil or empty trail does nothing.
func (t *Trail) Record(ctx context.Context, rec Record) {
	if t.Len() == 0 {
		return
	}
	line, err := rec.Encode()
	if err != nil {
		t.logger.Error("audit encode failed", "tick_id", rec.TickID, "err", err)
		return
	}
	for _, dest := range t.destinations {
		if err := dest.Write(ctx, rec, line); err != nil {
			metrics.AuditWrites.WithLabelValues(dest.Name(), "error").Inc()
			t.logger.Error("audit write failed", "tick_id", rec.TickID, "destination", dest.Name(), "err", err)
			continue
		}
		metrics.AuditWrites.WithLabelValues(dest.Name(), "ok").Inc()
	}
}

// objectName returns the per-tick object or file name, grouped by UTC day so
// listings stay small: "2024/01/31/tick-abc.jsonl".
func objectName(rec Record) string {
	return rec.Time.UTC().Format("2006/01/02") + "/" + rec.TickID + ".jsonl"
}
