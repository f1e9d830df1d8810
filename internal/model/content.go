package model

import (
	"strconv"
	"strings"
	"time"
)

// Names of the custom fields the updater depends on.
const (
	FieldAdvertising = "advertising"
	FieldHiding      = "hiding"
)

// StatePublished is the content state of a published item.
const StatePublished = 1

// Content is a host content item. Only Access is ever mutated by the updater.
type Content struct {
	ID        int64      `json:"id"`
	Access    int64      `json:"access"`
	State     int        `json:"state"`
	PublishUp *time.Time `json:"publish_up,omitempty"`
	CatID     int64      `json:"catid"`
}

// FieldValueKind distinguishes the typed interpretations of a stored field value.
type FieldValueKind int

const (
	FieldValueFlag FieldValueKind = iota + 1
	FieldValueDate
)

// FieldValue is the typed form of a custom-field value. The host stores every
// value as text; converting to and from that text is the SQL adapter's job.
type FieldValue struct {
	Kind FieldValueKind
	Flag bool
	Date *time.Time // nil = no date
}

// Flag returns a flag field value.
func Flag(v bool) FieldValue {
	return FieldValue{Kind: FieldValueFlag, Flag: v}
}

// Date returns a date field value. A zero time is treated as "no date".
func Date(t time.Time) FieldValue {
	if t.IsZero() {
		return FieldValue{Kind: FieldValueDate}
	}
	u := t.UTC()
	return FieldValue{Kind: FieldValueDate, Date: &u}
}

// HasDate reports whether a date value carries an actual date.
func (v FieldValue) HasDate() bool {
	return v.Kind == FieldValueDate && v.Date != nil
}

// CandidateQuery is the typed predicate for selecting content to demote.
type CandidateQuery struct {
	AdvertisingField int64
	HidingField      int64
	PublicGroup      int64
	Categories       []int64 // empty = no filter
	HideBefore       time.Time
	Limit            int
}

// RestoreQuery describes a bulk access restore for advertising items.
type RestoreQuery struct {
	AdvertisingField int64
	From             int64
	To               int64
	Categories       []int64 // empty = all categories
}

// Candidate is a selected content item, in selection order.
type Candidate struct {
	ID        int64      `json:"id"`
	PublishUp *time.Time `json:"publish_up,omitempty"`
}

// CandidateIDs extracts the ids of candidates, preserving order.
func CandidateIDs(cs []Candidate) []int64 {
	ids := make([]int64, len(cs))
	for i, c := range cs {
		ids[i] = c.ID
	}
	return ids
}

// JoinIDs formats ids as a comma-separated list, e.g. "12,15".
func JoinIDs(ids []int64) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(id, 10))
	}
	return sb.String()
}
