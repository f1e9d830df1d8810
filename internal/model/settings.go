package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Recognized keys of the plugin params blob.
const (
	KeyLastCheck       = "last_check"
	KeyCheckInterval   = "check_interval"
	KeyBatchSize       = "batch_size"
	KeyCategories      = "categories"
	KeyPublicGroup     = "public_group"
	KeyRegisteredGroup = "registered_group"
	KeyAdminOnly       = "admin_only"
)

// Defaults applied when a key is absent or holds a non-positive value.
const (
	DefaultCheckInterval int64 = 3600
	DefaultBatchSize           = 10
)

// Settings is the typed view of the plugin params blob.
type Settings struct {
	LastCheck       int64   `json:"last_check"`     // unix seconds of the last run
	CheckInterval   int64   `json:"check_interval"` // seconds
	BatchSize       int     `json:"batch_size"`
	Categories      []int64 `json:"categories,omitempty"` // empty = no filter
	PublicGroup     int64   `json:"public_group"`
	RegisteredGroup int64   `json:"registered_group"`
	AdminOnly       bool    `json:"admin_only"`
}

// Interval returns the check interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.CheckInterval) * time.Second
}

// LastRun returns last_check as a time. The zero Unix time means "never".
func (s Settings) LastRun() time.Time {
	return time.Unix(s.LastCheck, 0).UTC()
}

// Due reports whether strictly more than the check interval has elapsed
// between the last run and now.
func (s Settings) Due(now time.Time) bool {
	return now.Unix()-s.LastCheck > s.CheckInterval
}

// NextRun returns the earliest unix second at which Due becomes true.
func (s Settings) NextRun() time.Time {
	return time.Unix(s.LastCheck+s.CheckInterval+1, 0).UTC()
}

// ParseSettings builds Settings from a decoded params blob. Values may be
// JSON numbers, numeric strings, booleans or (for categories) lists and
// comma-separated text, since the host stores form input as strings.
// Unparseable optional values fall back to their defaults; a value that
// cannot be read at all is reported in the returned error alongside the
// best-effort settings.
func ParseSettings(values map[string]json.RawMessage) (Settings, error) {
	s := Settings{
		CheckInterval: DefaultCheckInterval,
		BatchSize:     DefaultBatchSize,
	}
	var ve ValidationError

	readInt := func(key string) (int64, bool) {
		raw, ok := values[key]
		if !ok || isNullOrEmpty(raw) {
			return 0, false
		}
		n, err := intValue(raw)
		if err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: key, Message: err.Error()})
			return 0, false
		}
		return n, true
	}

	if n, ok := readInt(KeyLastCheck); ok && n > 0 {
		s.LastCheck = n
	}
	if n, ok := readInt(KeyCheckInterval); ok && n > 0 {
		s.CheckInterval = n
	}
	if n, ok := readInt(KeyBatchSize); ok && n > 0 {
		if n > math.MaxInt32 {
			n = math.MaxInt32
		}
		s.BatchSize = int(n)
	}
	if n, ok := readInt(KeyPublicGroup); ok && n > 0 {
		s.PublicGroup = n
	}
	if n, ok := readInt(KeyRegisteredGroup); ok && n > 0 {
		s.RegisteredGroup = n
	}

	if raw, ok := values[KeyAdminOnly]; ok && !isNullOrEmpty(raw) {
		b, err := boolValue(raw)
		if err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: KeyAdminOnly, Message: err.Error()})
		}
		s.AdminOnly = b
	}

	if raw, ok := values[KeyCategories]; ok && !isNullOrEmpty(raw) {
		cats, err := categoriesValue(raw)
		if err != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: KeyCategories, Message: err.Error()})
		}
		s.Categories = cats
	}

	if ve.HasErrors() {
		return s, &ve
	}
	return s, nil
}

// NormalizeCategories converts raw category identifiers into a sorted set of
// positive integers. Zero, negative and duplicate entries are dropped.
func NormalizeCategories(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseCategoryList splits comma-separated text into a normalized category set.
// Entries that are not integers are ignored.
func ParseCategoryList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}
	return NormalizeCategories(ids)
}

func isNullOrEmpty(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

func decodeAny(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func intValue(raw json.RawMessage) (int64, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return 0, err
	}
	return intFromAny(v)
}

func intFromAny(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x.String())
		}
		return int64(f), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", x)
		}
		return n, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func boolValue(raw json.RawMessage) (bool, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return false, err
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return false, fmt.Errorf("invalid number %q", x.String())
		}
		return f != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off", "":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", x)
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func categoriesValue(raw json.RawMessage) ([]int64, error) {
	v, err := decodeAny(raw)
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case string:
		return ParseCategoryList(x), nil
	case json.Number:
		n, err := intFromAny(x)
		if err != nil {
			return nil, err
		}
		return NormalizeCategories([]int64{n}), nil
	case []any:
		ids := make([]int64, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				ids = append(ids, ParseCategoryList(s)...)
				continue
			}
			n, err := intFromAny(item)
			if err != nil {
				continue
			}
			ids = append(ids, n)
		}
		return NormalizeCategories(ids), nil
	default:
		return nil, fmt.Errorf("expected list or comma-separated text, got %T", v)
	}
}
