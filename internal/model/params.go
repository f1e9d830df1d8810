package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Extension types and default identity of the plugin's row in the host
// extensions table.
const (
	ExtensionTypePlugin = "plugin"
	DefaultElement      = "adverthiding"
	DefaultFolder       = "system"
)

// Params is the plugin's configuration record as stored by the host: a flat
// key/value JSON object on the extensions row identified by Element and Folder.
// Keys the updater does not recognize are preserved on write.
type Params struct {
	Element string                     `json:"element"`
	Folder  string                     `json:"folder"`
	Values  map[string]json.RawMessage `json:"values"`
}

// DecodeParams parses a stored params blob. An empty blob decodes to an
// empty map.
func DecodeParams(raw []byte) (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return values, nil
	}
	if err := json.Unmarshal(t, &values); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return values, nil
}

// Encode serializes the params values for storage.
func (p *Params) Encode() ([]byte, error) {
	if p.Values == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p.Values)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return data, nil
}

// Settings returns the typed view of the params values.
func (p *Params) Settings() (Settings, error) {
	return ParseSettings(p.Values)
}

// SetLastCheck records the run timestamp, leaving all other keys untouched.
func (p *Params) SetLastCheck(now time.Time) {
	if p.Values == nil {
		p.Values = make(map[string]json.RawMessage)
	}
	p.Values[KeyLastCheck] = json.RawMessage(strconv.FormatInt(now.Unix(), 10))
}
