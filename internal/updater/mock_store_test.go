package updater

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/adverthide/internal/model"
	"github.com/alfredjeanlab/adverthide/internal/store"
)

// mockItem is a content row together with its two custom field values, in
// the text form the host stores them.
type mockItem struct {
	model.Content
	advertising string
	hiding      string
}

// mockStore is a minimal in-memory store for updater tests. Its candidate
// filter mirrors the SQL predicate.
type mockStore struct {
	mu      sync.Mutex
	params  map[string]json.RawMessage
	fields  map[string]int64
	items   map[int64]*mockItem
	calls   []string
	updates [][]int64
	saves   int

	loadErr   error
	saveErr   error
	fieldErr  error
	selectErr error
	updateErr error

	// afterSelect runs once candidates are computed, standing in for a
	// concurrent writer.
	afterSelect func()
}

var _ store.Store = (*mockStore)(nil)

func newMockStore(params string) *mockStore {
	values, err := model.DecodeParams([]byte(params))
	if err != nil {
		panic(err)
	}
	return &mockStore{
		params: values,
		fields: map[string]int64{model.FieldAdvertising: 1, model.FieldHiding: 2},
		items:  make(map[int64]*mockItem),
	}
}

// addAdvert adds a published, public (access 1) advertising item.
func (m *mockStore) addAdvert(id, catid int64, hide string, publishUp *time.Time) {
	m.items[id] = &mockItem{
		Content:     model.Content{ID: id, Access: 1, State: model.StatePublished, CatID: catid, PublishUp: publishUp},
		advertising: "1",
		hiding:      hide,
	}
}

func (m *mockStore) record(call string) {
	m.calls = append(m.calls, call)
}

func (m *mockStore) callCount(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockStore) access(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Access
}

func (m *mockStore) lastCheck() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	_ = json.Unmarshal(m.params[model.KeyLastCheck], &n)
	return n
}

func (m *mockStore) setParam(key, raw string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params[key] = json.RawMessage(raw)
}

func (m *mockStore) LoadParams(_ context.Context, element, folder string) (*model.Params, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("LoadParams")
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	values := make(map[string]json.RawMessage, len(m.params))
	for k, v := range m.params {
		values[k] = v
	}
	return &model.Params{Element: element, Folder: folder, Values: values}, nil
}

func (m *mockStore) SaveParams(_ context.Context, p *model.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SaveParams")
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.params = make(map[string]json.RawMessage, len(p.Values))
	for k, v := range p.Values {
		m.params[k] = v
	}
	return nil
}

func (m *mockStore) FieldID(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FieldID")
	if m.fieldErr != nil {
		return 0, m.fieldErr
	}
	id, ok := m.fields[name]
	if !ok {
		return 0, sql.ErrNoRows
	}
	return id, nil
}

func (m *mockStore) SelectCandidates(ctx context.Context, q model.CandidateQuery) ([]model.Candidate, error) {
	out, err := m.selectCandidates(q)
	if m.afterSelect != nil {
		m.afterSelect()
	}
	return out, err
}

func (m *mockStore) selectCandidates(q model.CandidateQuery) ([]model.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SelectCandidates")
	if m.selectErr != nil {
		return nil, m.selectErr
	}

	cats := make(map[int64]bool, len(q.Categories))
	for _, c := range q.Categories {
		cats[c] = true
	}
	before := q.HideBefore.UTC().Format("2006-01-02 15:04:05")

	var out []model.Candidate
	for _, it := range m.items {
		if it.Access != q.PublicGroup || it.State != model.StatePublished {
			continue
		}
		if len(cats) > 0 && !cats[it.CatID] {
			continue
		}
		if it.advertising != "1" {
			continue
		}
		if it.hiding == "" || it.hiding == "0000-00-00 00:00:00" || it.hiding > before {
			continue
		}
		out = append(out, model.Candidate{ID: it.ID, PublishUp: it.PublishUp})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PublishUp, out[j].PublishUp
		switch {
		case a == nil && b == nil:
			return out[i].ID < out[j].ID
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *mockStore) UpdateAccess(_ context.Context, ids []int64, from, to int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateAccess")
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updates = append(m.updates, append([]int64(nil), ids...))
	var changed []int64
	for _, id := range ids {
		if it, ok := m.items[id]; ok && it.Access == from {
			it.Access = to
			changed = append(changed, id)
		}
	}
	return changed, nil
}

func (m *mockStore) RestoreAccess(_ context.Context, q model.RestoreQuery) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RestoreAccess")
	var n int64
	for _, it := range m.items {
		if it.Access == q.From && it.advertising == "1" {
			it.Access = q.To
			n++
		}
	}
	return n, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error {
	return nil
}
