// Package snapshottest provides an in-memory snapshot.Store and a builder for
// bootstrap-static documents.
package snapshottest

import (
	"context"
	"fmt"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"fpl-cache-api/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handle formats the archive handle for t.
func Handle(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("cache/%d/%d/%d/%02d%02d%s", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), snapshot.Suffix)
}

type Event struct {
	ID       int        `json:"id"`
	Deadline *time.Time `json:"deadline_time"`
}

type Player struct {
	ID          int    `json:"id"`
	Code        int    `json:"code"`
	WebName     string `json:"web_name"`
	TotalPoints int    `json:"total_points"`
}

// Doc renders a minimal bootstrap-static document.
func Doc(events []Event, players []Player) []byte {
	if events == nil {
		events = []Event{}
	}
	if players == nil {
		players = []Player{}
	}
	raw, err := json.Marshal(map[string]any{"events": events, "elements": players})
	if err != nil {
		panic(err)
	}
	return raw
}

// Deadline is shorthand for a UTC deadline pointer.
func Deadline(y int, mo time.Month, d, h, mi int) *time.Time {
	t := time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
	return &t
}

// MemStore is a concurrency-safe snapshot.Store backed by a map.
type MemStore struct {
	mu    sync.Mutex
	docs  map[string][]byte
	loads map[string]int
	Err   error
}

func NewMemStore() *MemStore {
	return &MemStore{docs: map[string][]byte{}, loads: map[string]int{}}
}

// Put stores doc at the handle for t and returns the handle.
func (m *MemStore) Put(t time.Time, doc []byte) string {
	h := Handle(t)
	m.PutHandle(h, doc)
	return h
}

// PutHandle stores doc under an arbitrary handle.
func (m *MemStore) PutHandle(h string, doc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[h] = doc
}

func (m *MemStore) List(ctx context.Context) ([]snapshot.Ref, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	refs := make([]snapshot.Ref, 0, len(m.docs))
	for h := range m.docs {
		ref, err := snapshot.NewRef(h)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	snapshot.SortRefs(refs)
	return refs, nil
}

func (m *MemStore) Load(ctx context.Context, handle string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[handle]
	if !ok {
		return nil, fmt.Errorf("%s: %w", handle, snapshot.ErrMalformed)
	}
	m.loads[handle]++
	return doc, nil
}

// Loads reports how many times handle was loaded.
func (m *MemStore) Loads(handle string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads[handle]
}
