// Package appstate owns the built, read-only view of the snapshot archive and
// the query operations served on top of it.
package appstate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"fpl-cache-api/internal/bootstrap"
	"fpl-cache-api/internal/directory"
	"fpl-cache-api/internal/gwindex"
	"fpl-cache-api/internal/season"
	"fpl-cache-api/internal/snapshot"
)

var (
	ErrNoSnapshots = errors.New("no snapshots in archive")
	ErrNotReady    = errors.New("state not built")
	ErrNotFound    = errors.New("not found")
)

// State is immutable once Build returns and may be shared freely.
type State struct {
	Indices   map[string]gwindex.Index
	Directory *directory.Directory
	Snapshots int
	Latest    snapshot.Ref
	BuiltAt   time.Time

	load bootstrap.LoadFunc
}

// Build lists the archive, indexes every season and builds the player
// directory from the most recent snapshot.
func Build(ctx context.Context, store snapshot.Store, seasons []season.Window) (*State, error) {
	refs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	if len(refs) == 0 {
		return nil, ErrNoSnapshots
	}
	snapshot.SortRefs(refs)

	load := bootstrap.StoreLoader(store)
	indices, err := gwindex.BuildAll(ctx, seasons, refs, load)
	if err != nil {
		return nil, err
	}

	latest := refs[len(refs)-1]
	static, err := load(ctx, latest.Handle)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	return &State{
		Indices:   indices,
		Directory: directory.Build(static),
		Snapshots: len(refs),
		Latest:    latest,
		BuiltAt:   time.Now().UTC(),
		load:      load,
	}, nil
}

// Fingerprint identifies the archive contents a state was built from. Cached
// results are only valid for the fingerprint they were computed under.
func (s *State) Fingerprint() string {
	return fmt.Sprintf("n%d-%s", s.Snapshots, s.Latest.Time.Format("200601021504"))
}

// Seasons returns the indexed season names in order.
func (s *State) Seasons() []string {
	out := make([]string, 0, len(s.Indices))
	for name := range s.Indices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
