// Package gwindex maps each gameweek of a season onto the single archived
// snapshot that best represents the state of the game at that gameweek's close.
//
// bootstrap-static is a point-in-time capture, so the value for gameweek i is
// approximated by the latest snapshot taken strictly before gameweek i+1's
// deadline. The final gameweek has no following deadline and takes the last
// snapshot in the season window.
package gwindex

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fpl-cache-api/internal/bootstrap"
	"fpl-cache-api/internal/season"
	"fpl-cache-api/internal/snapshot"
)

// Index maps gameweek id to a snapshot handle. Gameweeks without a qualifying
// snapshot are absent.
type Index map[int]string

// Gameweeks returns the indexed gameweek ids in ascending order.
func (idx Index) Gameweeks() []int {
	gws := make([]int, 0, len(idx))
	for gw := range idx {
		gws = append(gws, gw)
	}
	sort.Ints(gws)
	return gws
}

// Build selects one snapshot per gameweek for w. Only the earliest snapshot in
// the window is read; its event list is taken as the season schedule.
func Build(ctx context.Context, w season.Window, snapshots []snapshot.Ref, load bootstrap.LoadFunc) (Index, error) {
	window := make([]snapshot.Ref, 0, len(snapshots))
	for _, ref := range snapshots {
		if w.Contains(ref.Time) {
			window = append(window, ref)
		}
	}
	if len(window) == 0 {
		return Index{}, nil
	}
	snapshot.SortRefs(window)

	first, err := load(ctx, window[0].Handle)
	if err != nil {
		return nil, fmt.Errorf("season %s: schedule: %w", w.Name, err)
	}

	events := make([]bootstrap.Event, 0, len(first.Events))
	for _, ev := range first.Events {
		if ev.DeadlineTime != nil {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return Index{}, nil
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].ID < events[j].ID })

	idx := make(Index, len(events))
	for i := 0; i < len(events)-1; i++ {
		if handle, ok := latestBefore(window, *events[i+1].DeadlineTime); ok {
			idx[events[i].ID] = handle
		}
	}
	idx[events[len(events)-1].ID] = window[len(window)-1].Handle
	return idx, nil
}

// latestBefore returns the last handle in sorted refs with time < cutoff.
func latestBefore(refs []snapshot.Ref, cutoff time.Time) (string, bool) {
	n := sort.Search(len(refs), func(i int) bool { return !refs[i].Time.Before(cutoff) })
	if n == 0 {
		return "", false
	}
	return refs[n-1].Handle, true
}

// BuildAll builds an index for every window. Windows are built concurrently;
// the first failure cancels the rest and is returned.
func BuildAll(ctx context.Context, windows []season.Window, snapshots []snapshot.Ref, load bootstrap.LoadFunc) (map[string]Index, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]Index, len(windows))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range windows {
		g.Go(func() error {
			idx, err := Build(gctx, w, snapshots, load)
			if err != nil {
				return err
			}
			mu.Lock()
			out[w.Name] = idx
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Summary is a short description of a built index.
type Summary struct {
	GWCount         int        `json:"gw_count"`
	MinGW           *int       `json:"min_gw"`
	MaxGW           *int       `json:"max_gw"`
	FirstSnapshotTS *time.Time `json:"first_snapshot_ts"`
	LastSnapshotTS  *time.Time `json:"last_snapshot_ts"`
}

// Summarize reports gameweek bounds and the range of mapped snapshot times.
// Timestamps are re-derived from the handles; they need not be monotonic in
// gameweek order.
func Summarize(idx Index) (Summary, error) {
	if len(idx) == 0 {
		return Summary{}, nil
	}
	gws := idx.Gameweeks()
	times := make([]time.Time, 0, len(gws))
	for _, gw := range gws {
		ts, err := snapshot.ParseTimestamp(idx[gw])
		if err != nil {
			return Summary{}, err
		}
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	minGW, maxGW := gws[0], gws[len(gws)-1]
	first, last := times[0], times[len(times)-1]
	return Summary{
		GWCount:         len(gws),
		MinGW:           &minGW,
		MaxGW:           &maxGW,
		FirstSnapshotTS: &first,
		LastSnapshotTS:  &last,
	}, nil
}
