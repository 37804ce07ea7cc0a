package gwindex

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"fpl-cache-api/internal/bootstrap"
	"fpl-cache-api/internal/season"
	"fpl-cache-api/internal/snapshot"
)

func ts(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

// ref builds a Ref whose handle encodes its own timestamp.
func ref(t time.Time) snapshot.Ref {
	return snapshot.Ref{
		Time:   t,
		Handle: fmt.Sprintf("cache/%d/%d/%d/%02d%02d.json.xz", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute()),
	}
}

func event(id int, deadline time.Time) bootstrap.Event {
	d := deadline
	return bootstrap.Event{ID: id, DeadlineTime: &d}
}

// scheduleLoader returns the same schedule for every handle and records calls.
type scheduleLoader struct {
	mu     sync.Mutex
	events []bootstrap.Event
	calls  []string
	err    error
}

func (l *scheduleLoader) load(ctx context.Context, handle string) (*bootstrap.Static, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, handle)
	if l.err != nil {
		return nil, l.err
	}
	return &bootstrap.Static{Events: l.events}, nil
}

func twoGWs() []bootstrap.Event {
	return []bootstrap.Event{
		event(1, ts(2023, 8, 11, 18, 30)),
		event(2, ts(2023, 8, 18, 18, 30)),
	}
}

func TestBuild_SelectsLatestBeforeNextDeadline(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	p1 := ref(ts(2023, 8, 10, 12, 0))
	p2 := ref(ts(2023, 8, 18, 18, 29))
	p3 := ref(ts(2023, 8, 18, 18, 31))
	p4 := ref(ts(2023, 8, 31, 0, 0))

	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{p1, p2, p3, p4}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	want := Index{1: p2.Handle, 2: p4.Handle}
	if !reflect.DeepEqual(idx, want) {
		t.Fatalf("idx=%v want %v", idx, want)
	}
	if len(l.calls) != 1 || l.calls[0] != p1.Handle {
		t.Errorf("loaded %v, want only the earliest snapshot %s", l.calls, p1.Handle)
	}
}

func TestBuild_OmitsGWWithoutSnapshotBeforeDeadline(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	after := ref(ts(2023, 8, 18, 18, 31))

	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{after}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx[1]; ok {
		t.Errorf("gw1 should be omitted, got %v", idx)
	}
	if idx[2] != after.Handle {
		t.Errorf("gw2=%q want %q", idx[2], after.Handle)
	}
}

func TestBuild_SnapshotAtDeadlineIsExcluded(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	before := ref(ts(2023, 8, 15, 9, 0))
	at := ref(ts(2023, 8, 18, 18, 30))

	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{before, at}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if idx[1] != before.Handle {
		t.Errorf("gw1=%q want %q (strictly before deadline)", idx[1], before.Handle)
	}
}

func TestBuild_LastGWIgnoresDeadline(t *testing.T) {
	events := []bootstrap.Event{
		event(1, ts(2023, 8, 11, 18, 30)),
		event(2, ts(2023, 8, 18, 18, 30)),
		event(38, ts(2024, 5, 19, 13, 30)),
	}
	l := &scheduleLoader{events: events}
	early := ref(ts(2023, 8, 2, 0, 0))
	late := ref(ts(2024, 6, 30, 23, 59))

	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{late, early}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if idx[38] != late.Handle {
		t.Errorf("gw38=%q want chronologically last %q", idx[38], late.Handle)
	}
	if idx[1] != early.Handle {
		t.Errorf("gw1=%q want %q", idx[1], early.Handle)
	}
	// gw2's boundary is gw38's deadline, so it also resolves to the early snapshot.
	if idx[2] != early.Handle {
		t.Errorf("gw2=%q want %q", idx[2], early.Handle)
	}
}

func TestBuild_FiltersToSeasonWindow(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	prevSeason := ref(ts(2023, 7, 31, 23, 59))
	inside := ref(ts(2023, 8, 10, 12, 0))
	nextSeason := ref(ts(2024, 8, 5, 0, 0))

	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{nextSeason, inside, prevSeason}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	for gw, h := range idx {
		tsv, err := snapshot.ParseTimestamp(h)
		if err != nil {
			t.Fatal(err)
		}
		if !season.Season2023_24.Contains(tsv) {
			t.Errorf("gw%d mapped outside the window: %s", gw, h)
		}
	}
	if l.calls[0] != inside.Handle {
		t.Errorf("schedule read from %s, want %s", l.calls[0], inside.Handle)
	}
}

func TestBuild_EmptyWindow(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	idx, err := Build(context.Background(), season.Season2024_25, []snapshot.Ref{ref(ts(2023, 9, 1, 0, 0))}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 0 {
		t.Errorf("idx=%v want empty", idx)
	}
	if len(l.calls) != 0 {
		t.Errorf("no snapshot should be loaded, got %v", l.calls)
	}
}

func TestBuild_NoDeadlines(t *testing.T) {
	l := &scheduleLoader{events: []bootstrap.Event{{ID: 1}, {ID: 2}}}
	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{ref(ts(2023, 9, 1, 0, 0))}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 0 {
		t.Errorf("idx=%v want empty", idx)
	}
}

func TestBuild_SingleSnapshotSingleGW(t *testing.T) {
	l := &scheduleLoader{events: []bootstrap.Event{event(1, ts(2023, 8, 11, 18, 30))}}
	only := ref(ts(2023, 8, 20, 0, 0))
	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{only}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(idx, Index{1: only.Handle}) {
		t.Errorf("idx=%v", idx)
	}
}

func TestBuild_UnsortedEventsAndNullDeadlines(t *testing.T) {
	events := []bootstrap.Event{
		event(2, ts(2023, 8, 18, 18, 30)),
		{ID: 3},
		event(1, ts(2023, 8, 11, 18, 30)),
	}
	l := &scheduleLoader{events: events}
	a := ref(ts(2023, 8, 12, 0, 0))
	b := ref(ts(2023, 8, 25, 0, 0))
	idx, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{a, b}, l.load)
	if err != nil {
		t.Fatal(err)
	}
	want := Index{1: a.Handle, 2: b.Handle}
	if !reflect.DeepEqual(idx, want) {
		t.Errorf("idx=%v want %v", idx, want)
	}
}

func TestBuild_MalformedScheduleIsFatal(t *testing.T) {
	l := &scheduleLoader{err: fmt.Errorf("%w: events missing", snapshot.ErrMalformed)}
	_, err := Build(context.Background(), season.Season2023_24, []snapshot.Ref{ref(ts(2023, 9, 1, 0, 0))}, l.load)
	if !errors.Is(err, snapshot.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	refs := []snapshot.Ref{
		ref(ts(2023, 8, 10, 12, 0)),
		ref(ts(2023, 8, 18, 18, 29)),
		ref(ts(2023, 8, 31, 0, 0)),
	}
	a, err := Build(context.Background(), season.Season2023_24, refs, l.load)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(context.Background(), season.Season2023_24, refs, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("first=%v second=%v", a, b)
	}
}

func TestBuildAll(t *testing.T) {
	l := &scheduleLoader{events: twoGWs()}
	refs := []snapshot.Ref{
		ref(ts(2023, 8, 10, 12, 0)),
		ref(ts(2024, 8, 10, 12, 0)),
	}
	all, err := BuildAll(context.Background(), season.All(), refs, l.load)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all)=%d want 2", len(all))
	}
	if all["2023-24"][2] != refs[0].Handle {
		t.Errorf("2023-24 gw2=%q", all["2023-24"][2])
	}
	if all["2024-25"][2] != refs[1].Handle {
		t.Errorf("2024-25 gw2=%q", all["2024-25"][2])
	}
}

func TestBuildAll_PropagatesError(t *testing.T) {
	l := &scheduleLoader{err: snapshot.ErrMalformed}
	_, err := BuildAll(context.Background(), season.All(), []snapshot.Ref{ref(ts(2024, 8, 10, 12, 0))}, l.load)
	if !errors.Is(err, snapshot.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
}

func TestSummarize(t *testing.T) {
	empty, err := Summarize(Index{})
	if err != nil {
		t.Fatal(err)
	}
	if empty.GWCount != 0 || empty.MinGW != nil || empty.MaxGW != nil || empty.FirstSnapshotTS != nil || empty.LastSnapshotTS != nil {
		t.Errorf("empty summary=%+v", empty)
	}

	// gw1 mapped to a later snapshot than gw2: timestamps are still min/max.
	idx := Index{
		1: ref(ts(2023, 9, 1, 0, 0)).Handle,
		2: ref(ts(2023, 8, 20, 0, 0)).Handle,
		5: ref(ts(2023, 10, 1, 6, 15)).Handle,
	}
	s, err := Summarize(idx)
	if err != nil {
		t.Fatal(err)
	}
	if s.GWCount != 3 || *s.MinGW != 1 || *s.MaxGW != 5 {
		t.Errorf("summary=%+v", s)
	}
	if !s.FirstSnapshotTS.Equal(ts(2023, 8, 20, 0, 0)) {
		t.Errorf("first=%v", s.FirstSnapshotTS)
	}
	if !s.LastSnapshotTS.Equal(ts(2023, 10, 1, 6, 15)) {
		t.Errorf("last=%v", s.LastSnapshotTS)
	}
}

func TestSummarize_MalformedHandle(t *testing.T) {
	_, err := Summarize(Index{1: "cache/2023/9/1/nope.json.xz"})
	if !errors.Is(err, snapshot.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
}
