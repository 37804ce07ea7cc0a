package appstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"fpl-cache-api/internal/snapshot"
	"fpl-cache-api/internal/snapshot/snapshottest"
)

func at(y int, mo time.Month, d, h, mi int) time.Time {
	return time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
}

type fixture struct {
	store *snapshottest.MemStore
	early string
	gw1   string
	gw2   string
	next  string
}

// newFixture lays out two seasons. Player 123 scores 10, 12 then 5 in the new
// season; player 888 only appears in an off-season snapshot.
func newFixture(t *testing.T) fixture {
	t.Helper()
	events23 := []snapshottest.Event{
		{ID: 1, Deadline: snapshottest.Deadline(2023, 8, 11, 18, 30)},
		{ID: 2, Deadline: snapshottest.Deadline(2023, 8, 18, 18, 30)},
	}
	events24 := []snapshottest.Event{
		{ID: 1, Deadline: snapshottest.Deadline(2024, 8, 16, 18, 30)},
	}
	st := snapshottest.NewMemStore()
	f := fixture{store: st}
	f.early = st.Put(at(2023, 8, 10, 12, 0), snapshottest.Doc(events23, []snapshottest.Player{
		{ID: 1, Code: 123, WebName: "Salah", TotalPoints: 0},
		{ID: 2, Code: 200, WebName: "Saka", TotalPoints: 0},
	}))
	f.gw1 = st.Put(at(2023, 8, 18, 18, 29), snapshottest.Doc(events23, []snapshottest.Player{
		{ID: 1, Code: 123, WebName: "Salah", TotalPoints: 10},
	}))
	f.gw2 = st.Put(at(2023, 8, 31, 0, 0), snapshottest.Doc(events23, []snapshottest.Player{
		{ID: 1, Code: 123, WebName: "Salah", TotalPoints: 12},
		{ID: 2, Code: 200, WebName: "Saka", TotalPoints: 5},
	}))
	f.next = st.Put(at(2024, 8, 20, 9, 0), snapshottest.Doc(events24, []snapshottest.Player{
		{ID: 1, Code: 123, WebName: "Salah", TotalPoints: 5},
	}))
	st.Put(at(2025, 7, 15, 0, 0), snapshottest.Doc(nil, []snapshottest.Player{
		{ID: 1, Code: 123, WebName: "M.Salah"},
		{ID: 2, Code: 200, WebName: "Saka"},
		{ID: 3, Code: 888, WebName: "Newcomer"},
	}))
	return f
}

func TestServiceNotReady(t *testing.T) {
	s := NewService(snapshottest.NewMemStore())
	if s.Current() != nil {
		t.Fatal("Current should be nil before a build")
	}
	if _, err := s.TimeSeries(context.Background(), 1); !errors.Is(err, ErrNotReady) {
		t.Errorf("TimeSeries err=%v want ErrNotReady", err)
	}
	if _, err := s.Search("a", 5); !errors.Is(err, ErrNotReady) {
		t.Errorf("Search err=%v want ErrNotReady", err)
	}
	if _, err := s.Seasons(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Seasons err=%v want ErrNotReady", err)
	}
	if _, _, err := s.SeasonIndex("2023-24"); !errors.Is(err, ErrNotReady) {
		t.Errorf("SeasonIndex err=%v want ErrNotReady", err)
	}
}

func TestRebuildEmptyArchive(t *testing.T) {
	s := NewService(snapshottest.NewMemStore())
	if _, err := s.Rebuild(context.Background()); !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("err=%v want ErrNoSnapshots", err)
	}
	if s.Current() != nil {
		t.Error("failed build must not install a state")
	}
}

func TestRebuildAndTimeSeries(t *testing.T) {
	f := newFixture(t)
	s := NewService(f.store, WithCacheSize(8))
	st, err := s.Rebuild(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Snapshots != 5 {
		t.Errorf("snapshots=%d want 5", st.Snapshots)
	}
	if got := st.Indices["2023-24"]; got[1] != f.gw1 || got[2] != f.gw2 {
		t.Errorf("2023-24 index=%v", got)
	}
	if got := st.Indices["2024-25"]; got[1] != f.next {
		t.Errorf("2024-25 index=%v", got)
	}
	if f.store.Loads(f.gw1) != 0 {
		t.Errorf("index build should only read the earliest snapshot per season")
	}

	res, err := s.TimeSeries(context.Background(), 123)
	if err != nil {
		t.Fatal(err)
	}
	if res.PlayerName == nil || *res.PlayerName != "Salah" {
		t.Errorf("name=%v want Salah", res.PlayerName)
	}
	want := []struct {
		season       string
		gw, v, delta int
	}{
		{"2023-24", 1, 10, 10},
		{"2023-24", 2, 12, 2},
		{"2024-25", 1, 5, 5},
	}
	if len(res.Points) != len(want) {
		t.Fatalf("points=%d want %d", len(res.Points), len(want))
	}
	for i, w := range want {
		p := res.Points[i]
		if p.Season != w.season || p.GW != w.gw || *p.Value != w.v || *p.Delta != w.delta {
			t.Errorf("points[%d]=%s/%d %d %d want %+v", i, p.Season, p.GW, *p.Value, *p.Delta, w)
		}
	}

	loads := f.store.Loads(f.gw2)
	if _, err := s.TimeSeries(context.Background(), 123); err != nil {
		t.Fatal(err)
	}
	if f.store.Loads(f.gw2) != loads {
		t.Error("second request should be served from cache")
	}
}

func TestTimeSeriesNotFound(t *testing.T) {
	f := newFixture(t)
	s := NewService(f.store)
	if _, err := s.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.TimeSeries(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code err=%v want ErrNotFound", err)
	}
	// In the directory, but never inside a season window.
	if _, err := s.TimeSeries(context.Background(), 888); !errors.Is(err, ErrNotFound) {
		t.Errorf("all-absent series err=%v want ErrNotFound", err)
	}
	// 200 is missing from the new season's snapshot but has earlier values.
	if _, err := s.TimeSeries(context.Background(), 200); err != nil {
		t.Errorf("code 200 err=%v", err)
	}
}

func TestTimeSeriesMalformedSnapshot(t *testing.T) {
	f := newFixture(t)
	s := NewService(f.store)
	if _, err := s.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.store.PutHandle(f.gw2, []byte(`{"events": []}`))
	if _, err := s.TimeSeries(context.Background(), 200); !errors.Is(err, snapshot.ErrMalformed) {
		t.Errorf("err=%v want ErrMalformed", err)
	}
}

func TestRebuildFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	s := NewService(f.store)
	first, err := s.Rebuild(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	f.store.Err = snapshot.ErrStoreUnavailable
	if _, err := s.Rebuild(context.Background()); !errors.Is(err, snapshot.ErrStoreUnavailable) {
		t.Fatalf("err=%v want ErrStoreUnavailable", err)
	}
	if s.Current() != first {
		t.Error("previous state should stay live after a failed rebuild")
	}
}

// ctxStore fails any call made with a done context.
type ctxStore struct {
	*snapshottest.MemStore
	deadline bool
}

func (c *ctxStore) List(ctx context.Context) ([]snapshot.Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, c.deadline = ctx.Deadline()
	return c.MemStore.List(ctx)
}

func (c *ctxStore) Load(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.MemStore.Load(ctx, handle)
}

func TestRebuildSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t)
	cs := &ctxStore{MemStore: f.store}
	s := NewService(cs, WithRebuildTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild with cancelled caller: %v", err)
	}
	if s.Current() == nil {
		t.Fatal("state not installed")
	}
	if !cs.deadline {
		t.Error("build context should carry the rebuild timeout")
	}
}

func TestRebuildTimeout(t *testing.T) {
	f := newFixture(t)
	s := NewService(&ctxStore{MemStore: f.store}, WithRebuildTimeout(-time.Second))
	if _, err := s.Rebuild(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want DeadlineExceeded", err)
	}
	if s.Current() != nil {
		t.Error("timed-out build must not install a state")
	}
}

func TestSearchAndSeasons(t *testing.T) {
	f := newFixture(t)
	s := NewService(f.store)
	if _, err := s.Rebuild(context.Background()); err != nil {
		t.Fatal(err)
	}

	hits, err := s.Search("new", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Code != 888 {
		t.Errorf("hits=%+v", hits)
	}

	sums, err := s.Seasons()
	if err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 || sums[0].Season != "2023-24" || sums[1].Season != "2024-25" {
		t.Fatalf("seasons=%+v", sums)
	}
	if sums[0].GWCount != 2 || *sums[0].MaxGW != 2 {
		t.Errorf("2023-24 summary=%+v", sums[0])
	}

	sum, times, err := s.SeasonIndex("2023-24")
	if err != nil {
		t.Fatal(err)
	}
	if sum.GWCount != 2 || !times[1].Equal(at(2023, 8, 18, 18, 29)) {
		t.Errorf("summary=%+v times=%v", sum, times)
	}
	if _, _, err := s.SeasonIndex("1999-00"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown season err=%v want ErrNotFound", err)
	}
}
