package appstate

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"fpl-cache-api/internal/cache"
	"fpl-cache-api/internal/directory"
	"fpl-cache-api/internal/gwindex"
	"fpl-cache-api/internal/season"
	"fpl-cache-api/internal/snapshot"
	"fpl-cache-api/internal/timeseries"
)

type built struct {
	state *State
	cache *cache.Series
}

// Service holds the current State and answers queries against it. A rebuild
// swaps in a new State and a fresh cache together.
type Service struct {
	store     snapshot.Store
	seasons   []season.Window
	cacheSize int
	tier      cache.Tier
	timeout   time.Duration

	cur   atomic.Pointer[built]
	group singleflight.Group
}

// DefaultRebuildTimeout bounds one full archive scan.
const DefaultRebuildTimeout = 10 * time.Minute

type Option func(*Service)

func WithCacheSize(n int) Option { return func(s *Service) { s.cacheSize = n } }

// WithTier backs every per-state cache with a shared tier.
func WithTier(t cache.Tier) Option { return func(s *Service) { s.tier = t } }

func WithSeasons(ws []season.Window) Option { return func(s *Service) { s.seasons = ws } }

func WithRebuildTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

func NewService(store snapshot.Store, opts ...Option) *Service {
	s := &Service{store: store, seasons: season.All(), cacheSize: cache.DefaultSize, timeout: DefaultRebuildTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the live state, or nil before the first successful build.
func (s *Service) Current() *State {
	if b := s.cur.Load(); b != nil {
		return b.state
	}
	return nil
}

// Rebuild constructs a new State and installs it on success. On failure the
// previous state stays live. Concurrent calls share one build, which runs
// detached from the caller's cancellation and is bounded by the rebuild
// timeout instead.
func (s *Service) Rebuild(ctx context.Context) (*State, error) {
	v, err, shared := s.group.Do("rebuild", func() (any, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		start := time.Now()
		st, err := Build(bctx, s.store, s.seasons)
		if err != nil {
			return nil, err
		}
		c, err := cache.New(s.cacheSize, s.tier, st.Fingerprint())
		if err != nil {
			return nil, err
		}
		s.cur.Store(&built{state: st, cache: c})
		log.Info().
			Int("snapshots", st.Snapshots).
			Int("seasons", len(st.Indices)).
			Int("players", st.Directory.Len()).
			Str("fingerprint", st.Fingerprint()).
			Dur("took", time.Since(start)).
			Msg("state built")
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("rebuild joined an in-flight build")
	}
	return v.(*State), nil
}

// TimeSeries returns the memoised series for code. Unknown codes and series
// with no values at all are ErrNotFound.
func (s *Service) TimeSeries(ctx context.Context, code int) (timeseries.Result, error) {
	b := s.cur.Load()
	if b == nil {
		return timeseries.Result{}, ErrNotReady
	}
	if _, ok := b.state.Directory.Lookup(code); !ok {
		return timeseries.Result{}, fmt.Errorf("player %d: %w", code, ErrNotFound)
	}
	st := b.state
	res, err := b.cache.Get(ctx, code, func(ctx context.Context, code int) (timeseries.Result, error) {
		return timeseries.Build(ctx, code, st.Indices, st.load)
	})
	if err != nil {
		return timeseries.Result{}, err
	}
	if !res.HasValues() {
		return timeseries.Result{}, fmt.Errorf("player %d has no values: %w", code, ErrNotFound)
	}
	return res, nil
}

func (s *Service) Search(q string, limit int) ([]directory.PlayerSummary, error) {
	st := s.Current()
	if st == nil {
		return nil, ErrNotReady
	}
	return directory.Search(st.Directory, q, limit), nil
}

type SeasonSummary struct {
	Season string `json:"season"`
	gwindex.Summary
}

// Seasons summarises every indexed season.
func (s *Service) Seasons() ([]SeasonSummary, error) {
	st := s.Current()
	if st == nil {
		return nil, ErrNotReady
	}
	out := make([]SeasonSummary, 0, len(st.Indices))
	for _, name := range st.Seasons() {
		sum, err := gwindex.Summarize(st.Indices[name])
		if err != nil {
			return nil, fmt.Errorf("season %s: %w", name, err)
		}
		out = append(out, SeasonSummary{Season: name, Summary: sum})
	}
	return out, nil
}

// SeasonIndex returns the summary and the gameweek to snapshot time mapping
// for one season.
func (s *Service) SeasonIndex(name string) (SeasonSummary, map[int]time.Time, error) {
	st := s.Current()
	if st == nil {
		return SeasonSummary{}, nil, ErrNotReady
	}
	idx, ok := st.Indices[name]
	if !ok {
		return SeasonSummary{}, nil, fmt.Errorf("season %q: %w", name, ErrNotFound)
	}
	sum, err := gwindex.Summarize(idx)
	if err != nil {
		return SeasonSummary{}, nil, fmt.Errorf("season %s: %w", name, err)
	}
	times := make(map[int]time.Time, len(idx))
	for gw, handle := range idx {
		ts, err := snapshot.ParseTimestamp(handle)
		if err != nil {
			return SeasonSummary{}, nil, fmt.Errorf("season %s gw %d: %w", name, gw, err)
		}
		times[gw] = ts
	}
	return SeasonSummary{Season: name, Summary: sum}, times, nil
}
