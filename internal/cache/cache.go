// Package cache memoises player time-series for the lifetime of one built
// state. Entries live in a bounded in-process LRU, optionally backed by a
// shared Redis tier.
package cache

import (
	"context"
	"fmt"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"fpl-cache-api/internal/timeseries"
)

const DefaultSize = 512

// ComputeFunc produces the series for code on a miss.
type ComputeFunc func(ctx context.Context, code int) (timeseries.Result, error)

// Tier is a shared cache behind the LRU. Implementations report a miss as
// (nil, false, nil).
type Tier interface {
	Get(ctx context.Context, fingerprint string, code int) (*timeseries.Result, bool, error)
	Set(ctx context.Context, fingerprint string, code int, res timeseries.Result) error
}

// Series is safe for concurrent use. Failed computations are never stored.
type Series struct {
	lru         *lru.Cache[int, timeseries.Result]
	group       singleflight.Group
	tier        Tier
	fingerprint string
}

// New creates a cache holding at most size entries. tier may be nil.
func New(size int, tier Tier, fingerprint string) (*Series, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[int, timeseries.Result](size)
	if err != nil {
		return nil, fmt.Errorf("lru: %w", err)
	}
	return &Series{lru: c, tier: tier, fingerprint: fingerprint}, nil
}

func (s *Series) Len() int { return s.lru.Len() }

// Get returns the cached series for code, computing it at most once across
// concurrent callers.
func (s *Series) Get(ctx context.Context, code int, compute ComputeFunc) (timeseries.Result, error) {
	if res, ok := s.lru.Get(code); ok {
		return res, nil
	}

	v, err, _ := s.group.Do(strconv.Itoa(code), func() (any, error) {
		if res, ok := s.lru.Get(code); ok {
			return res, nil
		}
		if res, ok := s.fromTier(ctx, code); ok {
			s.lru.Add(code, res)
			return res, nil
		}
		res, err := compute(ctx, code)
		if err != nil {
			return nil, err
		}
		s.lru.Add(code, res)
		s.toTier(ctx, code, res)
		return res, nil
	})
	if err != nil {
		return timeseries.Result{}, err
	}
	return v.(timeseries.Result), nil
}

func (s *Series) fromTier(ctx context.Context, code int) (timeseries.Result, bool) {
	if s.tier == nil {
		return timeseries.Result{}, false
	}
	res, ok, err := s.tier.Get(ctx, s.fingerprint, code)
	if err != nil {
		log.Warn().Err(err).Int("player_code", code).Msg("cache tier read failed")
		return timeseries.Result{}, false
	}
	if !ok || res == nil {
		return timeseries.Result{}, false
	}
	return *res, true
}

func (s *Series) toTier(ctx context.Context, code int, res timeseries.Result) {
	if s.tier == nil {
		return
	}
	if err := s.tier.Set(ctx, s.fingerprint, code, res); err != nil {
		log.Warn().Err(err).Int("player_code", code).Msg("cache tier write failed")
	}
}
