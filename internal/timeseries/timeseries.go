// Package timeseries walks the per-season gameweek indices for one player and
// produces a cumulative total_points series with season-scoped deltas.
package timeseries

import (
	"context"
	"fmt"
	"sort"

	"fpl-cache-api/internal/bootstrap"
	"fpl-cache-api/internal/gwindex"
)

const StatTotalPoints = "total_points"

// Point is the player's value at one (season, gameweek). Value is nil when the
// player is absent from that gameweek's snapshot.
type Point struct {
	Season string `json:"season"`
	GW     int    `json:"gw"`
	Value  *int   `json:"value"`
	Delta  *int   `json:"delta"`
}

type Result struct {
	PlayerCode int     `json:"player_code"`
	PlayerName *string `json:"player_name"`
	Stat       string  `json:"stat"`
	Points     []Point `json:"points"`
}

// HasValues reports whether any point carries a value.
func (r Result) HasValues() bool {
	for _, p := range r.Points {
		if p.Value != nil {
			return true
		}
	}
	return false
}

// Build emits one point per indexed gameweek, seasons in lexicographic order
// and gameweeks ascending. The delta cursor resets at each season start and is
// overwritten after every point, so a gap makes the next present value's
// delta equal to its value.
func Build(ctx context.Context, code int, indices map[string]gwindex.Index, load bootstrap.LoadFunc) (Result, error) {
	seasons := make([]string, 0, len(indices))
	for name := range indices {
		seasons = append(seasons, name)
	}
	sort.Strings(seasons)

	res := Result{PlayerCode: code, Stat: StatTotalPoints, Points: []Point{}}
	for _, name := range seasons {
		idx := indices[name]
		var prev *int
		for _, gw := range idx.Gameweeks() {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			static, err := load(ctx, idx[gw])
			if err != nil {
				return Result{}, fmt.Errorf("season %s gw %d: %w", name, gw, err)
			}

			var value *int
			if el, ok := static.FindByCode(code); ok {
				v := el.TotalPoints
				value = &v
				if res.PlayerName == nil {
					n := el.WebName
					res.PlayerName = &n
				}
			}
			res.Points = append(res.Points, Point{
				Season: name,
				GW:     gw,
				Value:  value,
				Delta:  delta(value, prev),
			})
			prev = value
		}
	}
	return res, nil
}

func delta(value, prev *int) *int {
	switch {
	case value == nil:
		return nil
	case prev == nil:
		d := *value
		return &d
	default:
		d := *value - *prev
		return &d
	}
}
