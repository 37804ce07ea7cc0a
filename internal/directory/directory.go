// Package directory holds the player lookup table built from the latest
// snapshot and the name search served to clients.
package directory

import (
	"sort"
	"strings"

	"fpl-cache-api/internal/bootstrap"
)

type PlayerSummary struct {
	Code    int    `json:"code"`
	ID      int    `json:"id"`
	WebName string `json:"web_name"`
}

// Directory is read-only after Build.
type Directory struct {
	players []PlayerSummary
	byCode  map[int]int
}

// Build indexes elements by code in source order. A repeated code replaces the
// earlier record in place.
func Build(s *bootstrap.Static) *Directory {
	d := &Directory{byCode: make(map[int]int)}
	if s == nil {
		return d
	}
	for _, el := range s.Elements {
		p := PlayerSummary{Code: el.Code, ID: el.ID, WebName: el.WebName}
		if i, ok := d.byCode[el.Code]; ok {
			d.players[i] = p
			continue
		}
		d.byCode[el.Code] = len(d.players)
		d.players = append(d.players, p)
	}
	return d
}

func (d *Directory) Len() int { return len(d.players) }

func (d *Directory) Lookup(code int) (PlayerSummary, bool) {
	i, ok := d.byCode[code]
	if !ok {
		return PlayerSummary{}, false
	}
	return d.players[i], true
}

// Search matches q case-insensitively against web names. Prefix matches sort
// first, then by lower-cased name; ties keep directory order.
func Search(d *Directory, q string, limit int) []PlayerSummary {
	out := []PlayerSummary{}
	if d == nil || limit <= 0 {
		return out
	}
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return out
	}

	type hit struct {
		p      PlayerSummary
		lower  string
		prefix bool
	}
	var hits []hit
	for _, p := range d.players {
		lower := strings.ToLower(p.WebName)
		if strings.Contains(lower, needle) {
			hits = append(hits, hit{p: p, lower: lower, prefix: strings.HasPrefix(lower, needle)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].prefix != hits[j].prefix {
			return hits[i].prefix
		}
		return hits[i].lower < hits[j].lower
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	for _, h := range hits {
		out = append(out, h.p)
	}
	return out
}
