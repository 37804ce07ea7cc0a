package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"fpl-cache-api/internal/appstate"
	"fpl-cache-api/internal/directory"
	"fpl-cache-api/internal/timeseries"
)

const (
	ServiceName        = "fpl-cache-api"
	DefaultSearchLimit = 10
)

// Service is the query surface the handlers need.
type Service interface {
	Current() *appstate.State
	Rebuild(ctx context.Context) (*appstate.State, error)
	TimeSeries(ctx context.Context, code int) (timeseries.Result, error)
	Search(q string, limit int) ([]directory.PlayerSummary, error)
	Seasons() ([]appstate.SeasonSummary, error)
	SeasonIndex(name string) (appstate.SeasonSummary, map[int]time.Time, error)
}

type Handler struct {
	svc   Service
	tools []ToolInfo
}

// ToolInfo describes one MCP tool on the /tools listing.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewHandler(svc Service, tools []ToolInfo) *Handler {
	return &Handler{svc: svc, tools: tools}
}

type SearchResponse struct {
	Query   string                    `json:"query"`
	Count   int                       `json:"count"`
	Results []directory.PlayerSummary `json:"results"`
}

type ReadyResponse struct {
	Status    string    `json:"status"`
	BuiltAt   time.Time `json:"built_at"`
	Snapshots int       `json:"snapshots"`
	Players   int       `json:"players"`
	Seasons   []string  `json:"seasons"`
}

type SeasonsResponse struct {
	Seasons []appstate.SeasonSummary `json:"seasons"`
}

type GWSnapshot struct {
	GW         int       `json:"gw"`
	SnapshotTS time.Time `json:"snapshot_ts"`
}

type SeasonIndexResponse struct {
	appstate.SeasonSummary
	Gameweeks []GWSnapshot `json:"gameweeks"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": ServiceName})
}

func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.tools})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Current()
	if st == nil {
		writeServiceError(w, r, appstate.ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, readyFrom(st))
}

func readyFrom(st *appstate.State) ReadyResponse {
	return ReadyResponse{
		Status:    "ready",
		BuiltAt:   st.BuiltAt,
		Snapshots: st.Snapshots,
		Players:   st.Directory.Len(),
		Seasons:   st.Seasons(),
	}
}

func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "q is required")
		return
	}
	limit := DefaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "limit must be an integer")
			return
		}
		limit = n
	}

	results, err := h.svc.Search(q, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Count: len(results), Results: results})
}

func (h *Handler) PlayerTimeSeries(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, ErrCodeInvalidParameter, "player code must be an integer")
		return
	}
	res, err := h.svc.TimeSeries(r.Context(), code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	sums, err := h.svc.Seasons()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SeasonsResponse{Seasons: sums})
}

func (h *Handler) SeasonIndex(w http.ResponseWriter, r *http.Request) {
	sum, times, err := h.svc.SeasonIndex(mux.Vars(r)["season"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SeasonIndexResponse{SeasonSummary: sum, Gameweeks: gwSnapshots(times)})
}

func gwSnapshots(times map[int]time.Time) []GWSnapshot {
	out := make([]GWSnapshot, 0, len(times))
	for gw, ts := range times {
		out = append(out, GWSnapshot{GW: gw, SnapshotTS: ts})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GW < out[j].GW })
	return out
}

func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, ErrCodeInternal, "rebuild failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, readyFrom(st))
}
