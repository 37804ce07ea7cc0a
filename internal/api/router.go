// Package api exposes the historical stats service over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	APIKey     string
	AuthHeader string
	AccessLog  zerolog.Logger
	Tools      []ToolInfo
	// MCP, when set, is mounted at MCPPath for every method.
	MCP     http.Handler
	MCPPath string
}

func NewRouter(svc Service, opts RouterOptions) *mux.Router {
	h := NewHandler(svc, opts.Tools)
	header := opts.AuthHeader
	if header == "" {
		header = "X-API-Key"
	}

	r := mux.NewRouter()
	r.Use(RequestID, Recover, AccessLog(opts.AccessLog), APIKeyAuth(opts.APIKey, header))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/", h.Root).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.Ready).Methods(http.MethodGet)
	r.HandleFunc("/tools", h.Tools).Methods(http.MethodGet)

	r.HandleFunc("/players/search", h.SearchPlayers).Methods(http.MethodGet)
	r.HandleFunc("/players/{code}/timeseries", h.PlayerTimeSeries).Methods(http.MethodGet)
	r.HandleFunc("/seasons", h.ListSeasons).Methods(http.MethodGet)
	r.HandleFunc("/seasons/{season}/index", h.SeasonIndex).Methods(http.MethodGet)
	r.HandleFunc("/admin/rebuild", h.Rebuild).Methods(http.MethodPost)

	if opts.MCP != nil && opts.MCPPath != "" {
		r.Handle(opts.MCPPath, opts.MCP)
	}
	return r
}
