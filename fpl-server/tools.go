package main

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"fpl-cache-api/internal/api"
	"fpl-cache-api/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type SearchPlayersArgs struct {
	Q     string `json:"q" jsonschema:"Case-insensitive substring of the player's web name (required)"`
	Limit *int   `json:"limit,omitempty" jsonschema:"Maximum results (default 10, 0 or less returns none)"`
}

type PlayerTimeSeriesArgs struct {
	PlayerCode int `json:"player_code" jsonschema:"Stable player code across seasons (required)"`
}

type SeasonIndexArgs struct {
	Season string `json:"season" jsonschema:"Season name, e.g. 2023-24 (required)"`
}

// newMCPServer registers the query tools against svc and returns the server
// with its tool listing.
func newMCPServer(svc api.Service) (*mcp.Server, []api.ToolInfo) {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    logger.ServiceName,
			Version: logger.Version,
		},
		nil,
	)
	registry := make([]api.ToolInfo, 0, 3)

	addTool(server, &registry, &mcp.Tool{
		Name:        "search_players",
		Description: "Find players by web name; prefix matches first",
	}, searchPlayersTool(svc))

	addTool(server, &registry, &mcp.Tool{
		Name:        "player_timeseries",
		Description: "Cumulative total_points per gameweek with season-scoped deltas",
	}, playerTimeSeriesTool(svc))

	addTool(server, &registry, &mcp.Tool{
		Name:        "season_index",
		Description: "Gameweek to snapshot mapping and summary for one season",
	}, seasonIndexTool(svc))

	return server, registry
}

func searchPlayersTool(svc api.Service) func(context.Context, *mcp.CallToolRequest, SearchPlayersArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args SearchPlayersArgs) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(args.Q) == "" {
			return toolError(fmt.Errorf("q is required")), nil, nil
		}
		limit := api.DefaultSearchLimit
		if args.Limit != nil {
			limit = *args.Limit
		}
		results, err := svc.Search(args.Q, limit)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSON(json.MarshalIndent(api.SearchResponse{Query: args.Q, Count: len(results), Results: results}, "", "  "))
	}
}

func playerTimeSeriesTool(svc api.Service) func(context.Context, *mcp.CallToolRequest, PlayerTimeSeriesArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args PlayerTimeSeriesArgs) (*mcp.CallToolResult, any, error) {
		if args.PlayerCode == 0 {
			return toolError(fmt.Errorf("player_code is required")), nil, nil
		}
		res, err := svc.TimeSeries(ctx, args.PlayerCode)
		if err != nil {
			return toolError(err), nil, nil
		}
		return toolJSON(json.MarshalIndent(res, "", "  "))
	}
}

func seasonIndexTool(svc api.Service) func(context.Context, *mcp.CallToolRequest, SeasonIndexArgs) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args SeasonIndexArgs) (*mcp.CallToolResult, any, error) {
		if args.Season == "" {
			return toolError(fmt.Errorf("season is required")), nil, nil
		}
		sum, times, err := svc.SeasonIndex(args.Season)
		if err != nil {
			return toolError(err), nil, nil
		}
		out := map[string]any{"summary": sum, "gameweeks": times}
		return toolJSON(json.MarshalIndent(out, "", "  "))
	}
}

func addTool[T any](server *mcp.Server, registry *[]api.ToolInfo, tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, T) (*mcp.CallToolResult, any, error)) {
	*registry = append(*registry, api.ToolInfo{Name: tool.Name, Description: tool.Description})
	mcp.AddTool(server, tool, handler)
}

func toolJSON(res []byte, err error) (*mcp.CallToolResult, any, error) {
	if err != nil {
		return toolError(err), nil, nil
	}
	return toolJSONBytes(res), nil, nil
}

func toolJSONBytes(res []byte) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(res)},
		},
	}
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}
