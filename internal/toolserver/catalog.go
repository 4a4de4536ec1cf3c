package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/vdsgateway/internal/metadata"
)

func (s *Server) registerCatalogTools() {
	s.mcp.AddTool(mcp.NewTool("search_surveys",
		mcp.WithDescription("Search the survey catalog by free-text query, region, and acquisition year."),
		mcp.WithString("query", mcp.Description("free-text search across name and region")),
		mcp.WithString("region", mcp.Description("region filter, case-insensitive substring match")),
		mcp.WithNumber("year", mcp.Description("acquisition year filter")),
		mcp.WithNumber("offset", mcp.Description("pagination offset")),
		mcp.WithNumber("limit", mcp.Description("page size, capped at 100")),
	), s.handleSearchSurveys)

	s.mcp.AddTool(mcp.NewTool("get_survey_info",
		mcp.WithDescription("Fetch full metadata for one survey by id."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
	), s.handleGetSurveyInfo)

	s.mcp.AddTool(mcp.NewTool("get_survey_stats",
		mcp.WithDescription("Aggregate catalog statistics: count and breakdowns by type and dimensionality. total_bytes is not computed and is always 0."),
	), s.handleGetSurveyStats)

	s.mcp.AddTool(mcp.NewTool("get_facets",
		mcp.WithDescription("Facet counts over the catalog (region, data type), optionally filtered by region and year."),
		mcp.WithString("region", mcp.Description("restrict facets to this region")),
		mcp.WithNumber("year", mcp.Description("restrict facets to this acquisition year")),
	), s.handleGetFacets)

	s.mcp.AddTool(mcp.NewTool("get_cache_stats",
		mcp.WithDescription("Report the metadata query cache's hit rate and occupancy."),
	), s.handleGetCacheStats)
}

func (s *Server) handleSearchSurveys(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	result, err := s.meta.Search(ctx, metadata.SearchArgs{
		Query:  getString(args, "query", ""),
		Region: getString(args, "region", ""),
		Year:   getInt(args, "year", 0),
		Offset: getInt(args, "offset", 0),
		Limit:  getInt(args, "limit", 100),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(result)), nil
}

func (s *Server) handleGetSurveyInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	survey, err := s.meta.Get(ctx, getString(args, "survey_id", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(survey)), nil
}

func (s *Server) handleGetSurveyStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.meta.IndexStats(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(stats)), nil
}

func (s *Server) handleGetFacets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	facets, err := s.meta.Facets(ctx, getString(args, "region", ""), getInt(args, "year", 0))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(facets)), nil
}

func (s *Server) handleGetCacheStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := map[string]any{
		"mode":   string(s.meta.Mode()),
		"caches": s.meta.CacheStats(),
	}
	return mcp.NewToolResultText(jsonBlock(out)), nil
}

var _ server.ToolHandlerFunc = (*Server)(nil).handleSearchSurveys
