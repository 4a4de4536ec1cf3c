package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/vdsgateway/internal/integrity"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
)

func (s *Server) registerValidationTools() {
	s.mcp.AddTool(mcp.NewTool("validate_extracted_statistics",
		mcp.WithDescription("Recompute a section's statistics and compare against claimed values within tolerance."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithString("section_type", mcp.Required(), mcp.Description("inline|crossline")),
		mcp.WithNumber("section_number", mcp.Required(), mcp.Description("coordinate value along section_type's axis")),
		mcp.WithObject("claimed_statistics", mcp.Required(), mcp.Description("metric name to claimed value, e.g. {\"max\": 2500}")),
		mcp.WithNumber("tolerance", mcp.Description("relative tolerance, default 0.05")),
	), s.handleValidateStatistics)

	s.mcp.AddTool(mcp.NewTool("verify_spatial_coordinates",
		mcp.WithDescription("Check claimed axis coordinates against a survey's indexed bounds."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithObject("claimed_location", mcp.Required(), mcp.Description("axis name to claimed coordinate, e.g. {\"inline\": 60000}")),
	), s.handleVerifyCoordinates)

	s.mcp.AddTool(mcp.NewTool("check_statistical_consistency",
		mcp.WithDescription("Apply the fixed internal-consistency rule set to a statistics block."),
		mcp.WithObject("statistics", mcp.Required(), mcp.Description("a statistics object (min, max, mean, median, std, rms, p10-p90)")),
	), s.handleCheckConsistency)

	s.mcp.AddTool(mcp.NewTool("validate_vds_metadata",
		mcp.WithDescription("Resolve claimed metadata fields against a survey's indexed record, or discover its known fields."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithObject("claimed_metadata", mcp.Description("field name to claimed value")),
		mcp.WithString("validation_type", mcp.Description("exact|fuzzy, informational only; matching always escalates exact->search_path->fuzzy")),
		mcp.WithBoolean("smart_matching", mcp.Description("accepted for compatibility; the fuzzy token-overlap fallback always runs")),
		mcp.WithBoolean("parse_wkt", mcp.Description("reserved; no WKT parser in this deployment")),
		mcp.WithBoolean("discovery_mode", mcp.Description("when true, ignore claimed_metadata and return every known field")),
	), s.handleValidateMetadata)
}

func (s *Server) sectionKind(label string) model.ExtractionKind {
	if label == "crossline" {
		return model.KindCrossline
	}
	return model.KindInline
}

func (s *Server) handleValidateStatistics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	surveyID := getString(args, "survey_id", "")
	handle, err := s.access.Open(ctx, surveyID)
	if err != nil {
		return errorResult(err), nil
	}

	kind := s.sectionKind(getString(args, "section_type", "inline"))
	buf, _, err := s.access.Extract(ctx, handle, model.ExtractionRequest{
		SurveyID: surveyID, Kind: kind, Selector: getFloat(args, "section_number", 0),
	})
	if err != nil {
		return errorResult(err), nil
	}

	tolerance := getFloat(args, "tolerance", 0.05)
	claims := getFloatMap(args, "claimed_statistics")
	results := integrity.Recompute(buf, claims, tolerance)
	return mcp.NewToolResultText(jsonBlock(results)), nil
}

func (s *Server) handleVerifyCoordinates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	survey, err := s.meta.Get(ctx, getString(args, "survey_id", ""))
	if err != nil {
		return errorResult(err), nil
	}

	claims := map[model.AxisName]float64{}
	for k, v := range getFloatMap(args, "claimed_location") {
		claims[model.AxisName(k)] = v
	}
	results := integrity.VerifyCoordinates(survey, claims)
	return mcp.NewToolResultText(jsonBlock(results)), nil
}

func (s *Server) handleCheckConsistency(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	statsArgs := getFloatMap(args, "statistics")
	stats := model.Statistics{
		Min: statsArgs["min"], Max: statsArgs["max"], Mean: statsArgs["mean"], Median: statsArgs["median"],
		Std: statsArgs["std"], RMS: statsArgs["rms"],
		P10: statsArgs["p10"], P25: statsArgs["p25"], P50: statsArgs["p50"], P75: statsArgs["p75"], P90: statsArgs["p90"],
	}
	report := integrity.CheckStatisticalConsistency(stats)
	return mcp.NewToolResultText(jsonBlock(report)), nil
}

func (s *Server) handleValidateMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	survey, err := s.meta.Get(ctx, getString(args, "survey_id", ""))
	if err != nil {
		return errorResult(err), nil
	}

	if getBool(args, "discovery_mode", false) {
		return mcp.NewToolResultText(jsonBlock(survey)), nil
	}

	claimed := map[string]any{}
	if v, ok := args["claimed_metadata"]; ok {
		if m, ok := v.(map[string]any); ok {
			claimed = m
		}
	}

	results := make(map[string]integrity.ClaimResult, len(claimed))
	for field, v := range claimed {
		claimedStr, _ := v.(string)
		results[field] = integrity.ValidateMetadataClaim(survey, field, claimedStr)
	}
	return mcp.NewToolResultText(jsonBlock(map[string]any{
		"fields":          results,
		"aggregate_score": integrity.AggregateClaimScore(results),
	})), nil
}
