package toolserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nextlevelbuilder/vdsgateway/internal/integrity"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/visualize"
)

func (s *Server) registerExtractionTools() {
	sliceInputs := func(axisLabel string) []mcp.ToolOption {
		return []mcp.ToolOption{
			mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
			mcp.WithNumber(axisLabel, mcp.Required(), mcp.Description("coordinate value along the "+axisLabel+" axis")),
			mcp.WithString("instruction", mcp.Description("original natural-language request, used only for bulk-operation detection")),
		}
	}

	s.mcp.AddTool(mcp.NewTool("extract_inline", append([]mcp.ToolOption{
		mcp.WithDescription("Extract a single inline slice as raw float32 samples plus statistics."),
	}, sliceInputs("inline")...)...), s.wrap("extract_inline", s.handleExtractSlice(model.KindInline, "inline")))

	s.mcp.AddTool(mcp.NewTool("extract_crossline", append([]mcp.ToolOption{
		mcp.WithDescription("Extract a single crossline slice as raw float32 samples plus statistics."),
	}, sliceInputs("crossline")...)...), s.wrap("extract_crossline", s.handleExtractSlice(model.KindCrossline, "crossline")))

	s.mcp.AddTool(mcp.NewTool("extract_volume_subset",
		mcp.WithDescription("Extract a sub-volume bounded by optional ranges on each axis."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithObject("inline_range", mcp.Description("[min,max] inline bound, defaults to full axis")),
		mcp.WithObject("crossline_range", mcp.Description("[min,max] crossline bound, defaults to full axis")),
		mcp.WithObject("sample_range", mcp.Description("[min,max] sample bound, defaults to full axis")),
		mcp.WithString("instruction", mcp.Description("original natural-language request, used only for bulk-operation detection")),
	), s.wrap("extract_volume_subset", s.handleExtractSubvolume))

	s.mcp.AddTool(mcp.NewTool("extract_inline_image", append([]mcp.ToolOption{
		mcp.WithDescription("Extract a single inline slice and render it as a colormapped PNG."),
		mcp.WithString("colormap", mcp.Description("seismic|gray|petrel, default seismic")),
		mcp.WithBoolean("send_to_claude", mcp.Description("when false, returns a text-only privacy notice instead of image bytes")),
	}, sliceInputs("inline")...)...), s.wrap("extract_inline_image", s.handleExtractSliceImage(model.KindInline, "inline")))

	s.mcp.AddTool(mcp.NewTool("extract_crossline_image", append([]mcp.ToolOption{
		mcp.WithDescription("Extract a single crossline slice and render it as a colormapped PNG."),
		mcp.WithString("colormap", mcp.Description("seismic|gray|petrel, default seismic")),
		mcp.WithBoolean("send_to_claude", mcp.Description("when false, returns a text-only privacy notice instead of image bytes")),
	}, sliceInputs("crossline")...)...), s.wrap("extract_crossline_image", s.handleExtractSliceImage(model.KindCrossline, "crossline")))

	s.mcp.AddTool(mcp.NewTool("extract_volume_subset_image",
		mcp.WithDescription("Extract a sub-volume and render its first timeslice as a colormapped PNG."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithObject("inline_range", mcp.Description("[min,max] inline bound, defaults to full axis")),
		mcp.WithObject("crossline_range", mcp.Description("[min,max] crossline bound, defaults to full axis")),
		mcp.WithObject("sample_range", mcp.Description("[min,max] sample bound, defaults to full axis")),
		mcp.WithString("colormap", mcp.Description("seismic|gray|petrel, default seismic")),
		mcp.WithBoolean("send_to_claude", mcp.Description("when false, returns a text-only privacy notice instead of image bytes")),
		mcp.WithString("instruction", mcp.Description("original natural-language request, used only for bulk-operation detection")),
	), s.wrap("extract_volume_subset_image", s.handleExtractSubvolumeImage))
}

func (s *Server) handleExtractSlice(kind model.ExtractionKind, axisLabel string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argsOf(req)
		buf, stats, err := s.extractSlice(ctx, args, kind, axisLabel)
		if err != nil {
			return errorResult(err), nil
		}
		return mcp.NewToolResultText(jsonBlock(s.dataSummary(buf, stats, args))), nil
	}
}

func (s *Server) extractSlice(ctx context.Context, args map[string]any, kind model.ExtractionKind, axisLabel string) (*model.ExtractedBuffer, model.Statistics, error) {
	surveyID := getString(args, "survey_id", "")
	handle, err := s.access.Open(ctx, surveyID)
	if err != nil {
		return nil, model.Statistics{}, err
	}
	if err := s.checkMount(ctx, handle.Survey.Path); err != nil {
		return nil, model.Statistics{}, err
	}
	selector := getFloat(args, axisLabel, 0)
	return s.access.Extract(ctx, handle, model.ExtractionRequest{SurveyID: surveyID, Kind: kind, Selector: selector})
}

// dataSummary shapes an extraction result, capping raw sample payloads at
// rawDataElementCap and attaching provenance per 4.5.
func (s *Server) dataSummary(buf *model.ExtractedBuffer, stats model.Statistics, args map[string]any) map[string]any {
	out := map[string]any{
		"shape":      buf.Shape,
		"statistics": stats,
		"provenance": integrity.BuildProvenance(buf, model.ProvenanceSource{SurveyID: getString(args, "survey_id", "")}, args, stats),
	}
	n := len(buf.Data)
	if n > s.rawDataElementCap {
		out["data"] = buf.Data[:s.rawDataElementCap]
		out["truncated"] = true
		out["warning"] = fmt.Sprintf("raw data truncated to %d of %d elements; use statistics for the full buffer", s.rawDataElementCap, n)
	} else {
		out["data"] = buf.Data
	}
	return out
}

func (s *Server) handleExtractSubvolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	buf, stats, err := s.extractSubvolume(ctx, args)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(s.dataSummary(buf, stats, args))), nil
}

func (s *Server) extractSubvolume(ctx context.Context, args map[string]any) (*model.ExtractedBuffer, model.Statistics, error) {
	surveyID := getString(args, "survey_id", "")
	handle, err := s.access.Open(ctx, surveyID)
	if err != nil {
		return nil, model.Statistics{}, err
	}
	if err := s.checkMount(ctx, handle.Survey.Path); err != nil {
		return nil, model.Statistics{}, err
	}

	subRanges := map[model.AxisName]model.Range{}
	if r, ok := getRange(args, "inline_range"); ok {
		subRanges[model.AxisInline] = r
	}
	if r, ok := getRange(args, "crossline_range"); ok {
		subRanges[model.AxisCrossline] = r
	}
	if r, ok := getRange(args, "sample_range"); ok {
		subRanges[model.AxisSample] = r
	}

	return s.access.Extract(ctx, handle, model.ExtractionRequest{
		SurveyID: surveyID, Kind: model.KindSubvolume, SubRanges: subRanges,
	})
}

func (s *Server) handleExtractSliceImage(kind model.ExtractionKind, axisLabel string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argsOf(req)
		buf, stats, err := s.extractSlice(ctx, args, kind, axisLabel)
		if err != nil {
			return errorResult(err), nil
		}
		return s.renderImageResult(buf, stats, args)
	}
}

func (s *Server) handleExtractSubvolumeImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	buf, stats, err := s.extractSubvolume(ctx, args)
	if err != nil {
		return errorResult(err), nil
	}
	if len(buf.Shape) == 3 {
		// Render only the first timeslice; a sub-volume has no single 2-D
		// projection otherwise. Samples are the fastest-varying axis, so the
		// first timeslice is every nsamp-th value.
		ni, nc, nsamp := buf.Shape[0], buf.Shape[1], buf.Shape[2]
		data := make([]float32, ni*nc)
		for i := 0; i < ni*nc; i++ {
			data[i] = buf.Data[i*nsamp]
		}
		slice := &model.ExtractedBuffer{Shape: []int{ni, nc}, Data: data, NoValue: buf.NoValue}
		return s.renderImageResult(slice, stats, args)
	}
	return s.renderImageResult(buf, stats, args)
}

func (s *Server) renderImageResult(buf *model.ExtractedBuffer, stats model.Statistics, args map[string]any) (*mcp.CallToolResult, error) {
	if !getBool(args, "send_to_claude", true) {
		return mcp.NewToolResultText(jsonBlock(map[string]any{
			"notice":     "image generation suppressed by send_to_claude=false",
			"statistics": stats,
			"shape":      buf.Shape,
		})), nil
	}

	cmap := visualize.Colormap(getString(args, "colormap", string(visualize.ColormapSeismic)))
	png, downsampled, scale, err := visualize.RenderSliceBudgeted(buf, cmap, 98, s.maxImageBytes)
	if err != nil {
		return errorResult(err), nil
	}
	if len(png) > s.maxImageBytes {
		return mcp.NewToolResultText(jsonBlock(map[string]any{
			"warning":    fmt.Sprintf("rendered image still exceeds the %d byte budget after downsampling to %.0f%% scale, returning statistics only", s.maxImageBytes, scale*100),
			"statistics": stats,
			"shape":      buf.Shape,
		})), nil
	}

	summary := map[string]any{"statistics": stats, "shape": buf.Shape}
	if downsampled {
		summary["downsampled_to_scale"] = scale
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: jsonBlock(summary)},
			mcp.ImageContent{Type: "image", Data: encodeImage(png), MIMEType: "image/png"},
		},
	}, nil
}
