// Package toolserver implements the Tool Server (C8): owns the MCP
// JSON-RPC lifecycle over stdio, applies the Bulk Router's dispatch
// decision ahead of every extraction-tool call, and fans out to the Metadata Index
// Client, Volume Access, Agent Manager, and Integrity Engine.
package toolserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/vdsgateway/internal/agentmgr"
	"github.com/nextlevelbuilder/vdsgateway/internal/apierr"
	"github.com/nextlevelbuilder/vdsgateway/internal/metadata"
	"github.com/nextlevelbuilder/vdsgateway/internal/model"
	"github.com/nextlevelbuilder/vdsgateway/internal/mount"
	"github.com/nextlevelbuilder/vdsgateway/internal/router"
	"github.com/nextlevelbuilder/vdsgateway/internal/visualize"
	"github.com/nextlevelbuilder/vdsgateway/internal/volume"
)

const protocolVersion = "2024-11-05"

// Server owns the MCP server instance and every backing collaborator.
type Server struct {
	mcp *server.MCPServer

	meta       *metadata.Client
	mountCheck *mount.Checker
	access     volume.Access
	agents     *agentmgr.Manager
	logger     *slog.Logger

	rawDataElementCap int
	maxImageBytes     int
}

// Config bundles the Server's construction-time settings.
type Config struct {
	RawDataElementCap int
	MaxImageBytes     int
}

// New builds a Server wired to its collaborators and registers every tool
// in the catalog.
func New(meta *metadata.Client, mountCheck *mount.Checker, access volume.Access, agents *agentmgr.Manager, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RawDataElementCap <= 0 {
		cfg.RawDataElementCap = 100000
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = visualize.MaxImageBytes
	}

	s := &Server{
		mcp:               server.NewMCPServer("vdsgateway", "1.0.0"),
		meta:              meta,
		mountCheck:        mountCheck,
		access:            access,
		agents:            agents,
		logger:            logger,
		rawDataElementCap: cfg.RawDataElementCap,
		maxImageBytes:     cfg.MaxImageBytes,
	}
	s.registerTools()
	logger.Info("tool server ready", "protocol_version", protocolVersion)
	return s
}

// Serve runs the stdio JSON-RPC loop until the process exits or the
// transport closes.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.registerCatalogTools()
	s.registerExtractionTools()
	s.registerAgentTools()
	s.registerValidationTools()
}

// wrap applies the Bulk Router ahead of every extraction-tool call, per the
// dispatch order in 4.8: bulk instructions are rerouted to the Agent
// Manager instead of running the original tool.
func (s *Server) wrap(name string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := argsOf(req)
		verdict := router.Detect(name, args)
		if verdict.Bulk {
			return s.handleBulkReroute(ctx, args)
		}
		return handler(ctx, req)
	}
}

func (s *Server) handleBulkReroute(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	surveyID := getString(args, "survey_id", "")
	instruction := getString(args, "instruction", "")
	if instruction == "" {
		instruction = fmt.Sprintf("%v", args)
	}

	handle, err := s.access.Open(ctx, surveyID)
	if err != nil {
		return errorResult(err), nil
	}

	status, err := s.agents.StartExtraction(ctx, handle, instruction, true)
	if err != nil {
		return errorResult(err), nil
	}

	text := fmt.Sprintf(
		"Bulk Operation Detected: this request spans multiple extractions, so it has been handed to the background agent.\n"+
			"session_id: %s\nstate: %s\ntotal tasks: %d\n\n"+
			"Check progress with agent_get_status(session_id=\"%s\"), or agent_get_results once completed.",
		status.SessionID, status.State, status.Progress.Total, status.SessionID,
	)
	return mcp.NewToolResultText(text), nil
}

func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// argsOf extracts the call's argument map in a version-tolerant way.
func argsOf(req mcp.CallToolRequest) map[string]any {
	if m, ok := req.Params.Arguments.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func getString(args map[string]any, key, def string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func getFloat(args map[string]any, key string, def float64) float64 {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f
			}
		}
	}
	return def
}

func getInt(args map[string]any, key string, def int) int {
	return int(getFloat(args, key, float64(def)))
}

func getBool(args map[string]any, key string, def bool) bool {
	if v, ok := args[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// getRange reads a two-element array or a {min,max} object under key.
func getRange(args map[string]any, key string) (model.Range, bool) {
	v, ok := args[key]
	if !ok {
		return model.Range{}, false
	}
	switch r := v.(type) {
	case []any:
		if len(r) != 2 {
			return model.Range{}, false
		}
		lo, _ := r[0].(float64)
		hi, _ := r[1].(float64)
		return model.Range{Lo: lo, Hi: hi}, true
	case map[string]any:
		lo, _ := r["min"].(float64)
		hi, _ := r["max"].(float64)
		return model.Range{Lo: lo, Hi: hi}, true
	}
	return model.Range{}, false
}

func getFloatMap(args map[string]any, key string) map[string]float64 {
	out := map[string]float64{}
	v, ok := args[key]
	if !ok {
		return out
	}
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	for k, val := range m {
		if f, ok := val.(float64); ok {
			out[k] = f
		}
	}
	return out
}

func jsonBlock(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// encodeImage base64-encodes PNG bytes for an MCP image content block.
func encodeImage(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

// checkMount rejects extraction against a survey whose backing mount is
// stale or unreachable, per 8's "stale mount -> extraction returns
// Unavailable" boundary case. A nil mountCheck (health checking disabled)
// always passes.
func (s *Server) checkMount(ctx context.Context, surveyPath string) error {
	if s.mountCheck == nil || surveyPath == "" {
		return nil
	}
	root := filepath.Dir(surveyPath)
	result := s.mountCheck.Check(ctx, root)
	if !result.IsHealthy() {
		return apierr.Unavailablef("mount %s is %s: %s", root, result.Status, result.ErrorMessage)
	}
	return nil
}
