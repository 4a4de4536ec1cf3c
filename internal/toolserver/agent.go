package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerAgentTools() {
	s.mcp.AddTool(mcp.NewTool("agent_start_extraction",
		mcp.WithDescription("Parse a natural-language bulk extraction instruction and run it in the background."),
		mcp.WithString("survey_id", mcp.Required(), mcp.Description("survey identifier")),
		mcp.WithString("instruction", mcp.Required(), mcp.Description("e.g. \"every 5th inline from 1000 to 2000\"")),
		mcp.WithBoolean("auto_execute", mcp.Description("start execution immediately; default true")),
	), s.handleAgentStart)

	s.mcp.AddTool(mcp.NewTool("agent_get_status",
		mcp.WithDescription("Report a background session's state and progress."),
		mcp.WithString("session_id", mcp.Description("defaults to the most recently started session")),
	), s.handleAgentStatus)

	s.mcp.AddTool(mcp.NewTool("agent_pause",
		mcp.WithDescription("Pause a running background session."),
		mcp.WithString("session_id", mcp.Description("defaults to the most recently started session")),
	), s.handleAgentPause)

	s.mcp.AddTool(mcp.NewTool("agent_resume",
		mcp.WithDescription("Resume a paused background session."),
		mcp.WithString("session_id", mcp.Description("defaults to the most recently started session")),
	), s.handleAgentResume)

	s.mcp.AddTool(mcp.NewTool("agent_get_results",
		mcp.WithDescription("Fetch a summary of completed and failed tasks for a session, with binary payloads stripped."),
		mcp.WithString("session_id", mcp.Description("defaults to the most recently started session")),
	), s.handleAgentResults)
}

func (s *Server) handleAgentStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	surveyID := getString(args, "survey_id", "")
	handle, err := s.access.Open(ctx, surveyID)
	if err != nil {
		return errorResult(err), nil
	}

	status, err := s.agents.StartExtraction(ctx, handle, getString(args, "instruction", ""), getBool(args, "auto_execute", true))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(status)), nil
}

func (s *Server) handleAgentStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	status, err := s.agents.Status(getString(args, "session_id", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(status)), nil
}

func (s *Server) handleAgentPause(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	if err := s.agents.Pause(getString(args, "session_id", "")); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("paused"), nil
}

func (s *Server) handleAgentResume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	if err := s.agents.Resume(getString(args, "session_id", "")); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText("resumed"), nil
}

func (s *Server) handleAgentResults(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := argsOf(req)
	results, err := s.agents.Results(getString(args, "session_id", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(jsonBlock(results)), nil
}
