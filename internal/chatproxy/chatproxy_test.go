package chatproxy

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/vdsgateway/internal/providers"
)

type stubProvider struct {
	responses []*providers.ChatResponse
	calls     int
}

func (s *stubProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}
func (s *stubProvider) ChatStream(ctx context.Context, req providers.ChatRequest, onChunk func(providers.StreamChunk)) (*providers.ChatResponse, error) {
	return s.Chat(ctx, req)
}
func (s *stubProvider) DefaultModel() string { return "stub" }
func (s *stubProvider) Name() string         { return "stub" }

type stubTools struct{}

func (stubTools) CallTool(ctx context.Context, name string, arguments map[string]interface{}) ([]ContentBlock, error) {
	return []ContentBlock{{Type: "text", Text: "ok"}, {Type: "image", MimeType: "image/png", Data: "abc"}}, nil
}

func TestProxy_Turn_StopsWhenNoToolCalls(t *testing.T) {
	provider := &stubProvider{responses: []*providers.ChatResponse{
		{Content: "hello", FinishReason: "stop"},
	}}
	p := New(provider, stubTools{}, 10, false)

	resp, err := p.Turn(context.Background(), nil, []providers.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("content = %q, want hello", resp.Content)
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1", provider.calls)
	}
}

func TestProxy_Turn_RunsToolCallsThenStops(t *testing.T) {
	provider := &stubProvider{responses: []*providers.ChatResponse{
		{Content: "", ToolCalls: []providers.ToolCall{{ID: "1", Name: "search_surveys"}}, FinishReason: "tool_calls"},
		{Content: "done", FinishReason: "stop"},
	}}
	p := New(provider, stubTools{}, 10, true)

	resp, err := p.Turn(context.Background(), nil, []providers.Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "done" {
		t.Errorf("content = %q, want done", resp.Content)
	}
	if len(resp.Images) != 1 {
		t.Errorf("got %d images, want 1 (InjectPriorImages should re-attach)", len(resp.Images))
	}
}

func TestProxy_Turn_ExceedsMaxIterations(t *testing.T) {
	call := providers.ToolCall{ID: "1", Name: "search_surveys"}
	responses := make([]*providers.ChatResponse, 3)
	for i := range responses {
		responses[i] = &providers.ChatResponse{ToolCalls: []providers.ToolCall{call}, FinishReason: "tool_calls"}
	}
	provider := &stubProvider{responses: responses}
	p := New(provider, stubTools{}, 3, false)

	_, err := p.Turn(context.Background(), nil, []providers.Message{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected an error when max iterations is exceeded")
	}
}
