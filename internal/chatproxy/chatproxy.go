// Package chatproxy implements the Chat Proxy (C9) reference loop: drives
// an LLM provider through a bounded tool-call/tool-result cycle against a
// Tool Server, assembling the final assistant message for the front end.
//
// Spec calls this an "external collaborator, partially specified" — most
// deployments own their own chat surface. This package provides the
// reference implementation the gateway ships so the tool catalog is
// independently exercisable end to end.
package chatproxy

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/vdsgateway/internal/providers"
)

// ToolCaller is the subset of the Tool Server this package drives: execute
// one tool call, returning its content blocks.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments map[string]interface{}) ([]ContentBlock, error)
}

// ContentBlock mirrors the Tool Server's content block union: either text
// or a base64-encoded image.
type ContentBlock struct {
	Type     string `json:"type"` // "text" or "image"
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Proxy drives one conversation turn through a provider, reprompting with
// tool results until the model stops requesting tools or the iteration
// cap is hit.
type Proxy struct {
	provider          providers.Provider
	tools             ToolCaller
	maxIterations     int
	injectPriorImages bool
}

// New builds a Proxy. maxIterations <= 0 defaults to 10, per spec's
// runaway-loop guard.
func New(provider providers.Provider, tools ToolCaller, maxIterations int, injectPriorImages bool) *Proxy {
	if maxIterations <= 0 {
		maxIterations = 10
	}
	return &Proxy{provider: provider, tools: tools, maxIterations: maxIterations, injectPriorImages: injectPriorImages}
}

// Turn runs messages through the provider, executing any requested tool
// calls and reprompting, until a final assistant message with no pending
// tool calls is produced (or the iteration cap is reached). When
// injectPriorImages is set, image blocks from tool results are injected
// into the final assistant message's Images field for the front end.
func (p *Proxy) Turn(ctx context.Context, toolDefs []providers.ToolDefinition, messages []providers.Message) (*providers.ChatResponse, error) {
	var collectedImages []providers.ImageContent

	for iter := 0; iter < p.maxIterations; iter++ {
		resp, err := p.provider.Chat(ctx, providers.ChatRequest{Messages: messages, Tools: toolDefs})
		if err != nil {
			return nil, fmt.Errorf("chat proxy: provider call failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			if p.injectPriorImages {
				resp.Images = collectedImages
			}
			return resp, nil
		}

		messages = append(messages, providers.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			blocks, err := p.tools.CallTool(ctx, call.Name, call.Arguments)
			if err != nil {
				messages = append(messages, providers.Message{
					Role: "tool", ToolCallID: call.ID,
					Content: fmt.Sprintf("error: %v", err),
				})
				continue
			}

			var textParts string
			var images []providers.ImageContent
			for _, b := range blocks {
				switch b.Type {
				case "text":
					textParts += b.Text + "\n"
				case "image":
					images = append(images, providers.ImageContent{MimeType: b.MimeType, Data: b.Data})
				}
			}
			if p.injectPriorImages {
				collectedImages = append(collectedImages, images...)
			}

			messages = append(messages, providers.Message{
				Role: "tool", ToolCallID: call.ID,
				Content: textParts,
				Images:  images,
			})
		}
	}

	return nil, fmt.Errorf("chat proxy: exceeded max tool-call iterations (%d)", p.maxIterations)
}
