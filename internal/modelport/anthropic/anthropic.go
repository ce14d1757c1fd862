// Package anthropic is the real modelport.Port backing one agent's model
// calls against the Anthropic Messages API. The retrieved pack
// carries github.com/anthropics/anthropic-sdk-go in its dependency surface
// without a worked call site, so this adapter follows the SDK's own
// documented Messages.New shape.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/revisoria/deliberation/internal/modelport"
)

// Port adapts the Anthropic SDK client to modelport.Port.
type Port struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// Config bundles the adapter's tunables.
type Config struct {
	APIKey     string
	Model      anthropic.Model // defaults to Claude Sonnet if empty
	MaxTokens  int64           // defaults to 1024
	HTTPClient *http.Client    // tests stub the transport through this
}

// New builds a Port from Config. APIKey may be empty to fall back to the
// SDK's own ANTHROPIC_API_KEY environment lookup.
func New(cfg Config) *Port {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_5
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	return &Port{client: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens}
}

// Invoke sends one Messages API call and maps the response back onto
// modelport.Response. A model response that requests a tool is surfaced as
// resp.ToolCall, leaving the decision fields empty; the caller resolves
// the tool and resubmits with req.ToolResults populated.
func (p *Port) Invoke(ctx context.Context, req modelport.Request) (modelport.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.SystemPrompt}},
		Messages:  buildMessages(req),
		Tools:     buildTools(req.AvailableTools),
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return modelport.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	return toResponse(message), nil
}

func buildMessages(req modelport.Request) []anthropic.MessageParam {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
	}
	for _, result := range req.ToolResults {
		messages = append(messages, anthropic.NewUserMessage(
			anthropic.NewToolResultBlock(result.ID, result.Content, false),
		))
	}
	return messages
}

func buildTools(names []string) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(names))
	for _, name := range names {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        name,
				InputSchema: anthropic.ToolInputSchemaParam{},
			},
		})
	}
	return tools
}

// toResponse maps the SDK's message shape onto modelport.Response. The
// Decision field is left empty: parseDecision (internal/agentrunner)
// recovers the outcome from the free text, since the Messages API has no
// first-class structured-decision field.
func toResponse(message *anthropic.Message) modelport.Response {
	resp := modelport.Response{
		PromptTokens:     int(message.Usage.InputTokens),
		CompletionTokens: int(message.Usage.OutputTokens),
	}

	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Reasoning += variant.Text
		case anthropic.ToolUseBlock:
			if resp.ToolCall == nil {
				// Input is the raw JSON object the model supplied; a
				// malformed one degrades to a call with nil args.
				var args map[string]any
				_ = json.Unmarshal(variant.Input, &args)
				resp.ToolCall = &modelport.ToolCall{ID: variant.ID, Name: variant.Name, Args: args}
			}
		}
	}

	return resp
}
