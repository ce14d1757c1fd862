// Package modelport defines the abstract LLM collaborator
// and a scripted reference implementation for deterministic tests.
package modelport

import (
	"context"

	"github.com/revisoria/deliberation/internal/domain"
)

// ToolCall is the single tool-use round-trip AgentRunner supports. ID is
// the backend's call id, echoed back on the matching ToolResult so the
// model can pair them.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is fed back to the model after ToolCall executes.
type ToolResult struct {
	ID      string // the originating ToolCall's ID
	Name    string
	Content string
}

// Request is one model invocation for one agent at one stage.
type Request struct {
	SystemPrompt   string
	UserPrompt     string
	ToolResults    []ToolResult // populated only on the second half of a tool-use round
	AvailableTools []string
}

// Response is what the model returned: either a direct structured
// decision, or exactly one tool call the caller must execute and resubmit
// once via Request.ToolResults.
type Response struct {
	ToolCall         *ToolCall
	Decision         domain.Decision
	Reasoning        string
	Confidence       *float64
	PromptTokens     int
	CompletionTokens int
}

// Port invokes the model backing one agent. A non-nil error is always
// treated as stage-failing after retry exhaustion; unlike Retrieval's
// Port, there is no silent degradation here.
type Port interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// ScriptedPort is a deterministic reference Port that replays a fixed
// sequence of responses, one per call, for use in tests and the demo
// composition root.
type ScriptedPort struct {
	responses []Response
	errs      []error
	calls     int
}

// NewScriptedPort builds a Port that returns responses[i] (or errs[i], if
// non-nil) on its i-th call. Calling it more times than len(responses)
// panics, surfacing a test-authoring mistake immediately.
func NewScriptedPort(responses []Response, errs []error) *ScriptedPort {
	return &ScriptedPort{responses: responses, errs: errs}
}

func (p *ScriptedPort) Invoke(ctx context.Context, req Request) (Response, error) {
	i := p.calls
	p.calls++
	if i >= len(p.responses) {
		panic("modelport.ScriptedPort: exhausted scripted responses")
	}
	var err error
	if i < len(p.errs) {
		err = p.errs[i]
	}
	return p.responses[i], err
}

// Calls reports how many times Invoke has been called.
func (p *ScriptedPort) Calls() int { return p.calls }
