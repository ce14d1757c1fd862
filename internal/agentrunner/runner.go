package agentrunner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/modelport"
	"github.com/revisoria/deliberation/internal/orcherrors"
	"github.com/revisoria/deliberation/internal/retrieval"
)

// ToolExecutor resolves one tool call synchronously.
type ToolExecutor func(ctx context.Context, call modelport.ToolCall) (modelport.ToolResult, error)

// Metrics is the narrow observability hook the runner calls when a
// retrieval degrades. metrics.Collector satisfies it structurally.
type Metrics interface {
	IncRetrievalDegraded(agentID string)
}

type noopMetrics struct{}

func (noopMetrics) IncRetrievalDegraded(string) {}

// Config bundles an AgentRunner's dependencies and tunables.
type Config struct {
	Registry         *Registry
	Retrieval        retrieval.Port
	Model            modelport.Port
	DefenseFile      defensefile.Store
	Tools            map[string]ToolExecutor
	Logger           *log.Logger
	Metrics          Metrics
	MaxModelAttempts int           // default 3
	RetrievalK       int           // default 5
	RetrievalTimeout time.Duration // default 10s
	ModelTimeout     time.Duration // default 60s
	Now              func() time.Time
}

// AgentRunner executes one named agent for one stage of one deliberation.
type AgentRunner struct {
	cfg Config
}

// New builds an AgentRunner, applying the documented defaults for any
// zero-valued tunable.
func New(cfg Config) *AgentRunner {
	if cfg.MaxModelAttempts == 0 {
		cfg.MaxModelAttempts = 3
	}
	if cfg.RetrievalK == 0 {
		cfg.RetrievalK = 5
	}
	if cfg.RetrievalTimeout == 0 {
		cfg.RetrievalTimeout = 10 * time.Second
	}
	if cfg.ModelTimeout == 0 {
		cfg.ModelTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &AgentRunner{cfg: cfg}
}

// Run executes agentID at stage for project, appending the resulting
// AgentDecision (and the retrieval call that grounded it) to the
// DefenseFile before returning.
//
// A retrieval failure degrades locally: the stage proceeds with an empty
// DOCUMENTS block. A model failure that survives
// MaxModelAttempts retries is returned as an orcherrors ModelFailure and
// no decision is appended; the caller (Orchestrator) is responsible for
// marking the deliberation failed.
func (r *AgentRunner) Run(ctx context.Context, companyID string, project domain.Project, stage domain.Stage, agentID string) (domain.AgentDecision, error) {
	descriptor, ok := r.cfg.Registry.Get(agentID)
	if !ok {
		return domain.AgentDecision{}, &orcherrors.Error{Kind: orcherrors.KindFatal, Message: fmt.Sprintf("no agent descriptor registered for %s", agentID)}
	}

	start := r.cfg.Now()
	systemPrompt := r.renderSystemPrompt(descriptor, companyID)

	query := descriptor.RetrievalHint
	if query == "" {
		query = project.Description
	}

	results := r.retrieve(ctx, companyID, agentID, query)

	userPrompt := r.renderUserPrompt(project, results)

	resp, err := r.invokeWithToolRoundTrip(ctx, project.ID, companyID, systemPrompt, userPrompt, descriptor, agentID)
	if err != nil {
		return domain.AgentDecision{}, orcherrors.ModelFailure(string(stage), err)
	}

	decision := resp.Decision
	reasoning := resp.Reasoning
	if decision == "" {
		decision = parseDecision(reasoning)
	}

	refs := make([]domain.RetrievalRef, 0, len(results))
	for i, res := range results {
		refs = append(refs, domain.RetrievalRef{
			ChunkID: fmt.Sprintf("%s-%d", agentID, i),
			Score:   res.Score,
			Source:  res.Source,
		})
	}

	agentDecision := domain.AgentDecision{
		Stage:            stage,
		AgentID:          agentID,
		AgentName:        descriptor.Name,
		Decision:         decision,
		Reasoning:        reasoning,
		Confidence:       resp.Confidence,
		RetrievalRefs:    refs,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		ElapsedMs:        r.cfg.Now().Sub(start).Milliseconds(),
		RecordedAt:       r.cfg.Now(),
	}

	if err := r.cfg.DefenseFile.AppendRetrieval(project.ID, companyID, agentID, query, results); err != nil {
		return domain.AgentDecision{}, err
	}
	if err := r.cfg.DefenseFile.AppendDecision(project.ID, companyID, agentDecision); err != nil {
		return domain.AgentDecision{}, err
	}

	return agentDecision, nil
}

func (r *AgentRunner) renderSystemPrompt(d Descriptor, companyID string) string {
	if strings.Contains(d.SystemPromptTmpl, "%s") {
		return fmt.Sprintf(d.SystemPromptTmpl, companyID)
	}
	return d.SystemPromptTmpl
}

func (r *AgentRunner) renderUserPrompt(project domain.Project, results []domain.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Project: %s\n\n", project.Name))
	sb.WriteString(fmt.Sprintf("Client: %s\nService type: %s\nAmount: %.2f\n\n", project.ClientName, project.ServiceType, project.Amount))
	sb.WriteString(fmt.Sprintf("## Description\n%s\n\n", project.Description))

	sb.WriteString("## DOCUMENTS\n")
	if len(results) == 0 {
		sb.WriteString("(no supporting documents retrieved)\n")
	}
	for _, res := range results {
		sb.WriteString(fmt.Sprintf("- [%s] %s: %s (score %.2f)\n", res.Source, res.Title, res.Text, res.Score))
	}
	return sb.String()
}

func (r *AgentRunner) retrieve(ctx context.Context, companyID, agentID, query string) []domain.RetrievalResult {
	rctx, cancel := context.WithTimeout(ctx, r.cfg.RetrievalTimeout)
	defer cancel()

	results, err := r.cfg.Retrieval.Retrieve(rctx, companyID, agentID, query, r.cfg.RetrievalK)
	if err != nil {
		r.cfg.Logger.Printf("[AGENT] retrieval degraded for %s: %v", agentID, err)
		r.cfg.Metrics.IncRetrievalDegraded(agentID)
		return nil
	}
	return results
}

// invokeWithToolRoundTrip performs the ModelPort call, resolving exactly
// one round of tool calls if the model requests it. A successfully
// resolved tool leaves an AgentOpinion on the DefenseFile so the audit
// trail shows what the sub-lookup actually returned, without advancing
// the stage.
func (r *AgentRunner) invokeWithToolRoundTrip(ctx context.Context, projectID, companyID, systemPrompt, userPrompt string, descriptor Descriptor, agentID string) (modelport.Response, error) {
	req := modelport.Request{SystemPrompt: systemPrompt, UserPrompt: userPrompt, AvailableTools: descriptor.PermittedTools}

	// Each attempt gets its own ModelTimeout, so an expired call is retried
	// like any other model failure.
	invoke := func() (modelport.Response, error) {
		mctx, cancel := context.WithTimeout(ctx, r.cfg.ModelTimeout)
		defer cancel()
		return r.cfg.Model.Invoke(mctx, req)
	}

	resp, err := withRetry(ctx, r.cfg.MaxModelAttempts, invoke)
	if err != nil {
		return modelport.Response{}, err
	}

	if resp.ToolCall == nil {
		return resp, nil
	}

	toolResult, err := r.resolveTool(ctx, *resp.ToolCall)
	if err != nil {
		toolResult = modelport.ToolResult{ID: resp.ToolCall.ID, Name: resp.ToolCall.Name, Content: fmt.Sprintf("tool error: %v", err)}
	} else if opErr := r.cfg.DefenseFile.AddAgentOpinion(projectID, companyID, domain.AgentOpinion{
		AgentID:     agentID,
		AgentName:   descriptor.Name,
		OpinionType: "tool_result",
		Content:     toolResult.Content,
		Metadata:    map[string]string{"tool": toolResult.Name},
	}); opErr != nil {
		r.cfg.Logger.Printf("[AGENT] recording tool opinion failed for %s: %v", agentID, opErr)
	}

	req.ToolResults = []modelport.ToolResult{toolResult}
	second, err := withRetry(ctx, r.cfg.MaxModelAttempts, invoke)
	if err != nil {
		return modelport.Response{}, err
	}
	// Second-round tool calls are discarded: only its text is used.
	second.ToolCall = nil
	return second, nil
}

func (r *AgentRunner) resolveTool(ctx context.Context, call modelport.ToolCall) (modelport.ToolResult, error) {
	exec, ok := r.cfg.Tools[call.Name]
	if !ok {
		return modelport.ToolResult{}, fmt.Errorf("no executor registered for tool %q", call.Name)
	}
	return exec(ctx, call)
}

// NewDecisionID generates a uuid for a decision or poll token.
func NewDecisionID() string {
	return uuid.NewString()
}
