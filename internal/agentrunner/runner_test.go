package agentrunner

import (
	"context"
	"errors"
	"testing"

	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/modelport"
	"github.com/revisoria/deliberation/internal/retrieval"
)

func newTestRunner(t *testing.T, model modelport.Port, retrievalPort retrieval.Port) (*AgentRunner, defensefile.Store) {
	t.Helper()
	store := defensefile.NewFileStore(t.TempDir())
	runner := New(Config{
		Registry:    DefaultRegistry(),
		Retrieval:   retrievalPort,
		Model:       model,
		DefenseFile: store,
	})
	return runner, store
}

func TestRunAppendsDecisionAndRetrieval(t *testing.T) {
	port := modelport.NewScriptedPort([]modelport.Response{
		{Decision: domain.DecisionApprove, Reasoning: "clear razón de negocios", PromptTokens: 10, CompletionTokens: 5},
	}, nil)
	retrievalPort := retrieval.NewStaticPort(map[string][]domain.RetrievalResult{
		"Strategic consulting": {{Title: "Policy", Source: "handbook", Score: 0.9}},
	})
	runner, store := newTestRunner(t, port, retrievalPort)

	project := domain.Project{ID: "p1", CompanyID: "c1", Name: "Q4 planning", Description: "Strategic consulting"}
	decision, err := runner.Run(context.Background(), "c1", project, domain.StageStrategy, "A1_SPONSOR")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if decision.Decision != domain.DecisionApprove {
		t.Fatalf("Decision = %s, want approve", decision.Decision)
	}

	df, err := store.GetOrCreate("p1", "c1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(df.Decisions) != 1 {
		t.Fatalf("expected 1 decision persisted, got %d", len(df.Decisions))
	}
	if len(df.Retrievals) != 1 || len(df.Retrievals[0].Results) != 1 {
		t.Fatalf("expected 1 retrieval entry with 1 result, got %+v", df.Retrievals)
	}
}

func TestRunDegradesOnRetrievalFailure(t *testing.T) {
	port := modelport.NewScriptedPort([]modelport.Response{
		{Decision: domain.DecisionApprove, Reasoning: "approved"},
	}, nil)
	runner, store := newTestRunner(t, port, failingRetrieval{err: errors.New("index down")})

	project := domain.Project{ID: "p2", CompanyID: "c1", Name: "X", Description: "desc"}
	decision, err := runner.Run(context.Background(), "c1", project, domain.StageFiscal, "A2_FISCAL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(decision.RetrievalRefs) != 0 {
		t.Fatalf("expected empty retrievalRefs on degraded retrieval, got %+v", decision.RetrievalRefs)
	}

	df, _ := store.GetOrCreate("p2", "c1")
	if len(df.Decisions) != 1 {
		t.Fatalf("stage must still complete despite retrieval degradation, got %d decisions", len(df.Decisions))
	}
}

func TestRunFailsStageAfterModelRetriesExhausted(t *testing.T) {
	failing := errors.New("rate limited")
	port := modelport.NewScriptedPort(
		[]modelport.Response{{}, {}, {}},
		[]error{failing, failing, failing},
	)
	runner, store := newTestRunner(t, port, retrieval.NewStaticPort(nil))

	project := domain.Project{ID: "p3", CompanyID: "c1", Name: "X", Description: "desc"}
	_, err := runner.Run(context.Background(), "c1", project, domain.StageFiscal, "A2_FISCAL")
	if err == nil {
		t.Fatal("expected a ModelFailure error after exhausting retries")
	}

	df, _ := store.GetOrCreate("p3", "c1")
	if len(df.Decisions) != 0 {
		t.Fatalf("no partial decision should be appended on model failure, got %d", len(df.Decisions))
	}
}

func TestRunResolvesOneToolRoundTrip(t *testing.T) {
	port := modelport.NewScriptedPort([]modelport.Response{
		{ToolCall: &modelport.ToolCall{ID: "toolu_01", Name: "lookup_sponsor_history", Args: map[string]any{"id": "c1"}}},
		{Decision: domain.DecisionApprove, Reasoning: "approved after lookup"},
	}, nil)
	store := defensefile.NewFileStore(t.TempDir())
	runner := New(Config{
		Registry:    DefaultRegistry(),
		Retrieval:   retrieval.NewStaticPort(nil),
		Model:       port,
		DefenseFile: store,
		Tools: map[string]ToolExecutor{
			"lookup_sponsor_history": func(ctx context.Context, call modelport.ToolCall) (modelport.ToolResult, error) {
				return modelport.ToolResult{ID: call.ID, Name: call.Name, Content: "clean history"}, nil
			},
		},
	})

	project := domain.Project{ID: "p4", CompanyID: "c1", Name: "X", Description: "desc"}
	decision, err := runner.Run(context.Background(), "c1", project, domain.StageStrategy, "A1_SPONSOR")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if decision.Decision != domain.DecisionApprove {
		t.Fatalf("Decision = %s, want approve (from second round)", decision.Decision)
	}
	if port.Calls() != 2 {
		t.Fatalf("expected exactly 2 model invocations for the one tool round trip, got %d", port.Calls())
	}

	df, err := store.GetOrCreate("p4", "c1")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if len(df.AgentOpinions) != 1 || df.AgentOpinions[0].OpinionType != "tool_result" {
		t.Fatalf("expected the resolved tool to leave one tool_result opinion, got %+v", df.AgentOpinions)
	}
	if df.AgentOpinions[0].Content != "clean history" {
		t.Fatalf("opinion content = %q, want the tool output", df.AgentOpinions[0].Content)
	}
}

func TestRunFallsBackToRequestInfoWhenDecisionUnparseable(t *testing.T) {
	port := modelport.NewScriptedPort([]modelport.Response{
		{Reasoning: "I am not sure what to recommend here, need more documents"},
	}, nil)
	runner, _ := newTestRunner(t, port, retrieval.NewStaticPort(nil))

	project := domain.Project{ID: "p5", CompanyID: "c1", Name: "X", Description: "desc"}
	decision, err := runner.Run(context.Background(), "c1", project, domain.StageFiscal, "A2_FISCAL")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if decision.Decision != domain.DecisionRequestInfo {
		t.Fatalf("Decision = %s, want request_info fallback", decision.Decision)
	}
}

type failingRetrieval struct{ err error }

func (f failingRetrieval) Retrieve(ctx context.Context, companyID, agentID, query string, limit int) ([]domain.RetrievalResult, error) {
	return nil, f.err
}
