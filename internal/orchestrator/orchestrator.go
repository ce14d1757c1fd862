// Package orchestrator implements the Orchestrator: the
// component that drives one project through the StageGraph, one stage at a
// time, persisting DeliberationState after every transition and publishing
// to the StatusBoard so callers can poll instead of blocking on the run.
//
// The run loop is a single supervised goroutine per deliberation,
// cancelable via context.Context, with a recover() boundary so a panic
// inside one stage becomes a failed deliberation rather than a crashed
// process.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/revisoria/deliberation/internal/agentrunner"
	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/delibstate"
	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/orcherrors"
	"github.com/revisoria/deliberation/internal/quota"
	"github.com/revisoria/deliberation/internal/stagegraph"
	"github.com/revisoria/deliberation/internal/statusboard"
	"github.com/revisoria/deliberation/internal/tenant"
)

// Board is the subset of statusboard.Board (or statusboard.ObservedBoard)
// the Orchestrator needs, kept narrow so either satisfies it without an
// adapter.
type Board interface {
	Push(p statusboard.Progress)
	Get(projectID, companyID string) (statusboard.Progress, error)
}

// StartResult is returned by Start: enough for a caller to begin polling
// immediately.
type StartResult struct {
	ProjectID string
	PollToken string
}

// Config bundles every collaborator the Orchestrator wires together.
// There is no package-level singleton: a composition root builds exactly
// one Config and one Orchestrator per process.
type Config struct {
	Graph       *stagegraph.Graph
	Runner      *agentrunner.AgentRunner
	DefenseFile defensefile.Store
	State       delibstate.Store
	Board       Board
	Quota       quota.Gate
	Logger      *log.Logger
	Metrics     Metrics

	// EstimatedTokensPerStage is the conservative per-stage token estimate
	// charged against a company's plan at admission time, before the
	// model's actual usage is known.
	EstimatedTokensPerStage int64
	PlanName                func(companyID string) string
	Now                     func() time.Time
}

// Orchestrator drives deliberations through the StageGraph.
type Orchestrator struct {
	cfg Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New builds an Orchestrator, applying defaults for any zero-valued
// tunable.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics
	}
	if cfg.EstimatedTokensPerStage == 0 {
		cfg.EstimatedTokensPerStage = 4000
	}
	if cfg.PlanName == nil {
		cfg.PlanName = func(string) string { return quota.DefaultPlan }
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{cfg: cfg, cancels: make(map[string]context.CancelFunc)}
}

// Start admits, records, and launches one new deliberation, returning as
// soon as the run loop has been handed off to its own goroutine.
func (o *Orchestrator) Start(ctx context.Context, project domain.Project, tctx tenant.Context) (StartResult, error) {
	if err := tenant.Authorize(tctx, project.CompanyID); err != nil {
		return StartResult{}, err
	}
	if err := project.Validate(); err != nil {
		return StartResult{}, err
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.SubmittedAt.IsZero() {
		project.SubmittedAt = o.cfg.Now()
	}

	planName := o.cfg.PlanName(project.CompanyID)
	if err := o.cfg.Quota.Admit(project.CompanyID, planName, o.cfg.EstimatedTokensPerStage); err != nil {
		if structured, ok := orcherrors.AsStructured(err); ok && structured.Kind == orcherrors.KindQuotaExceeded {
			o.cfg.Metrics.IncQuotaRejection(project.CompanyID, "start")
		}
		return StartResult{}, err
	}

	if _, err := o.cfg.DefenseFile.GetOrCreate(project.ID, project.CompanyID); err != nil {
		return StartResult{}, err
	}
	if err := o.cfg.DefenseFile.RecordProject(project.ID, project.CompanyID, project); err != nil {
		return StartResult{}, err
	}

	state := domain.DeliberationState{
		ProjectID:       project.ID,
		CompanyID:       project.CompanyID,
		CurrentStage:    o.cfg.Graph.EntryStage(),
		StageResults:    make(map[domain.Stage]domain.StageResultSummary),
		Status:          domain.StatusInProgress,
		ProjectSnapshot: project,
		CreatedAt:       o.cfg.Now(),
	}
	// A resubmission after a request_info pause re-enters the stage that
	// asked for more information; only the snapshot is replaced.
	if existing, loadErr := o.cfg.State.Load(project.ID, project.CompanyID); loadErr == nil &&
		(existing.Status == domain.StatusPaused || existing.Status == domain.StatusInProgress) {
		state.CurrentStage = existing.CurrentStage
		state.StageResults = existing.StageResults
		state.CreatedAt = existing.CreatedAt
	}
	if err := o.cfg.State.Save(state); err != nil {
		return StartResult{}, err
	}

	o.publish(state, "deliberation started")

	// A submission that races an already-running loop for the same project
	// only refreshes the snapshot; the running loop picks the new state up
	// at its next stage boundary.
	o.mu.Lock()
	_, running := o.cancels[project.ID]
	o.mu.Unlock()
	if !running {
		o.launch(project.ID, project.CompanyID)
	}

	return StartResult{ProjectID: project.ID, PollToken: uuid.NewString()}, nil
}

// GetStatus returns the StatusBoard's latest snapshot for a project, tenant
// checked. Falls back to the persisted state if the in-memory board has
// no record (e.g. after a process restart).
func (o *Orchestrator) GetStatus(projectID string, tctx tenant.Context) (statusboard.Progress, error) {
	companyID, err := o.resolveCompany(projectID, tctx)
	if err != nil {
		return statusboard.Progress{}, err
	}

	p, err := o.cfg.Board.Get(projectID, companyID)
	if err == nil {
		return p, nil
	}

	state, stateErr := o.cfg.State.Load(projectID, companyID)
	if stateErr != nil {
		return statusboard.Progress{}, err
	}
	return o.progressFor(state, ""), nil
}

// GetState returns the full persisted DeliberationState, tenant checked.
func (o *Orchestrator) GetState(projectID string, tctx tenant.Context) (domain.DeliberationState, error) {
	companyID, err := o.resolveCompany(projectID, tctx)
	if err != nil {
		return domain.DeliberationState{}, err
	}
	return o.cfg.State.Load(projectID, companyID)
}

// Resume relaunches the run loop for a paused or previously-failed-to-start
// deliberation at its persisted currentStage. Stages already recorded in
// stageResults are not re-run.
func (o *Orchestrator) Resume(projectID string, tctx tenant.Context) error {
	companyID, err := o.resolveCompany(projectID, tctx)
	if err != nil {
		return err
	}

	state, err := o.cfg.State.Load(projectID, companyID)
	if err != nil {
		return err
	}
	if state.Status != domain.StatusPaused && state.Status != domain.StatusInProgress {
		return orcherrors.NotResumable(projectID, string(state.Status))
	}

	o.mu.Lock()
	_, running := o.cancels[projectID]
	o.mu.Unlock()
	if running {
		return nil
	}

	state.Status = domain.StatusInProgress
	if err := o.cfg.State.Save(state); err != nil {
		return err
	}
	o.publish(state, "deliberation resumed")
	o.launch(projectID, companyID)
	return nil
}

// Cancel requests a graceful stop of a running deliberation's loop. The
// loop observes cancellation between stages, never mid-stage.
func (o *Orchestrator) Cancel(projectID string, tctx tenant.Context) error {
	companyID, err := o.resolveCompany(projectID, tctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	cancel, ok := o.cancels[projectID]
	o.mu.Unlock()
	if !ok {
		return orcherrors.NotFound("running deliberation")
	}
	cancel()
	o.cfg.Logger.Printf("[ORCHESTRATOR] cancel requested for %s/%s", companyID, projectID)
	return nil
}

func (o *Orchestrator) resolveCompany(projectID string, tctx tenant.Context) (string, error) {
	// The caller only ever knows projectId; companyId is recovered from
	// tenant context's own scoping: every caller must already be scoped to
	// exactly one company for a tenant-checked read to make sense. Admins
	// reading across companies pass a tenant.Context carrying the target
	// companyId explicitly, not a wildcard.
	if tctx.CompanyID == "" {
		return "", &orcherrors.Error{Kind: orcherrors.KindAuthFailure, Message: "no tenant selected", Wrapped: orcherrors.ErrNoTenantSelected}
	}
	if err := tenant.Authorize(tctx, tctx.CompanyID); err != nil {
		return "", err
	}
	return tctx.CompanyID, nil
}

func (o *Orchestrator) launch(projectID, companyID string) {
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[projectID] = cancel
	o.mu.Unlock()

	go o.runLoop(ctx, projectID, companyID)
}

// runLoop drives one deliberation's stages to a terminal state, a pause, or
// a failure, persisting DeliberationState and publishing to the StatusBoard
// after every transition. A panic inside a stage is recovered and recorded
// as a failed deliberation rather than propagated.
func (o *Orchestrator) runLoop(ctx context.Context, projectID, companyID string) {
	defer func() {
		o.mu.Lock()
		delete(o.cancels, projectID)
		o.mu.Unlock()

		if r := recover(); r != nil {
			o.cfg.Logger.Printf("[ORCHESTRATOR] panic in run loop for %s/%s: %v", companyID, projectID, r)
			o.failLoaded(projectID, companyID, fmt.Errorf("internal error: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			o.pauseLoaded(projectID, companyID, "cancelled")
			return
		default:
		}

		state, err := o.cfg.State.Load(projectID, companyID)
		if err != nil {
			o.cfg.Logger.Printf("[ORCHESTRATOR] load state failed for %s/%s: %v", companyID, projectID, err)
			return
		}
		if state.Status != domain.StatusInProgress {
			return
		}

		stage := state.CurrentStage
		if stage.IsTerminal() {
			o.finalize(state, stage)
			return
		}

		agentID, ok := o.cfg.Graph.AgentFor(stage)
		if !ok {
			o.fail(state, fmt.Errorf("no agent bound to stage %s", stage))
			return
		}

		planName := o.cfg.PlanName(companyID)
		if err := o.cfg.Quota.Admit(companyID, planName, o.cfg.EstimatedTokensPerStage); err != nil {
			if structured, ok := orcherrors.AsStructured(err); ok && structured.Kind == orcherrors.KindQuotaExceeded {
				o.cfg.Metrics.IncQuotaRejection(companyID, "stage")
			}
			o.pause(state, fmt.Sprintf("quota exceeded: %v", err))
			return
		}

		stageStart := o.cfg.Now()
		decision, err := o.cfg.Runner.Run(context.WithoutCancel(ctx), companyID, state.ProjectSnapshot, stage, agentID)
		o.cfg.Metrics.ObserveStageDuration(string(stage), o.cfg.Now().Sub(stageStart))
		if err != nil {
			o.cfg.Metrics.IncStageFailure(string(stage))
			o.fail(state, err)
			return
		}

		if state.StageResults == nil {
			state.StageResults = make(map[domain.Stage]domain.StageResultSummary)
		}
		state.StageResults[stage] = domain.StageResultSummary{
			Decision:   decision.Decision,
			Reasoning:  decision.Reasoning,
			RecordedAt: decision.RecordedAt,
		}

		next := o.cfg.Graph.Next(stage, decision.Decision)
		if next == stage {
			// request_info: self-loop means the stage needs more input the
			// core cannot itself supply.
			o.pause(state, "awaiting additional information")
			return
		}

		state.CurrentStage = next
		if next.IsTerminal() {
			if saveErr := o.cfg.State.Save(state); saveErr != nil {
				o.cfg.Logger.Printf("[ORCHESTRATOR] save state failed for %s/%s: %v", companyID, projectID, saveErr)
				return
			}
			o.finalize(state, next)
			return
		}

		if err := o.cfg.State.Save(state); err != nil {
			o.cfg.Logger.Printf("[ORCHESTRATOR] save state failed for %s/%s: %v", companyID, projectID, err)
			return
		}
		o.publish(state, fmt.Sprintf("advanced to %s", next))
	}
}

// finalize records the terminal decision on the DefenseFile and publishes a
// completed/rejected StatusBoard record.
func (o *Orchestrator) finalize(state domain.DeliberationState, terminal domain.Stage) {
	final := domain.DecisionReject
	if terminal == domain.StageApproved {
		final = domain.DecisionApprove
	}

	lastReasoning := ""
	if r, ok := state.StageResults[o.priorStage(state)]; ok {
		lastReasoning = r.Reasoning
	}

	state.Status = domain.StatusCompleted
	if err := o.cfg.DefenseFile.SetFinal(state.ProjectID, state.CompanyID, final, lastReasoning); err != nil {
		o.cfg.Logger.Printf("[ORCHESTRATOR] setFinal failed for %s/%s: %v", state.CompanyID, state.ProjectID, err)
	}
	if err := o.cfg.State.Save(state); err != nil {
		o.cfg.Logger.Printf("[ORCHESTRATOR] save final state failed for %s/%s: %v", state.CompanyID, state.ProjectID, err)
	}

	message := "deliberation approved"
	if final == domain.DecisionReject {
		message = "deliberation rejected"
	}
	o.publish(state, message)
}

// priorStage finds the last non-terminal stage with a recorded result; its
// reasoning becomes the final rationale finalize records on the
// DefenseFile.
func (o *Orchestrator) priorStage(state domain.DeliberationState) domain.Stage {
	stages := o.cfg.Graph.Stages()
	for i := len(stages) - 1; i >= 0; i-- {
		if _, ok := state.StageResults[stages[i]]; ok {
			return stages[i]
		}
	}
	return ""
}

func (o *Orchestrator) fail(state domain.DeliberationState, err error) {
	state.Status = domain.StatusFailed
	state.FailedStage = state.CurrentStage
	state.LastError = err.Error()
	if saveErr := o.cfg.State.Save(state); saveErr != nil {
		o.cfg.Logger.Printf("[ORCHESTRATOR] save failed-state failed for %s/%s: %v", state.CompanyID, state.ProjectID, saveErr)
	}
	o.publish(state, fmt.Sprintf("stage %s failed: %v", state.FailedStage, err))
}

func (o *Orchestrator) failLoaded(projectID, companyID string, err error) {
	state, loadErr := o.cfg.State.Load(projectID, companyID)
	if loadErr != nil {
		o.cfg.Logger.Printf("[ORCHESTRATOR] cannot load state to record failure for %s/%s: %v", companyID, projectID, loadErr)
		return
	}
	o.fail(state, err)
}

func (o *Orchestrator) pause(state domain.DeliberationState, message string) {
	state.Status = domain.StatusPaused
	if err := o.cfg.State.Save(state); err != nil {
		o.cfg.Logger.Printf("[ORCHESTRATOR] save paused-state failed for %s/%s: %v", state.CompanyID, state.ProjectID, err)
	}
	o.publish(state, message)
}

func (o *Orchestrator) pauseLoaded(projectID, companyID, message string) {
	state, err := o.cfg.State.Load(projectID, companyID)
	if err != nil {
		return
	}
	if state.Status != domain.StatusInProgress {
		return
	}
	o.pause(state, message)
}

// publish computes progressPercent from the StageGraph's ordered stage list
// and writes the resulting Progress to the StatusBoard.
func (o *Orchestrator) publish(state domain.DeliberationState, message string) {
	o.cfg.Board.Push(o.progressFor(state, message))
}

func (o *Orchestrator) progressFor(state domain.DeliberationState, message string) statusboard.Progress {
	total := o.cfg.Graph.TotalStages()
	completed := len(state.StageResults)
	percent := 0
	if total > 0 {
		percent = completed * 100 / total
	}
	if state.Status == domain.StatusCompleted {
		percent = 100
	}

	agentStatuses := make(map[string]string)
	for stage, result := range state.StageResults {
		if agentID, ok := o.cfg.Graph.AgentFor(stage); ok {
			agentStatuses[agentID] = string(result.Decision)
		}
	}
	if state.Status == domain.StatusInProgress && !state.CurrentStage.IsTerminal() {
		if agentID, ok := o.cfg.Graph.AgentFor(state.CurrentStage); ok {
			if _, done := state.StageResults[state.CurrentStage]; !done {
				agentStatuses[agentID] = "running"
			}
		}
	}

	return statusboard.Progress{
		ProjectID:        state.ProjectID,
		CompanyID:        state.CompanyID,
		Status:           state.Status,
		Stage:            state.CurrentStage,
		ProgressPercent:  percent,
		PerAgentStatuses: agentStatuses,
		Message:          message,
		UpdatedAt:        o.cfg.Now(),
		Error:            state.LastError,
	}
}
