// Package stagegraph declares the ordered stages of a deliberation, the
// agent bound to each stage, and the legal transitions between them. The
// graph is a static table (the reference graphs have no cycles other than
// the request_info self-loop), and the core never auto-escalates a stalled
// self-loop.
package stagegraph

import "github.com/revisoria/deliberation/internal/domain"

// Transition names the next stage for each of the three decision outcomes
// a stage's bound agent can return.
type Transition struct {
	OnApprove domain.Stage
	// OnReject is always domain.StageRejected in the reference graph, but
	// the field exists so a caller-supplied graph could route differently
	// for a stage whose rejection should, e.g., fall back to an earlier
	// stage rather than terminate outright.
	OnReject domain.Stage
	// OnRequestInfo is always the stage itself (the self-loop); kept
	// explicit rather than implied so Next never has to special-case it.
	OnRequestInfo domain.Stage
}

// Node binds one stage to the agent that executes it and the transitions
// that decision produces.
type Node struct {
	Stage      domain.Stage
	AgentID    string
	Transition Transition
}

// Graph is the static, ordered transition table the Orchestrator consults.
// The reference graphs have no cycles other than each node's own
// request_info self-loop; New does not check a caller-supplied node list
// for cycles.
type Graph struct {
	nodes map[domain.Stage]Node
	order []domain.Stage
}

// New builds a Graph from an ordered list of nodes. The first node is the
// deliberation's entry stage.
func New(nodes []Node) *Graph {
	g := &Graph{nodes: make(map[domain.Stage]Node, len(nodes)), order: make([]domain.Stage, 0, len(nodes))}
	for _, n := range nodes {
		g.nodes[n.Stage] = n
		g.order = append(g.order, n.Stage)
	}
	return g
}

// EntryStage is the first non-terminal stage a new deliberation starts at.
func (g *Graph) EntryStage() domain.Stage {
	if len(g.order) == 0 {
		return domain.StageApproved
	}
	return g.order[0]
}

// AgentFor returns the agent id bound to stage, and whether stage is a
// known non-terminal node.
func (g *Graph) AgentFor(stage domain.Stage) (string, bool) {
	n, ok := g.nodes[stage]
	return n.AgentID, ok
}

// Next applies decision at the current stage, returning the stage the
// Orchestrator should transition to. An unknown stage
// (already terminal, or not part of this graph) returns itself unchanged.
func (g *Graph) Next(stage domain.Stage, decision domain.Decision) domain.Stage {
	n, ok := g.nodes[stage]
	if !ok {
		return stage
	}
	switch decision {
	case domain.DecisionApprove:
		return n.Transition.OnApprove
	case domain.DecisionReject:
		return n.Transition.OnReject
	default:
		return n.Transition.OnRequestInfo
	}
}

// TotalStages counts the non-terminal nodes, used by the Orchestrator's
// progressPercent computation.
func (g *Graph) TotalStages() int {
	return len(g.order)
}

// Stages returns the ordered stage list, entry stage first.
func (g *Graph) Stages() []domain.Stage {
	out := make([]domain.Stage, len(g.order))
	copy(out, g.order)
	return out
}

// IndexOf reports a stage's 0-based position in the ordered stage list,
// or -1 if it is not a node of this graph (e.g. a terminal sink).
func (g *Graph) IndexOf(stage domain.Stage) int {
	for i, s := range g.order {
		if s == stage {
			return i
		}
	}
	return -1
}

// Default builds the reference five-stage pipeline, with
// the optional E5_AUDITOR stage included. Use DefaultWithoutAuditor for the
// four-stage variant where E4_LEGAL approves straight to APPROVED.
func Default() *Graph {
	return New([]Node{
		{Stage: domain.StageStrategy, AgentID: "A1_SPONSOR", Transition: Transition{
			OnApprove: domain.StageFiscal, OnReject: domain.StageRejected, OnRequestInfo: domain.StageStrategy,
		}},
		{Stage: domain.StageFiscal, AgentID: "A2_FISCAL", Transition: Transition{
			OnApprove: domain.StageFinance, OnReject: domain.StageRejected, OnRequestInfo: domain.StageFiscal,
		}},
		{Stage: domain.StageFinance, AgentID: "A6_FINANCIERO", Transition: Transition{
			OnApprove: domain.StageLegal, OnReject: domain.StageRejected, OnRequestInfo: domain.StageFinance,
		}},
		{Stage: domain.StageLegal, AgentID: "A7_LEGAL", Transition: Transition{
			OnApprove: domain.StageAuditor, OnReject: domain.StageRejected, OnRequestInfo: domain.StageLegal,
		}},
		{Stage: domain.StageAuditor, AgentID: "A8_REDTEAM", Transition: Transition{
			OnApprove: domain.StageApproved, OnReject: domain.StageRejected, OnRequestInfo: domain.StageAuditor,
		}},
	})
}

// DefaultWithoutAuditor builds the four-stage pipeline where APPROVED is
// the sink reached directly from E4_LEGAL.
func DefaultWithoutAuditor() *Graph {
	return New([]Node{
		{Stage: domain.StageStrategy, AgentID: "A1_SPONSOR", Transition: Transition{
			OnApprove: domain.StageFiscal, OnReject: domain.StageRejected, OnRequestInfo: domain.StageStrategy,
		}},
		{Stage: domain.StageFiscal, AgentID: "A2_FISCAL", Transition: Transition{
			OnApprove: domain.StageFinance, OnReject: domain.StageRejected, OnRequestInfo: domain.StageFiscal,
		}},
		{Stage: domain.StageFinance, AgentID: "A6_FINANCIERO", Transition: Transition{
			OnApprove: domain.StageLegal, OnReject: domain.StageRejected, OnRequestInfo: domain.StageFinance,
		}},
		{Stage: domain.StageLegal, AgentID: "A7_LEGAL", Transition: Transition{
			OnApprove: domain.StageApproved, OnReject: domain.StageRejected, OnRequestInfo: domain.StageLegal,
		}},
	})
}
