// Package retrieval defines the abstract context-retrieval collaborator
// and a deterministic in-memory reference implementation
// for tests and the demo composition root.
package retrieval

import (
	"context"

	"github.com/revisoria/deliberation/internal/domain"
)

// Port retrieves supporting context for an agent's query. Callers must
// treat a non-nil error as retrieval degradation, not fatal to the stage:
// AgentRunner proceeds with an empty result set rather than failing the
// stage when Retrieve errors.
type Port interface {
	Retrieve(ctx context.Context, companyID, agentID, query string, limit int) ([]domain.RetrievalResult, error)
}

// StaticPort is a deterministic reference Port keyed by exact query
// string; no live embedding search behind it.
type StaticPort struct {
	byQuery map[string][]domain.RetrievalResult
}

// NewStaticPort builds a Port over a fixed query->results table.
func NewStaticPort(byQuery map[string][]domain.RetrievalResult) *StaticPort {
	return &StaticPort{byQuery: byQuery}
}

func (p *StaticPort) Retrieve(ctx context.Context, companyID, agentID, query string, limit int) ([]domain.RetrievalResult, error) {
	results := p.byQuery[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
