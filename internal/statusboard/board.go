// Package statusboard is the in-memory, sharded progress record the
// Orchestrator publishes to after each completed stage and callers poll.
// Writes are O(1) and never block the orchestration loop; reads are
// tenant-checked so a caller whose company id does not match a
// record's receives "not found", never the record.
package statusboard

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/orcherrors"
)

// Progress is the latest snapshot of a deliberation's execution, the value
// the Orchestrator publishes after each stage completes.
type Progress struct {
	ProjectID        string                    `json:"projectId"`
	CompanyID        string                    `json:"companyId"`
	Status           domain.DeliberationStatus `json:"status"`
	Stage            domain.Stage              `json:"stage"`
	ProgressPercent  int                       `json:"progressPercent"`
	PerAgentStatuses map[string]string         `json:"perAgentStatuses,omitempty"`
	Message          string                    `json:"message,omitempty"`
	UpdatedAt        time.Time                 `json:"updatedAt"`
	Error            string                    `json:"error,omitempty"`
}

const shardCount = 32

// shard holds one partition of the board, each guarded by its own lock so
// unrelated projects never contend.
type shard struct {
	mu      sync.RWMutex
	records map[string]Progress
}

// Board is the sharded map from project id to its latest Progress record.
type Board struct {
	shards [shardCount]*shard
}

// New builds an empty Board with shardCount independently-locked shards.
func New() *Board {
	b := &Board{}
	for i := range b.shards {
		b.shards[i] = &shard{records: make(map[string]Progress)}
	}
	return b
}

func (b *Board) shardFor(projectID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(projectID))
	return b.shards[h.Sum32()%shardCount]
}

// Push writes (or overwrites) the progress record for a project. This is
// the only mutation path and is O(1): it never blocks the orchestration
// loop on another project's shard.
func (b *Board) Push(p Progress) {
	s := b.shardFor(p.ProjectID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[p.ProjectID] = p
}

// Get performs a tenant-checked read: a caller whose companyID does not
// match the stored record's companyID receives orcherrors.ErrNotFound,
// identical to the truly-absent case, preventing tenant leakage.
func (b *Board) Get(projectID, companyID string) (Progress, error) {
	s := b.shardFor(projectID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[projectID]
	if !ok || p.CompanyID != companyID {
		return Progress{}, orcherrors.NotFound("project status")
	}
	return p, nil
}

// Delete removes a project's record, e.g. once it has been archived out of
// the in-memory board (not required by the core, but kept for symmetry
// with the persisted store's lifecycle).
func (b *Board) Delete(projectID string) {
	s := b.shardFor(projectID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, projectID)
}
