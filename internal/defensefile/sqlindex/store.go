package sqlindex

import (
	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/domain"
)

// IndexedStore decorates a defensefile.Store, keeping an Index in sync
// with every write. It implements defensefile.Store itself, so a
// composition root can hand it to AgentRunner/Orchestrator exactly where
// a plain FileStore would go; the index is an implementation detail of
// the decorator, not a separate dependency those callers need to know
// about.
type IndexedStore struct {
	inner defensefile.Store
	index *Index
}

// NewIndexedStore wraps inner with idx. Every successful write to inner is
// mirrored into idx by re-reading the just-written document, so the index
// can never drift from what mutate actually persisted.
func NewIndexedStore(inner defensefile.Store, idx *Index) *IndexedStore {
	return &IndexedStore{inner: inner, index: idx}
}

func (s *IndexedStore) reindex(projectID, companyID string) error {
	df, err := s.inner.GetOrCreate(projectID, companyID)
	if err != nil {
		return err
	}
	return s.index.Upsert(df)
}

func (s *IndexedStore) GetOrCreate(projectID, companyID string) (*domain.DefenseFile, error) {
	return s.inner.GetOrCreate(projectID, companyID)
}

func (s *IndexedStore) RecordProject(projectID, companyID string, project domain.Project) error {
	if err := s.inner.RecordProject(projectID, companyID, project); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) AppendDecision(projectID, companyID string, decision domain.AgentDecision) error {
	if err := s.inner.AppendDecision(projectID, companyID, decision); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) AppendRetrieval(projectID, companyID, agentID, query string, results []domain.RetrievalResult) error {
	if err := s.inner.AppendRetrieval(projectID, companyID, agentID, query, results); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) AppendNotification(projectID, companyID string, notification domain.NotificationRecord) error {
	if err := s.inner.AppendNotification(projectID, companyID, notification); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) AddArtifact(projectID, companyID string, artifact domain.ArtifactPointer) error {
	if err := s.inner.AddArtifact(projectID, companyID, artifact); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) AddAgentOpinion(projectID, companyID string, opinion domain.AgentOpinion) error {
	if err := s.inner.AddAgentOpinion(projectID, companyID, opinion); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) SetFinal(projectID, companyID string, decision domain.Decision, rationale string) error {
	if err := s.inner.SetFinal(projectID, companyID, decision, rationale); err != nil {
		return err
	}
	return s.reindex(projectID, companyID)
}

func (s *IndexedStore) ReadAll(companyID string) ([]*domain.DefenseFile, error) {
	return s.inner.ReadAll(companyID)
}

func (s *IndexedStore) Export(projectID, companyID string) (defensefile.Export, error) {
	return s.inner.Export(projectID, companyID)
}
