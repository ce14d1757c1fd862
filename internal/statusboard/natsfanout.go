package statusboard

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NatsFanout republishes every Board update onto a NATS subject scoped to
// (companyId, projectId), so an external dashboard can subscribe instead of
// polling getStatus.
type NatsFanout struct {
	conn   *nats.Conn
	prefix string
	logger *log.Logger
}

// NewNatsFanout wires fan-out onto an already-connected NATS client. prefix
// defaults to "deliberation.status" if empty.
func NewNatsFanout(conn *nats.Conn, prefix string, logger *log.Logger) *NatsFanout {
	if prefix == "" {
		prefix = "deliberation.status"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &NatsFanout{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the fan-out subject for one project's progress updates.
func (f *NatsFanout) Subject(companyID, projectID string) string {
	return fmt.Sprintf("%s.%s.%s", f.prefix, companyID, projectID)
}

// Publish is a Board write observer: call it alongside Board.Push to also
// fan the update out over NATS. A publish failure is logged and swallowed;
// the in-memory Board and the persisted DeliberationState remain the
// source of truth; NATS delivery is best-effort.
func (f *NatsFanout) Publish(p Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		f.logger.Printf("[STATUSBOARD] marshal progress for fanout failed: %v", err)
		return
	}
	if err := f.conn.Publish(f.Subject(p.CompanyID, p.ProjectID), data); err != nil {
		f.logger.Printf("[STATUSBOARD] nats publish failed for %s: %v", p.ProjectID, err)
	}
}

// ObservedBoard wraps a Board so every Push also fans out over NATS,
// without callers needing to remember to call both.
type ObservedBoard struct {
	*Board
	fanout *NatsFanout
}

// NewObservedBoard composes a Board with a NatsFanout observer.
func NewObservedBoard(board *Board, fanout *NatsFanout) *ObservedBoard {
	return &ObservedBoard{Board: board, fanout: fanout}
}

// Push writes to the underlying Board then best-effort fans the same
// record out over NATS.
func (o *ObservedBoard) Push(p Progress) {
	o.Board.Push(p)
	if o.fanout != nil {
		o.fanout.Publish(p)
	}
}
