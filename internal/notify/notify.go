// Package notify defines the abstract outbound-notification collaborator
// and a recording wrapper that appends every successfully-sent notification onto
// a project's DefenseFile.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/domain"
)

// Notification is one outbound message the core wants sent, independent of
// transport (email, a provider's own messaging API, a desktop toast).
type Notification struct {
	Kind      string // "email" | "provider_communication" | "toast"
	Recipient string
	Subject   string
	Body      string
}

// Notifier sends one notification. A non-nil error means the message was
// not delivered; the core never retries a failed notifier call itself,
// and the RecordingNotifier below does not append a NotificationRecord for a call
// that returned an error.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// RecordingNotifier sends through an inner Notifier, then records the sent
// notification onto the project's DefenseFile, the same
// send-then-append-evidence shape AgentRunner uses for retrieval and
// decisions.
type RecordingNotifier struct {
	inner       Notifier
	defenseFile defensefile.Store
	now         func() time.Time
}

// NewRecordingNotifier wires an inner Notifier to a DefenseFile store.
func NewRecordingNotifier(inner Notifier, defenseFile defensefile.Store) *RecordingNotifier {
	return &RecordingNotifier{inner: inner, defenseFile: defenseFile, now: func() time.Time { return time.Now().UTC() }}
}

// Send delivers n through the inner Notifier and, on success, appends a
// NotificationRecord to projectID's DefenseFile. The materialidad
// compliance bit is satisfied in part by a project having at least one
// recorded notification, so a send that is never recorded never
// counts.
func (r *RecordingNotifier) Send(ctx context.Context, projectID, companyID string, n Notification) error {
	if err := r.inner.Notify(ctx, n); err != nil {
		return err
	}

	record := domain.NotificationRecord{
		ID:         uuid.NewString(),
		Kind:       n.Kind,
		Recipient:  n.Recipient,
		Subject:    n.Subject,
		Body:       n.Body,
		SentAt:     r.now(),
		RecordedAt: r.now(),
	}
	return r.defenseFile.AppendNotification(projectID, companyID, record)
}

// NoopNotifier discards every notification, for tests and deployments that
// have not wired a real transport yet.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, n Notification) error { return nil }
