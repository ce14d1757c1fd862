// Package toast is a concrete notify.Notifier that raises a Windows toast
// for kinds that warrant an operator's immediate attention. Support is
// runtime.GOOS-gated rather than hidden behind a Windows-only build tag,
// since go-toast/toast itself compiles everywhere
// and only fails at Push time off-platform.
package toast

import (
	"context"
	"fmt"
	"runtime"

	gotoast "github.com/go-toast/toast"

	"github.com/revisoria/deliberation/internal/notify"
)

// Notifier raises a toast for each notify.Notification it receives.
type Notifier struct {
	appID        string
	dashboardURL string
}

// New builds a Notifier. dashboardURL is used as the toast's click-through
// action target; appID defaults to the module name if empty.
func New(appID, dashboardURL string) *Notifier {
	if appID == "" {
		appID = "deliberation"
	}
	return &Notifier{appID: appID, dashboardURL: dashboardURL}
}

// Notify raises a Windows toast notification. Off Windows it returns an
// error rather than silently discarding, so a caller that actually needs
// delivery confirmation (and records via notify.RecordingNotifier) finds
// out immediately rather than getting a false "sent" record.
func (n *Notifier) Notify(ctx context.Context, msg notify.Notification) error {
	if runtime.GOOS != "windows" {
		return fmt.Errorf("toast notifications only supported on Windows")
	}

	notification := gotoast.Notification{
		AppID:   n.appID,
		Title:   msg.Subject,
		Message: msg.Body,
		Audio:   gotoast.Default,
	}
	if n.dashboardURL != "" {
		notification.Actions = []gotoast.Action{
			{Type: "protocol", Label: "Open", Arguments: n.dashboardURL},
		}
	}
	return notification.Push()
}

// IsSupported reports whether this platform can actually raise a toast.
func (n *Notifier) IsSupported() bool {
	return runtime.GOOS == "windows"
}
