// Package statuspush is a reference push adapter over the Orchestrator's
// required poll path (getStatus). Routing and transport stay outside the
// core, so this lives behind a small http.Handler the core never imports
// or calls itself: a composition root mounts it next to the rest of its
// routes. Each websocket connection subscribes to a single project rather
// than a global broadcast hub.
package statuspush

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/revisoria/deliberation/internal/orcherrors"
	"github.com/revisoria/deliberation/internal/statusboard"
	"github.com/revisoria/deliberation/internal/tenant"
)

// StatusReader is the subset of the Orchestrator this handler needs: a
// tenant-checked point read of the latest Progress.
type StatusReader interface {
	GetStatus(projectID string, tctx tenant.Context) (statusboard.Progress, error)
}

// TenantResolver extracts a tenant.Context from an inbound request. Real
// deployments wire this to whatever session/JWT middleware already
// authenticates the caller; it is intentionally left abstract here since
// authentication is out of this module's scope.
type TenantResolver func(r *http.Request) (tenant.Context, error)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves GET /projects/{id}/status (a plain poll, mirroring
// getStatus directly) and GET /ws/projects/{id} (a websocket that re-polls
// on an interval and pushes whenever the Progress changes).
type Handler struct {
	reader       StatusReader
	resolve      TenantResolver
	pollInterval time.Duration
	logger       *log.Logger
}

// New builds a Handler. pollInterval defaults to one second if zero.
func New(reader StatusReader, resolve TenantResolver, pollInterval time.Duration, logger *log.Logger) *Handler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{reader: reader, resolve: resolve, pollInterval: pollInterval, logger: logger}
}

// Register wires this handler's routes onto an existing mux.Router;
// sub-handlers share one router rather than owning their own listener.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/projects/{id}/status", h.serveStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws/projects/{id}", h.serveWebSocket).Methods(http.MethodGet)
}

func (h *Handler) serveStatus(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	tctx, err := h.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	progress, err := h.reader.GetStatus(projectID, tctx)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(progress)
}

// serveWebSocket upgrades the connection, then polls the Orchestrator's
// StatusBoard on pollInterval and pushes a JSON frame only when the
// progress record actually changes. This is a convenience layered on top
// of the poll path, not an independent event source.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]
	tctx, err := h.resolve(r)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("[STATUSPUSH] upgrade failed for %s: %v", projectID, err)
		return
	}
	defer conn.Close()

	client := &streamClient{conn: conn}
	var lastSent statusboard.Progress
	sent := false

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go client.drainIncoming(done)

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			progress, err := h.reader.GetStatus(projectID, tctx)
			if err != nil {
				return
			}
			if sent && progressUnchanged(progress, lastSent) {
				continue
			}
			if err := client.writeJSON(progress); err != nil {
				return
			}
			lastSent = progress
			sent = true
			if progress.Status.IsTerminal() {
				return
			}
		}
	}
}

// streamClient serializes writes to one websocket connection. No fan-out
// hub is needed since each connection only ever watches one project.
type streamClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// drainIncoming discards client->server frames (this stream is push-only)
// and closes done once the client disconnects, detected via a failed read.
func (c *streamClient) drainIncoming(done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// progressUnchanged compares the fields that matter for deciding whether to
// push a new frame. statusboard.Progress carries a map field, so it is not
// itself comparable with ==.
func progressUnchanged(a, b statusboard.Progress) bool {
	return a.Status == b.Status && a.Stage == b.Stage && a.ProgressPercent == b.ProgressPercent &&
		a.Message == b.Message && a.Error == b.Error
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if structured, ok := orcherrors.AsStructured(err); ok {
		switch structured.Kind {
		case orcherrors.KindNotFound:
			status = http.StatusNotFound
		case orcherrors.KindAuthFailure:
			status = http.StatusUnauthorized
		case orcherrors.KindInputInvalid:
			status = http.StatusBadRequest
		case orcherrors.KindQuotaExceeded:
			status = http.StatusTooManyRequests
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
