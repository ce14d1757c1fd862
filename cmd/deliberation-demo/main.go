// Command deliberation-demo is the composition root: it wires every
// component built for the deliberation core into one runnable HTTP
// process. It is a reference wiring, not a production deployment: auth is
// a header-based stand-in, the retrieval port is an empty static port, and
// the model port is a scripted one unless ANTHROPIC_API_KEY is set.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/revisoria/deliberation/internal/agentrunner"
	"github.com/revisoria/deliberation/internal/config"
	"github.com/revisoria/deliberation/internal/defensefile"
	"github.com/revisoria/deliberation/internal/defensefile/sqlindex"
	"github.com/revisoria/deliberation/internal/delibstate"
	"github.com/revisoria/deliberation/internal/domain"
	"github.com/revisoria/deliberation/internal/metrics"
	"github.com/revisoria/deliberation/internal/modelport"
	anthropicport "github.com/revisoria/deliberation/internal/modelport/anthropic"
	"github.com/revisoria/deliberation/internal/notify"
	"github.com/revisoria/deliberation/internal/notify/toast"
	"github.com/revisoria/deliberation/internal/orcherrors"
	"github.com/revisoria/deliberation/internal/orchestrator"
	"github.com/revisoria/deliberation/internal/orchestrator/statuspush"
	"github.com/revisoria/deliberation/internal/quota"
	"github.com/revisoria/deliberation/internal/retrieval"
	"github.com/revisoria/deliberation/internal/statusboard"
	"github.com/revisoria/deliberation/internal/tenant"
)

func main() {
	addr := flag.String("addr", ":8090", "HTTP listen address")
	dataDir := flag.String("data", "data", "Directory for sqlite databases and defense file documents")
	configPath := flag.String("config", "configs/deliberation.yaml", "Stage graph / agent registry / plan table / timeouts config")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("create data directory: %v", err)
	}

	bundle, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	quotaGate, err := quota.NewSQLiteGate(filepath.Join(*dataDir, "quota.db"))
	if err != nil {
		log.Fatalf("open quota gate: %v", err)
	}
	defer quotaGate.Close()

	stateStore, err := delibstate.NewSQLiteStore(filepath.Join(*dataDir, "state.db"))
	if err != nil {
		log.Fatalf("open deliberation state store: %v", err)
	}
	defer stateStore.Close()

	index, err := sqlindex.New(filepath.Join(*dataDir, "defense_index.db"))
	if err != nil {
		log.Fatalf("open defense file index: %v", err)
	}
	defer index.Close()

	fileStore := defensefile.NewFileStore(filepath.Join(*dataDir, "defense_files"))
	defenseFile := sqlindex.NewIndexedStore(fileStore, index)

	board := statusboard.New()

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// The breaker sits in front of the shared model backend so a persistent
	// outage fails fast across deliberations instead of each one separately
	// exhausting its retries.
	model := agentrunner.NewBreakerPort(demoModelPort(), "model-backend")

	runner := agentrunner.New(agentrunner.Config{
		Registry:         bundle.Registry,
		Retrieval:        demoRetrievalPort(),
		Model:            model,
		DefenseFile:      defenseFile,
		Logger:           log.Default(),
		Metrics:          collector,
		MaxModelAttempts: bundle.Timeouts.MaxModelAttempts,
		RetrievalK:       bundle.Timeouts.RetrievalK,
		RetrievalTimeout: bundle.Timeouts.RetrievalTimeout,
		ModelTimeout:     bundle.Timeouts.ModelTimeout,
	})

	orch := orchestrator.New(orchestrator.Config{
		Graph:                   bundle.Graph,
		Runner:                  runner,
		DefenseFile:             defenseFile,
		State:                   stateStore,
		Board:                   board,
		Quota:                   quotaGate,
		Logger:                  log.Default(),
		Metrics:                 collector,
		EstimatedTokensPerStage: bundle.Timeouts.EstimatedTokensPerStage,
		PlanName:                func(string) string { return quota.DefaultPlan },
	})

	notifier := notify.NewRecordingNotifier(demoNotifier(), defenseFile)

	srv := &server{orch: orch, board: board, defenseFile: defenseFile, notifier: notifier}

	router := mux.NewRouter()
	router.HandleFunc("/projects", srv.submitProject).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}", srv.getState).Methods(http.MethodGet)
	router.HandleFunc("/projects/{id}/resume", srv.resume).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/cancel", srv.cancel).Methods(http.MethodPost)
	router.HandleFunc("/projects/{id}/export", srv.export).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	statuspush.New(orch, resolveTenant, time.Second, log.Default()).Register(router)

	httpServer := &http.Server{Addr: *addr, Handler: router}

	go func() {
		log.Printf("[DEMO] listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	log.Println("[DEMO] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("[DEMO] shutdown error: %v", err)
	}
}

// demoModelPort returns the real Anthropic-backed port when an API key is
// configured, and a canned scripted port otherwise, so the demo
// responds deterministically out of the box without credentials.
func demoModelPort() modelport.Port {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return anthropicport.New(anthropicport.Config{APIKey: key})
	}
	confidence := 0.8
	responses := make([]modelport.Response, 0, 10)
	for i := 0; i < 10; i++ {
		responses = append(responses, modelport.Response{
			Decision: domain.DecisionApprove,
			Reasoning: "Documented razon de negocios, a quantifiable beneficio economico, and " +
				"materialidad evidence all support proceeding.",
			Confidence: &confidence,
		})
	}
	return modelport.NewScriptedPort(responses, nil)
}

func demoRetrievalPort() retrieval.Port {
	return retrieval.NewStaticPort(map[string][]domain.RetrievalResult{})
}

// demoNotifier prefers a real Windows toast when running on Windows, and
// otherwise logs notifications instead of dropping them, since the demo
// has nowhere else to surface a "needs input" alert.
func demoNotifier() notify.Notifier {
	t := toast.New("deliberation-demo", "http://localhost:8090")
	if t.IsSupported() {
		return t
	}
	return loggingNotifier{}
}

type loggingNotifier struct{}

func (loggingNotifier) Notify(_ context.Context, n notify.Notification) error {
	log.Printf("[NOTIFY] %s: %s: %s", n.Kind, n.Subject, n.Body)
	return nil
}

// resolveTenant is the demo's stand-in for real session/JWT
// authentication: X-Company-Id/X-User-Id/X-Admin headers identify the
// caller. A real deployment replaces this function only; nothing else in
// this file depends on how authentication works.
func resolveTenant(r *http.Request) (tenant.Context, error) {
	companyID := r.Header.Get("X-Company-Id")
	if companyID == "" {
		return tenant.Context{}, &orcherrors.Error{Kind: orcherrors.KindAuthFailure, Message: "X-Company-Id header is required", Wrapped: orcherrors.ErrNotAuthenticated}
	}
	userID := r.Header.Get("X-User-Id")
	isAdmin := r.Header.Get("X-Admin") == "true"
	return tenant.New(userID, companyID, []string{companyID}, isAdmin, true), nil
}

type server struct {
	orch        *orchestrator.Orchestrator
	board       *statusboard.Board
	defenseFile defensefile.Store
	notifier    *notify.RecordingNotifier
}

func (s *server) submitProject(w http.ResponseWriter, r *http.Request) {
	tctx, err := resolveTenant(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var project domain.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		writeError(w, orcherrors.InputInvalid("malformed request body"))
		return
	}

	result, err := s.orch.Start(r.Context(), project, tctx)
	if err != nil {
		writeError(w, err)
		return
	}

	go s.notifyOnCompletion(result.ProjectID, project.CompanyID)

	writeJSON(w, http.StatusAccepted, result)
}

func (s *server) getState(w http.ResponseWriter, r *http.Request) {
	tctx, err := resolveTenant(r)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := s.orch.GetState(mux.Vars(r)["id"], tctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *server) resume(w http.ResponseWriter, r *http.Request) {
	tctx, err := resolveTenant(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.orch.Resume(mux.Vars(r)["id"], tctx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) cancel(w http.ResponseWriter, r *http.Request) {
	tctx, err := resolveTenant(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.orch.Cancel(mux.Vars(r)["id"], tctx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) export(w http.ResponseWriter, r *http.Request) {
	tctx, err := resolveTenant(r)
	if err != nil {
		writeError(w, err)
		return
	}
	projectID := mux.Vars(r)["id"]
	if err := tenant.Authorize(tctx, tctx.CompanyID); err != nil {
		writeError(w, err)
		return
	}
	export, err := s.defenseFile.Export(projectID, tctx.CompanyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// notifyOnCompletion polls the StatusBoard until projectID reaches a
// terminal status, then sends one notification recording the outcome on
// the DefenseFile, demonstrating the notify package's send-then-record
// wiring without the core Orchestrator taking a direct dependency on it.
func (s *server) notifyOnCompletion(projectID, companyID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for i := 0; i < 300; i++ {
		<-ticker.C
		progress, err := s.board.Get(projectID, companyID)
		if err != nil {
			continue
		}
		if !progress.Status.IsTerminal() {
			continue
		}
		s.notifier.Send(context.Background(), projectID, companyID, notify.Notification{
			Kind:      "deliberation.completed",
			Recipient: companyID,
			Subject:   fmt.Sprintf("Deliberation %s finished", projectID),
			Body:      fmt.Sprintf("Status: %s, stage: %s", progress.Status, progress.Stage),
		})
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}
	if structured, ok := orcherrors.AsStructured(err); ok {
		switch structured.Kind {
		case orcherrors.KindNotFound:
			status = http.StatusNotFound
		case orcherrors.KindAuthFailure:
			switch {
			case errors.Is(err, orcherrors.ErrNoTenantSelected):
				status = http.StatusBadRequest
				body["code"] = "EMPRESA_HEADER_REQUIRED"
			case errors.Is(err, orcherrors.ErrTenantNotAuthorized):
				status = http.StatusForbidden
				body["code"] = "EMPRESA_NOT_AUTHORIZED"
			default:
				status = http.StatusUnauthorized
				body["code"] = "AUTHENTICATION_REQUIRED"
			}
		case orcherrors.KindInputInvalid:
			status = http.StatusBadRequest
		case orcherrors.KindQuotaExceeded:
			status = http.StatusTooManyRequests
			body["code"] = "QUOTA_EXCEEDED"
			body["resetAt"] = structured.ResetAt.Format(time.RFC3339)
			body["plan"] = structured.Plan
		case orcherrors.KindNotResumable:
			status = http.StatusConflict
		}
	}
	writeJSON(w, status, body)
}
