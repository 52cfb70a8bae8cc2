// Package api exposes RDIE checkout runs over HTTP: submit a CheckoutRequest,
// fetch a CheckoutRun's terminal result, and stream its progress over a
// WebSocket, mirroring the teacher's workflow/run handler split but against
// the orchestrator's CheckoutRun model instead of WorkflowDefinition/Run.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/bravebird/rdie/pkg/database"
	"github.com/bravebird/rdie/pkg/orchestrator"
)

// Handlers holds the collaborators every endpoint needs.
type Handlers struct {
	db             *database.DB
	temporalClient client.Client
	taskQueue      string
	screenshotDir  string
	logger         *zap.SugaredLogger
	upgrader       websocket.Upgrader
}

// NewHandlers constructs the API Handlers.
func NewHandlers(db *database.DB, temporalClient client.Client, taskQueue, screenshotDir string, logger *zap.SugaredLogger) *Handlers {
	return &Handlers{
		db:             db,
		temporalClient: temporalClient,
		taskQueue:      taskQueue,
		screenshotDir:  screenshotDir,
		logger:         logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ==================== Checkout Run Handlers ====================

// SubmitCheckoutRun starts a new CheckoutWorkflow for a CheckoutRequest and
// records a CheckoutRun.
func (h *Handlers) SubmitCheckoutRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orchestrator.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TargetURL == "" {
		http.Error(w, "target_url is required", http.StatusBadRequest)
		return
	}
	if len(req.Intents) == 0 {
		http.Error(w, "at least one intent is required", http.StatusBadRequest)
		return
	}
	for i := range req.Intents {
		if req.Intents[i].ID == "" {
			req.Intents[i].ID = uuid.New().String()
		}
	}

	runID := uuid.New().String()
	requestJSON, _ := json.Marshal(req)

	run := &orchestrator.CheckoutRun{
		ID:          runID,
		TargetURL:   req.TargetURL,
		Status:      orchestrator.StatusPending,
		RequestJSON: string(requestJSON),
	}

	if h.db != nil {
		if err := h.db.CreateCheckoutRun(ctx, run); err != nil {
			http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("rdie-checkout-%s", runID),
		TaskQueue: h.taskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, "CheckoutWorkflow", req)
	if err != nil {
		if h.db != nil {
			h.db.UpdateCheckoutRunStatus(ctx, runID, orchestrator.StatusFailed, err.Error())
		}
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	run.TemporalWorkflowID = we.GetID()
	run.TemporalRunID = we.GetRunID()
	run.Status = orchestrator.StatusRunning
	now := time.Now()
	run.StartedAt = &now

	if h.db != nil {
		h.db.CreateCheckoutRun(ctx, run) // refresh with Temporal IDs
	}

	respondJSON(w, map[string]interface{}{
		"run_id":               runID,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               orchestrator.StatusRunning,
	})
}

// ListCheckoutRuns lists recent checkout runs.
func (h *Handlers) ListCheckoutRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	runs, err := h.db.ListCheckoutRuns(ctx, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, runs)
}

// GetCheckoutRun retrieves a checkout run and its Intent outcomes.
func (h *Handlers) GetCheckoutRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetCheckoutRun(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	outcomes, _ := h.db.GetIntentOutcomes(ctx, id)
	run.Outcomes = outcomes

	respondJSON(w, run)
}

// CancelCheckoutRun cancels a running checkout run.
func (h *Handlers) CancelCheckoutRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if h.db == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.db.GetCheckoutRun(ctx, id)
	if err != nil || run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if run.TemporalWorkflowID != "" {
		if err := h.temporalClient.CancelWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID); err != nil {
			http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	h.db.UpdateCheckoutRunStatus(ctx, id, orchestrator.StatusCanceled, "canceled by user")

	respondJSON(w, map[string]string{"status": "canceled"})
}

// StreamCheckoutRun streams run progress over a WebSocket, querying the
// live Temporal workflow first and falling back to the database.
func (h *Handlers) StreamCheckoutRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastStatus := ""
	lastOutcomeCount := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var status orchestrator.RunStatus
			var outcomes []orchestrator.IntentOutcome

			if h.temporalClient != nil {
				queryResp, err := h.temporalClient.QueryWorkflow(ctx, fmt.Sprintf("rdie-checkout-%s", runID), "", "getProgress")
				if err == nil {
					var result orchestrator.CheckoutResult
					if queryResp.Get(&result) == nil {
						status = result.Status
						outcomes = result.Outcomes
					}
				}
			}

			if status == "" && h.db != nil {
				run, err := h.db.GetCheckoutRun(ctx, runID)
				if err != nil || run == nil {
					continue
				}
				status = run.Status
				results, _ := h.db.GetIntentOutcomes(ctx, runID)
				outcomes = results
			}

			if string(status) != lastStatus || len(outcomes) != lastOutcomeCount {
				msg := orchestrator.WSMessage{
					Type: "run_update",
					Payload: map[string]interface{}{
						"run_id":   runID,
						"status":   status,
						"outcomes": outcomes,
					},
				}
				conn.WriteJSON(msg)

				lastStatus = string(status)
				lastOutcomeCount = len(outcomes)

				if status == orchestrator.StatusSuccess || status == orchestrator.StatusFailed || status == orchestrator.StatusCanceled {
					return
				}
			}
		}
	}
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a screenshot captured during a run.
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	filePath := filepath.Join(h.screenshotDir, filepath.Base(filename))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
