package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/folio/backend/internal/contracts"
	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/internal/scheduler"
	"github.com/wonny/folio/backend/pkg/logger"
)

// Orchestrator is the scheduler surface the control plane drives
type Orchestrator interface {
	Status() contracts.Status
	Arm(schedule, timezone string) error
	Disarm()
	TriggerNow(ctx context.Context) (*contracts.RunStats, bool)
	TriggerForUser(ctx context.Context, userID string) (scheduler.Outcome, error)
	RecentRuns(n int) []*contracts.RunStats
}

// SchedulerHandler handles the daily update control endpoints
// ⭐ SSOT: 스케줄러 제어 API는 이 구조체에서만
type SchedulerHandler struct {
	orch   Orchestrator
	logger *logger.Logger
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(orch Orchestrator, log *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		orch:   orch,
		logger: log,
	}
}

// ArmRequest optionally overrides the configured schedule
type ArmRequest struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

// Status returns the live scheduler state
// GET /api/scheduler/status
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.orch.Status())
}

// Arm registers the recurring timer
// POST /api/scheduler/arm
func (h *SchedulerHandler) Arm(w http.ResponseWriter, r *http.Request) {
	var req ArmRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if err := h.orch.Arm(req.Cron, req.Timezone); err != nil {
		var invalid *scheduler.InvalidScheduleError
		if errors.As(err, &invalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to arm scheduler")
		respondError(w, http.StatusInternalServerError, "Failed to arm scheduler")
		return
	}

	respondJSON(w, http.StatusOK, h.orch.Status())
}

// Disarm removes the recurring timer
// POST /api/scheduler/disarm
func (h *SchedulerHandler) Disarm(w http.ResponseWriter, r *http.Request) {
	h.orch.Disarm()
	respondJSON(w, http.StatusOK, h.orch.Status())
}

// Trigger runs the daily update now and returns its statistics.
// With ?async=true it returns 202 immediately.
// POST /api/scheduler/trigger
func (h *SchedulerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	// the run outlives a disconnecting client
	ctx := context.WithoutCancel(r.Context())

	if r.URL.Query().Get("async") == "true" {
		if h.orch.Status().IsProcessing {
			respondError(w, http.StatusConflict, "A run is already in progress")
			return
		}
		go h.orch.TriggerNow(ctx)
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
		return
	}

	stats, ran := h.orch.TriggerNow(ctx)
	if !ran {
		respondError(w, http.StatusConflict, "A run is already in progress")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// TriggerUser updates one user now
// POST /api/scheduler/trigger/{userID}
func (h *SchedulerHandler) TriggerUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	outcome, err := h.orch.TriggerForUser(context.WithoutCancel(r.Context()), userID)
	if err != nil {
		respondError(w, userErrorStatus(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"outcome": outcome,
	})
}

func userErrorStatus(err error) int {
	var both *marketdata.BothProvidersFailedError
	switch {
	case errors.Is(err, contracts.ErrUserNotFound):
		return http.StatusNotFound
	case scheduler.IsNonRetryable(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &both):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Runs lists recent runs, newest first
// GET /api/scheduler/runs?limit=N
func (h *SchedulerHandler) Runs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs := h.orch.RecentRuns(limit)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
