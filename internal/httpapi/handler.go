package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"net/http"
	"strings"

	"klinik/antrian/internal/cache"
	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/models"
	"klinik/antrian/internal/queue"
	"klinik/antrian/internal/store"
)

// QueueService is what the handlers need from queue.Service.
type QueueService interface {
	TakeTicket(ctx context.Context, departmentID string) (models.QueueEntry, error)
	Call(ctx context.Context, id string, counterNumber int, patientID string) (models.QueueEntry, error)
	Start(ctx context.Context, id string) (models.QueueEntry, error)
	Complete(ctx context.Context, id string) (models.QueueEntry, error)
	Skip(ctx context.Context, id, reason string) (models.QueueEntry, error)
	Cancel(ctx context.Context, id, reason string) (models.QueueEntry, error)
	AssignPatient(ctx context.Context, id, patientID string) (models.QueueEntry, error)
	Recall(ctx context.Context, id string) (models.QueueEntry, error)
	GetEntry(ctx context.Context, id string) (models.QueueEntry, error)
	Events(ctx context.Context, id string) ([]models.QueueEvent, error)
	TodayQueues(ctx context.Context, departmentID string) (models.TodayQueues, error)
	Display(ctx context.Context, departmentID string) (models.QueueDisplaySnapshot, error)
	Stats(ctx context.Context, departmentID, date string) (models.QueueStats, error)
	ListSettings(ctx context.Context) ([]models.QueueSetting, error)
	GetSetting(ctx context.Context, departmentID string) (models.QueueSetting, error)
	PutSetting(ctx context.Context, setting models.QueueSetting) (models.QueueSetting, error)
}

type Handler struct {
	queue    QueueService
	cache    cache.SnapshotCache
	realtime http.Handler
}

type Options struct {
	// Cache serves GET /display when set.
	Cache cache.SnapshotCache
	// Realtime is mounted under /realtime/ when set.
	Realtime http.Handler
}

type takeTicketRequest struct {
	DepartmentID string `json:"department_id"`
}

type callRequest struct {
	CounterNumber int    `json:"counter_number"`
	PatientID     string `json:"patient_id"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type assignPatientRequest struct {
	PatientID string `json:"patient_id"`
}

type settingRequest struct {
	DepartmentName string `json:"department_name"`
	Prefix         string `json:"prefix"`
	DailyQuota     int    `json:"daily_quota"`
	StartNumber    int    `json:"start_number"`
	IsActive       *bool  `json:"is_active"`
}

type errorResponse struct {
	RequestID string        `json:"request_id"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(service QueueService, options Options) *Handler {
	return &Handler{
		queue:    service,
		cache:    options.Cache,
		realtime: options.Realtime,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", expvar.Handler())
	mux.HandleFunc("GET /display", h.handleDisplay)

	mux.HandleFunc("POST /queues", h.handleTakeTicket)
	mux.HandleFunc("GET /queues/today", h.handleToday)
	mux.HandleFunc("GET /queues/stats", h.handleStats)
	mux.HandleFunc("GET /queues/{id}", h.handleGetEntry)
	mux.HandleFunc("GET /queues/{id}/events", h.handleEntryEvents)
	mux.HandleFunc("PATCH /queues/{id}/{action}", h.handleEntryAction)

	mux.HandleFunc("GET /queue-settings", h.handleListSettings)
	mux.HandleFunc("GET /queue-settings/{department_id}", h.handleGetSetting)
	mux.HandleFunc("PUT /queue-settings/{department_id}", h.handlePutSetting)

	if h.realtime != nil {
		mux.Handle("/realtime/", h.realtime)
	}
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDisplay(w http.ResponseWriter, r *http.Request) {
	departmentID := strings.TrimSpace(r.URL.Query().Get("department_id"))
	snapshot, err := cache.ReadThrough(r.Context(), h.cache, departmentID, h.queue.Display)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleTakeTicket(w http.ResponseWriter, r *http.Request) {
	var req takeTicketRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	entry, err := h.queue.TakeTicket(r.Context(), req.DepartmentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	queues, err := h.queue.TodayQueues(r.Context(), r.URL.Query().Get("department_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queues)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stats, err := h.queue.Stats(r.Context(), query.Get("department_id"), query.Get("date"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.queue.GetEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleEntryEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.queue.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) handleEntryAction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.PathValue("action")

	var (
		entry models.QueueEntry
		err   error
	)
	switch action {
	case "call":
		var req callRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		entry, err = h.queue.Call(r.Context(), id, req.CounterNumber, req.PatientID)
	case "start":
		entry, err = h.queue.Start(r.Context(), id)
	case "complete":
		entry, err = h.queue.Complete(r.Context(), id)
	case "skip":
		var req reasonRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		entry, err = h.queue.Skip(r.Context(), id, req.Reason)
	case "cancel":
		var req reasonRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		entry, err = h.queue.Cancel(r.Context(), id, req.Reason)
	case "assign-patient":
		var req assignPatientRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		entry, err = h.queue.AssignPatient(r.Context(), id, req.PatientID)
	case "recall":
		entry, err = h.queue.Recall(r.Context(), id)
	default:
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "unknown queue action")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	logger := logging.FromContext(r.Context())
	logger.Info().
		Str("action", action).
		Str("entry_id", entry.ID).
		Str("queue_code", entry.QueueCode).
		Str("status", string(entry.Status)).
		Str("operator", operatorFromContext(r.Context())).
		Msg("queue action")
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.queue.ListSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.queue.GetSetting(r.Context(), r.PathValue("department_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (h *Handler) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	setting, err := h.queue.PutSetting(r.Context(), models.QueueSetting{
		DepartmentID:   r.PathValue("department_id"),
		DepartmentName: req.DepartmentName,
		Prefix:         req.Prefix,
		DailyQuota:     req.DailyQuota,
		StartNumber:    req.StartNumber,
		IsActive:       active,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapError(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, requestIDFromRequest(r), status, code, msg)
}

// decodeRequest reads an optional JSON body into target. An empty body
// leaves target zeroed; unknown fields are rejected.
func decodeRequest(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	var transitionErr *store.InvalidTransitionError
	switch {
	case errors.Is(err, queue.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, store.ErrEntryNotFound):
		return http.StatusNotFound, "not_found", "queue entry not found"
	case errors.Is(err, store.ErrSettingNotFound):
		return http.StatusNotFound, "not_found", "queue setting not found"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, store.ErrDepartmentInactive):
		return http.StatusConflict, "department_inactive", "department is not accepting tickets"
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusConflict, "quota_exceeded", "daily ticket quota reached"
	case errors.As(err, &transitionErr):
		return http.StatusConflict, "invalid_transition", transitionErr.Error()
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", "ticket state does not allow this action"
	case errors.Is(err, store.ErrCodeCollision):
		return http.StatusInternalServerError, "code_collision", "ticket code already issued"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}
