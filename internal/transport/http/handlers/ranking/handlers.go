package rankinghandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hsdash/internal/domain/audit"
	"hsdash/internal/domain/auth"
	"hsdash/internal/domain/ranking"
	"hsdash/internal/transport/http/api"
	"hsdash/internal/transport/http/middleware"
	"hsdash/internal/transport/http/shared"
)

type RankingService interface {
	Ranking(ctx context.Context, tenantID string, period ranking.Period, refresh bool) (ranking.Snapshot, error)
	Report(ctx context.Context, tenantID string, period ranking.Period, w io.Writer) error
	ListCriteria(ctx context.Context, tenantID string) ([]ranking.Criterion, error)
	GetCriterion(ctx context.Context, tenantID, criterionID string) (ranking.Criterion, error)
	CreateCriterion(ctx context.Context, tenantID string, c ranking.Criterion) (ranking.Criterion, error)
	UpdateCriterion(ctx context.Context, tenantID string, c ranking.Criterion) (ranking.Criterion, error)
	DeleteCriterion(ctx context.Context, tenantID, criterionID string) error
	WeightSummary(ctx context.Context, tenantID string) (ranking.WeightSummary, error)
	ImportScores(ctx context.Context, tenantID string, inputs []ranking.ScoreInput) (int, error)
	ListScores(ctx context.Context, tenantID string, period ranking.Period) ([]ranking.RawScore, error)
}

// Recomputer runs a recomputation as a recorded background job.
type Recomputer interface {
	RecomputeRanking(ctx context.Context, tenantID string, period ranking.Period) (ranking.Snapshot, error)
}

type IdempotencyStore interface {
	Check(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (middleware.StoredResponse, bool, error)
	Save(ctx context.Context, tenantID, userID, endpoint, key, requestHash string, resp middleware.StoredResponse) error
}

type Handler struct {
	Service     RankingService
	Jobs        Recomputer
	Audit       shared.Auditor
	Idempotency IdempotencyStore
	Perms       middleware.PermissionStore
}

func NewHandler(service RankingService, jobs Recomputer, auditor shared.Auditor, idem IdempotencyStore, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Jobs: jobs, Audit: auditor, Idempotency: idem, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/rankings", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRankingRead, h.Perms)).Get("/{period}", h.handleGetRanking)
		r.With(middleware.RequirePermission(auth.PermRankingRun, h.Perms)).Post("/{period}/recompute", h.handleRecompute)
		r.With(middleware.RequirePermission(auth.PermRankingRead, h.Perms)).Get("/{period}/report.pdf", h.handleReport)
	})
	r.Route("/criteria", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCriteriaRead, h.Perms)).Get("/", h.handleListCriteria)
		r.With(middleware.RequirePermission(auth.PermCriteriaRead, h.Perms)).Get("/weights", h.handleWeights)
		r.With(middleware.RequirePermission(auth.PermCriteriaWrite, h.Perms)).Post("/", h.handleCreateCriterion)
		r.With(middleware.RequirePermission(auth.PermCriteriaWrite, h.Perms)).Put("/{criterionID}", h.handleUpdateCriterion)
		r.With(middleware.RequirePermission(auth.PermCriteriaWrite, h.Perms)).Delete("/{criterionID}", h.handleDeleteCriterion)
	})
	r.Route("/scores", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermScoresRead, h.Perms)).Get("/", h.handleListScores)
		r.With(middleware.RequirePermission(auth.PermScoresWrite, h.Perms)).Post("/", h.handleImportScores)
	})
}

type criterionRequest struct {
	Key          string  `json:"key" validate:"max=64"`
	Name         string  `json:"name" validate:"required,max=120"`
	Weight       float64 `json:"weight" validate:"gte=0,lte=100"`
	Direction    string  `json:"direction" validate:"required,oneof=higher_is_better lower_is_better"`
	Active       *bool   `json:"active"`
	DisplayOrder int     `json:"displayOrder" validate:"gte=0"`
}

func (p criterionRequest) criterion(id string) ranking.Criterion {
	active := true
	if p.Active != nil {
		active = *p.Active
	}
	return ranking.Criterion{
		ID:           id,
		Key:          ranking.CriterionKey(p.Key),
		Name:         p.Name,
		Weight:       p.Weight,
		Direction:    p.Direction,
		Active:       active,
		DisplayOrder: p.DisplayOrder,
	}
}

type importRequest struct {
	Scores []ranking.ScoreInput `json:"scores" validate:"required,min=1,max=5000,dive"`
}

type importResponse struct {
	Imported int `json:"imported"`
}

// periodParam parses the {period} URL parameter and writes a validation
// error when it is malformed.
func periodParam(w http.ResponseWriter, r *http.Request) (ranking.Period, bool) {
	raw := chi.URLParam(r, "period")
	period, err := ranking.ParsePeriod(raw)
	if err != nil {
		v := shared.NewValidator()
		v.Add("period", "must be YYYY-MM, YYYY-MM-DD or consolidated")
		v.Reject(w, middleware.GetRequestID(r.Context()))
		return ranking.Period{}, false
	}
	return period, true
}

// fail maps domain errors onto the response envelope.
func fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, ranking.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), reqID)
	case errors.Is(err, ranking.ErrInvalidPeriod),
		errors.Is(err, ranking.ErrInvalidCriterion),
		errors.Is(err, ranking.ErrInvalidScore):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), reqID)
	default:
		slog.Warn(message, "path", r.URL.Path, "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, ok := periodParam(w, r)
	if !ok {
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	snap, err := h.Service.Ranking(r.Context(), user.TenantID, period, refresh)
	if err != nil {
		fail(w, r, err, "ranking_failed", "failed to compute ranking")
		return
	}
	api.Success(w, snap, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRecompute(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, ok := periodParam(w, r)
	if !ok {
		return
	}

	snap, err := h.Jobs.RecomputeRanking(r.Context(), user.TenantID, period)
	if err != nil {
		fail(w, r, err, "ranking_failed", "failed to recompute ranking")
		return
	}

	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionRankingRun, audit.EntityRanking, period.String(),
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil,
		map[string]any{"employees": len(snap.Results), "warnings": snap.Warnings})
	api.Success(w, snap, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, ok := periodParam(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.Service.Report(r.Context(), user.TenantID, period, &buf); err != nil {
		fail(w, r, err, "report_failed", "failed to render ranking report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=ranking-"+period.String()+".pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("report write failed", "period", period.String(), "err", err)
	}
}

func (h *Handler) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	criteria, err := h.Service.ListCriteria(r.Context(), user.TenantID)
	if err != nil {
		fail(w, r, err, "criteria_list_failed", "failed to list criteria")
		return
	}
	api.Success(w, criteria, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWeights(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	summary, err := h.Service.WeightSummary(r.Context(), user.TenantID)
	if err != nil {
		fail(w, r, err, "criteria_weights_failed", "failed to summarise weights")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) decodeCriterion(w http.ResponseWriter, r *http.Request) (criterionRequest, bool) {
	var payload criterionRequest
	reqID := middleware.GetRequestID(r.Context())
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return payload, false
	}
	v := shared.NewValidator()
	v.Struct("", payload)
	if v.Reject(w, reqID) {
		return payload, false
	}
	return payload, true
}

func (h *Handler) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	payload, ok := h.decodeCriterion(w, r)
	if !ok {
		return
	}

	created, err := h.Service.CreateCriterion(r.Context(), user.TenantID, payload.criterion(""))
	if err != nil {
		fail(w, r, err, "criterion_create_failed", "failed to create criterion")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionCriterionCreate, audit.EntityCriterion, created.ID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	criterionID := chi.URLParam(r, "criterionID")
	payload, ok := h.decodeCriterion(w, r)
	if !ok {
		return
	}

	before, err := h.Service.GetCriterion(r.Context(), user.TenantID, criterionID)
	if err != nil {
		fail(w, r, err, "criterion_update_failed", "failed to load criterion")
		return
	}
	updated, err := h.Service.UpdateCriterion(r.Context(), user.TenantID, payload.criterion(criterionID))
	if err != nil {
		fail(w, r, err, "criterion_update_failed", "failed to update criterion")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionCriterionUpdate, audit.EntityCriterion, criterionID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, updated)
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	criterionID := chi.URLParam(r, "criterionID")

	before, err := h.Service.GetCriterion(r.Context(), user.TenantID, criterionID)
	if err != nil {
		fail(w, r, err, "criterion_delete_failed", "failed to load criterion")
		return
	}
	if err := h.Service.DeleteCriterion(r.Context(), user.TenantID, criterionID); err != nil {
		fail(w, r, err, "criterion_delete_failed", "failed to delete criterion")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionCriterionDelete, audit.EntityCriterion, criterionID,
		middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, nil)
	api.Success(w, map[string]string{"status": "deleted"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListScores(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, err := ranking.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		v := shared.NewValidator()
		v.Add("period", "must be YYYY-MM, YYYY-MM-DD or consolidated")
		v.Reject(w, middleware.GetRequestID(r.Context()))
		return
	}

	scores, err := h.Service.ListScores(r.Context(), user.TenantID, period)
	if err != nil {
		fail(w, r, err, "scores_list_failed", "failed to list scores")
		return
	}
	api.Success(w, scores, middleware.GetRequestID(r.Context()))
}

// handleImportScores upserts a batch of raw scores. A repeated
// Idempotency-Key with the same payload replays the first response.
func (h *Handler) handleImportScores(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	idemKey := r.Header.Get(middleware.HeaderIdempotencyKey)
	hash := middleware.RequestHash(body)
	if idemKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.TenantID, user.UserID, "scores.import", idemKey, hash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", reqID)
			return
		}
		if err != nil {
			slog.Warn("idempotency check failed", "requestId", reqID, "err", err)
		}
		if found {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replay", "true")
			w.WriteHeader(stored.Status)
			if _, err := w.Write(stored.Body); err != nil {
				slog.Warn("idempotent replay write failed", "err", err)
			}
			return
		}
	}

	var payload importRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct("", payload)
	for i, s := range payload.Scores {
		if _, err := ranking.ParsePeriod(s.Period); err != nil {
			v.Add("scores["+strconv.Itoa(i)+"].period", "must be YYYY-MM or YYYY-MM-DD")
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	imported, err := h.Service.ImportScores(r.Context(), user.TenantID, payload.Scores)
	if err != nil {
		fail(w, r, err, "scores_import_failed", "failed to import scores")
		return
	}
	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionScoresImport, audit.EntityScores, "",
		reqID, shared.ClientIP(r), nil, map[string]any{"submitted": len(payload.Scores), "imported": imported})

	env := api.Envelope{Success: true, Data: importResponse{Imported: imported}, RequestID: reqID}
	if idemKey != "" && h.Idempotency != nil {
		encoded, err := json.Marshal(env)
		if err == nil {
			err = h.Idempotency.Save(r.Context(), user.TenantID, user.UserID, "scores.import", idemKey, hash,
				middleware.StoredResponse{Status: http.StatusOK, Body: encoded})
		}
		if err != nil {
			slog.Warn("idempotency save failed", "requestId", reqID, "err", err)
		}
	}
	api.WriteJSON(w, http.StatusOK, env)
}
