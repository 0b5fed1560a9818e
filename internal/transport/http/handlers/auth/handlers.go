package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"hsdash/internal/domain/audit"
	"hsdash/internal/domain/auth"
	"hsdash/internal/transport/http/api"
	"hsdash/internal/transport/http/middleware"
	"hsdash/internal/transport/http/shared"
)

type LoginService interface {
	Login(ctx context.Context, email, password string) (string, auth.UserContext, error)
}

type Handler struct {
	Service LoginService
	Audit   shared.Auditor
}

func NewHandler(service LoginService, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Audit: auditor}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	v := shared.NewValidator()
	v.Struct("", payload)
	if v.Reject(w, reqID) {
		return
	}

	token, user, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		slog.Warn("login failed", "requestId", reqID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", reqID)
		return
	}

	shared.RecordAudit(r.Context(), h.Audit, user.TenantID, user.UserID, audit.ActionLogin, audit.EntityUser, user.UserID,
		reqID, shared.ClientIP(r), nil, nil)
	api.Success(w, map[string]any{
		"token": token,
		"user":  map[string]string{"id": user.UserID, "tenantId": user.TenantID, "roleId": user.RoleID, "role": user.RoleName},
	}, reqID)
}
