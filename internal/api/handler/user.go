package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// UserHandler handles admin user management.
type UserHandler struct {
	userSvc *service.UserService
}

func NewUserHandler(userSvc *service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

type createUserRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	DailyLimit     int64  `json:"daily_limit,omitempty"`
}

// CreateUser handles POST /v1/users (admin).
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	var orgID *uuid.UUID
	if v := strings.TrimSpace(req.OrganizationID); v != "" {
		parsed, perr := uuid.Parse(v)
		if perr != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-organization-id", "Invalid organization_id")
			return
		}
		orgID = &parsed
	}

	user, err := h.userSvc.Create(r.Context(), service.CreateUserRequest{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       strings.TrimSpace(req.FullName),
		Role:           strings.TrimSpace(req.Role),
		OrganizationID: orgID,
		DailyLimit:     req.DailyLimit,
		ActorID:        actorID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			RespondError(w, r, http.StatusBadRequest, "user/invalid-role", "Unknown role")
			return
		}
		if status, ptype, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, ptype, msg)
			return
		}
		zap.L().Error("create user failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "user/create-failed", err.Error())
		return
	}

	RespondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /v1/users/{id} (admin).
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}

	user, err := h.userSvc.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			RespondError(w, r, http.StatusNotFound, "user/not-found", "User not found")
			return
		}
		zap.L().Error("get user failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusInternalServerError, "user/read-failed", "Failed to get user")
		return
	}

	RespondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /v1/users (admin).
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	users, err := h.userSvc.List(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("list users failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "user/list-failed", "Failed to list users")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  users,
		"limit":  limit,
		"offset": offset,
		"count":  len(users),
	})
}

type setUserActiveRequest struct {
	Active bool `json:"active"`
}

// SetUserActive handles PATCH /v1/users/{id}/active (admin).
func (h *UserHandler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}

	var req setUserActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	if err := h.userSvc.SetActive(r.Context(), userID, req.Active, actorID); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			RespondError(w, r, http.StatusNotFound, "user/not-found", "User not found")
			return
		}
		zap.L().Error("set user active failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusInternalServerError, "user/update-failed", "Failed to update user")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{"id": userID, "active": req.Active})
}
