package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/bcards/internal/middleware"
	"github.com/atinyakov/bcards/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService defines the user directory operations required by UserHandler.
type UserService interface {
	List(ctx context.Context, id models.Identity) ([]models.User, error)
	Get(ctx context.Context, id models.Identity, userID string) (*models.User, error)
	Create(ctx context.Context, in models.UserInput) (*models.User, error)
	Update(ctx context.Context, id models.Identity, userID string, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id models.Identity, userID string) (*models.User, error)
	SetBusiness(ctx context.Context, id models.Identity, userID string, isBusiness *bool) (*models.User, error)
}

// AuthService defines the login operation required by UserHandler.
type AuthService interface {
	Login(ctx context.Context, creds models.Credentials) (string, *models.User, error)
}

// UserHandler serves /api/users.
type UserHandler struct {
	Users UserService
	Auth  AuthService
	Log   *zap.Logger
}

// List handles GET /api/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	users, err := h.Users.List(ctx, middleware.IdentityFromContext(ctx))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", users)
}

// Get handles GET /api/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.Users.Get(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "data", u)
}

// Create handles POST /api/users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}
	u, err := h.Users.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusCreated, "created", u)
}

// Login handles POST /api/users/login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, h.Log, err)
		return
	}
	token, u, err := h.Auth.Login(r.Context(), creds)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token, "data": u})
}

// Update handles PUT /api/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var patch models.UserPatch
	decodeErr := decodeJSON(r, &patch)
	if decodeErr != nil {
		patch = models.UserPatch{}
	}
	u, err := h.Users.Update(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, h.Log, bodyErr(decodeErr, err))
		return
	}
	writeOK(w, http.StatusOK, "updated", u)
}

// SetBusiness handles PATCH /api/users/{id} with {"isBusiness": bool}.
func (h *UserHandler) SetBusiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		IsBusiness *bool `json:"isBusiness"`
	}
	decodeErr := decodeJSON(r, &req)
	if decodeErr != nil {
		req.IsBusiness = nil
	}
	u, err := h.Users.SetBusiness(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"), req.IsBusiness)
	if err != nil {
		writeError(w, h.Log, bodyErr(decodeErr, err))
		return
	}
	writeOK(w, http.StatusOK, "updated", u)
}

// Delete handles DELETE /api/users/{id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.Users.Delete(ctx, middleware.IdentityFromContext(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, "deleted", u)
}
