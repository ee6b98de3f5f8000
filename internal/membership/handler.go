// internal/membership/handler.go
package membership

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"libris/internal/api"
	"libris/internal/model"
)

type Handler struct {
	service Service
	secret  string
}

func NewHandler(service Service, secret string) *Handler {
	return &Handler{service: service, secret: secret}
}

// HandleRegister self-registers a member account.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin authenticates and returns a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	token, err := IssueToken(h.secret, user)
	if err != nil {
		api.WriteError(w, fmt.Errorf("%w: issue token: %v", model.ErrStorage, err))
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

// HandleCreateUser creates an account with an explicit role. Admin only.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !h.adminOnly(w, r) {
		return
	}

	var req struct {
		Username string     `json:"username"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, user)
}

// HandleListUsers lists all accounts. Admin only.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if !h.adminOnly(w, r) {
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, users)
}

// HandleUpdateRole changes a user's role. Admin only.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	if !h.adminOnly(w, r) {
		return
	}

	var req struct {
		Role model.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "username"), req.Role); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangePassword rotates the caller's own password.
func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		api.WriteError(w, fmt.Errorf("%w: missing identity", model.ErrForbidden))
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.ChangePassword(r.Context(), actor.UserID, req.OldPassword, req.NewPassword); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteUser removes an account. Admin only; self-delete is refused
// by the service.
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !h.adminOnly(w, r) {
		return
	}

	actor, _ := ActorFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "username"), actor); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adminOnly(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := ActorFromContext(r.Context())
	if !ok || actor.Role != model.RoleAdmin {
		api.WriteError(w, fmt.Errorf("%w: admin role required", model.ErrForbidden))
		return false
	}
	return true
}
