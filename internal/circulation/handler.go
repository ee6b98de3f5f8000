// internal/circulation/handler.go
package circulation

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libris/internal/api"
	"libris/internal/membership"
	"libris/internal/model"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// HandleBorrow opens a loan. Members borrow for themselves; staff may pass
// a user_id to borrow on a member's behalf.
func (h *Handler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.ActorFromContext(r.Context())
	if !ok {
		api.WriteError(w, fmt.Errorf("%w: missing identity", model.ErrForbidden))
		return
	}

	var req struct {
		BookID uuid.UUID `json:"book_id"`
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	userID := actor.UserID
	if req.UserID != uuid.Nil && req.UserID != actor.UserID {
		if !actor.Role.Staff() {
			api.WriteError(w, fmt.Errorf("%w: cannot borrow for another user", model.ErrForbidden))
			return
		}
		userID = req.UserID
	}

	loan, err := h.service.Borrow(r.Context(), req.BookID, userID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, loan)
}

// HandleReturn closes the open loan for a copy.
func (h *Handler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.ActorFromContext(r.Context())
	if !ok {
		api.WriteError(w, fmt.Errorf("%w: missing identity", model.ErrForbidden))
		return
	}

	var req struct {
		CopyID uuid.UUID `json:"copy_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.Return(r.Context(), req.CopyID, actor); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAddBook creates a book and its copies. Staff only.
func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	if !staffOnly(w, r) {
		return
	}

	var p AddBookParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	book, err := h.service.AddBook(r.Context(), p)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, book)
}

// HandleUpdateBook changes title/author. Staff only.
func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	if !staffOnly(w, r) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, model.Validationf("invalid book id"))
		return
	}

	var req struct {
		Title  string `json:"title"`
		Author string `json:"author"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, model.Validationf("invalid request body: %v", err))
		return
	}

	if err := h.service.UpdateBook(r.Context(), id, req.Title, req.Author); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveBook deletes a book and its copies. Staff only.
func (h *Handler) HandleRemoveBook(w http.ResponseWriter, r *http.Request) {
	if !staffOnly(w, r) {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, model.Validationf("invalid book id"))
		return
	}

	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUserStats returns a user's aggregate loan history. Members see
// their own stats; staff may query anyone's.
func (h *Handler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := membership.ActorFromContext(r.Context())
	if !ok {
		api.WriteError(w, fmt.Errorf("%w: missing identity", model.ErrForbidden))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, model.Validationf("invalid user id"))
		return
	}
	if id != actor.UserID && !actor.Role.Staff() {
		api.WriteError(w, fmt.Errorf("%w: cannot view another user's stats", model.ErrForbidden))
		return
	}

	stats, err := h.service.UserStats(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, stats)
}

func staffOnly(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := membership.ActorFromContext(r.Context())
	if !ok || !actor.Role.Staff() {
		api.WriteError(w, fmt.Errorf("%w: staff role required", model.ErrForbidden))
		return false
	}
	return true
}
