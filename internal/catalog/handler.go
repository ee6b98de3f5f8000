// internal/catalog/handler.go
package catalog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libris/internal/api"
	"libris/internal/membership"
	"libris/internal/model"
)

type Handler struct {
	queries Queries
}

func NewHandler(queries Queries) *Handler {
	return &Handler{queries: queries}
}

// HandleBooks lists or searches the catalog. Query params: title, author,
// category (numeric id), available=true.
func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		books []model.Book
		err   error
	)
	switch {
	case q.Get("title") != "":
		books, err = h.queries.SearchByTitle(r.Context(), q.Get("title"))
	case q.Get("author") != "":
		books, err = h.queries.SearchByAuthor(r.Context(), q.Get("author"))
	case q.Get("category") != "":
		var id int
		id, err = strconv.Atoi(q.Get("category"))
		if err != nil {
			api.WriteError(w, model.Validationf("invalid category id"))
			return
		}
		books, err = h.queries.SearchByCategory(r.Context(), model.Category(id))
	case q.Get("available") == "true":
		books, err = h.queries.ListAvailableBooks(r.Context())
	default:
		books, err = h.queries.ListBooks(r.Context())
	}
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, books)
}

// HandleBook returns a single catalog entry.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.WriteError(w, model.Validationf("invalid book id"))
		return
	}

	book, err := h.queries.GetBook(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, book)
}

// HandleUserLoans lists a user's loans; ?open=true narrows to open ones.
// Members see their own loans, staff may query anyone's.
func (h *Handler) HandleUserLoans(w http.ResponseWriter, r *http.Request) {
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
		api.WriteError(w, fmt.Errorf("%w: cannot view another user's loans", model.ErrForbidden))
		return
	}

	loans, err := h.queries.ListUserLoans(r.Context(), id, r.URL.Query().Get("open") == "true")
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, loans)
}
