package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/tasklist/internal/todo/domain"
	"github.com/aussiebroadwan/tasklist/internal/todo/service"
	"github.com/aussiebroadwan/tasklist/internal/todo/store"
	"github.com/aussiebroadwan/tasklist/pkg/httpx"
	"github.com/aussiebroadwan/tasklist/pkg/slogx"
)

// maxTitleLength matches the schema CHECK constraint on items.title.
const maxTitleLength = 100

type TodosHandler struct {
	TodoService *service.ToDoService
}

// HandleList returns the caller's items, optionally filtered by the
// "completed" query parameter (true/false).
func (h *TodosHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}

	var completed *bool
	if raw := r.URL.Query().Get("completed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "completed must be true or false")
			return
		}
		completed = &v
	}

	items, err := h.TodoService.List(ctx, user.ID, completed)
	if err != nil {
		slogx.FromContext(ctx).Error("list todos failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// HandleGet returns a single item by id.
func (h *TodosHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "todo not found")
		return
	}

	item, err := h.TodoService.Get(ctx, user.ID, id)
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

type createTodoRequest struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// HandleCreate adds a new item for the caller.
func (h *TodosHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > maxTitleLength {
		httpx.WriteError(w, http.StatusBadRequest, "title must be 1-100 characters")
		return
	}

	item, err := h.TodoService.Create(ctx, user.ID, req.Title, req.Completed)
	if err != nil {
		slogx.FromContext(ctx).Error("create todo failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

// HandleUpdate applies a partial update; absent fields are left untouched.
func (h *TodosHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "todo not found")
		return
	}

	var upd domain.ItemUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if upd.Title != nil {
		trimmed := strings.TrimSpace(*upd.Title)
		if trimmed == "" || len(trimmed) > maxTitleLength {
			httpx.WriteError(w, http.StatusBadRequest, "title must be 1-100 characters")
			return
		}
		upd.Title = &trimmed
	}

	item, err := h.TodoService.Update(ctx, user.ID, id, upd)
	if err != nil {
		writeTodoError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// HandleDelete removes an item.
func (h *TodosHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}
	id, ok := pathID(r)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "todo not found")
		return
	}

	if err := h.TodoService.Delete(ctx, user.ID, id); err != nil {
		writeTodoError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment. Non-numeric ids are treated as
// resources that do not exist.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeTodoError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "todo not found")
		return
	}
	slogx.FromContext(r.Context()).Error("todo operation failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}
