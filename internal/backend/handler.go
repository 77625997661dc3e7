package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/taskchat/internal/db"
	"github.com/user/taskchat/internal/hub"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 2000
)

type handler struct {
	tasks *db.TaskRepo
	hub   *hub.Hub
}

// NewRouter builds the task backend's HTTP surface. The hub may be nil;
// mutation events are then dropped.
func NewRouter(tasks *db.TaskRepo, h *hub.Hub) http.Handler {
	hd := &handler{tasks: tasks, hub: h}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", hd.health)
	mux.HandleFunc("GET /tasks", hd.listTasks)
	mux.HandleFunc("POST /tasks", hd.createTask)
	mux.HandleFunc("GET /tasks/{id}", hd.getTask)
	mux.HandleFunc("PATCH /tasks/{id}", hd.updateTask)
	mux.HandleFunc("DELETE /tasks/{id}", hd.deleteTask)
	if h != nil {
		mux.HandleFunc("GET /ws", h.HandleWebSocket)
	}

	return corsMiddleware(mux)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handler) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := db.TaskFilter{Owner: ownerFromRequest(r)}

	if status := r.URL.Query().Get("status"); status != "" {
		if !db.ValidStatus(status) {
			detailError(w, http.StatusBadRequest, "Invalid status filter: "+status)
			return
		}
		filter.Status = status
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		detailError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	jsonResponse(w, http.StatusOK, tasks)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (h *handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		detailError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if msg := validateTitle(req.Title, true); msg != "" {
		detailError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.Description) > maxDescriptionLen {
		detailError(w, http.StatusBadRequest, "Description must be at most 2000 characters")
		return
	}

	// Tasks always start out pending regardless of what the client sends.
	task := &db.Task{
		Owner:       ownerFromRequest(r),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      db.StatusPending,
	}
	if err := h.tasks.Create(r.Context(), task); err != nil {
		detailError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}

	h.broadcast(hub.ActionCreated, task)
	jsonResponse(w, http.StatusCreated, task)
}

func (h *handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), ownerFromRequest(r), id)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			detailError(w, http.StatusNotFound, "Task not found")
			return
		}
		detailError(w, http.StatusInternalServerError, "Failed to get task")
		return
	}

	jsonResponse(w, http.StatusOK, task)
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

func (h *handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		detailError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Title == nil && req.Description == nil && req.Status == nil {
		detailError(w, http.StatusBadRequest, "No fields to update")
		return
	}
	if req.Title != nil {
		if msg := validateTitle(*req.Title, true); msg != "" {
			detailError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if req.Description != nil && len(*req.Description) > maxDescriptionLen {
		detailError(w, http.StatusBadRequest, "Description must be at most 2000 characters")
		return
	}
	if req.Status != nil && !db.ValidStatus(*req.Status) {
		detailError(w, http.StatusBadRequest, "Invalid status: "+*req.Status)
		return
	}

	owner := ownerFromRequest(r)
	task, err := h.tasks.Get(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			detailError(w, http.StatusNotFound, "Task not found")
			return
		}
		detailError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if err := h.tasks.Update(r.Context(), task); err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			detailError(w, http.StatusNotFound, "Task not found")
			return
		}
		detailError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	h.broadcast(hub.ActionUpdated, task)
	jsonResponse(w, http.StatusOK, task)
}

func (h *handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), ownerFromRequest(r), id); err != nil {
		if errors.Is(err, db.ErrTaskNotFound) {
			detailError(w, http.StatusNotFound, "Task not found")
			return
		}
		detailError(w, http.StatusInternalServerError, "Failed to delete task")
		return
	}

	if h.hub != nil {
		h.hub.BroadcastTaskEvent(hub.ActionDeleted, id, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) broadcast(action string, task *db.Task) {
	if h.hub == nil {
		return
	}
	h.hub.BroadcastTaskEvent(action, task.ID, task)
}

// ownerFromRequest scopes storage by the opaque bearer token; unauthenticated
// requests share the "local" owner.
func ownerFromRequest(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if token := strings.TrimSpace(auth[7:]); token != "" {
			return token
		}
	}
	return "local"
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		detailError(w, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

func validateTitle(title string, required bool) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" && required {
		return "Title is required"
	}
	if len(trimmed) > maxTitleLen {
		return "Title must be at most 255 characters"
	}
	return ""
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// detailError matches the {"detail": "..."} body shape the chat side's
// task store client parses.
func detailError(w http.ResponseWriter, status int, detail string) {
	jsonResponse(w, status, map[string]string{"detail": detail})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
