package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/model"
	"github.com/calebmsmith/pocketpoints/internal/store"
	"github.com/calebmsmith/pocketpoints/internal/websocket"
)

type TaskHandler struct {
	taskStore  *store.TaskStore
	childStore *store.ChildStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, childStore: cs, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(familyID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, ev)
	}
}

type taskRequest struct {
	ChildID  int64              `json:"child_id"`
	Title    string             `json:"title"`
	Category model.TaskCategory `json:"category"`
	Points   int                `json:"points"`
}

func (h *TaskHandler) validate(w http.ResponseWriter, req *taskRequest, parentID int64) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return false
	}
	if !req.Category.Valid() {
		writeError(w, http.StatusBadRequest, "category must be study, chore or life")
		return false
	}
	if req.Points <= 0 {
		writeError(w, http.StatusBadRequest, "points must be positive")
		return false
	}

	child, err := h.childStore.GetByID(req.ChildID)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate task")
		return false
	}
	if child == nil || child.ParentID != parentID {
		writeError(w, http.StatusBadRequest, "child_id does not name one of your children")
		return false
	}
	return true
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(w, &req, parentID) {
		return
	}

	task, err := h.taskStore.Create(parentID, req.ChildID, req.Title, req.Category, req.Points)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("task", "created", task.ID, task.ChildID, nil))
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	tasks, err := h.taskStore.ListByParent(parentID)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	task, ok := h.ownedTask(w, r, parentID)
	if !ok {
		return
	}

	var req taskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(w, &req, parentID) {
		return
	}

	updated, err := h.taskStore.Update(task.ID, req.ChildID, req.Title, req.Category, req.Points)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("task", "updated", updated.ID, updated.ChildID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	task, ok := h.ownedTask(w, r, parentID)
	if !ok {
		return
	}

	if err := h.taskStore.Delete(task.ID); err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("task", "deleted", task.ID, task.ChildID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// MyTasks lists the authenticated child device's tasks.
func (h *TaskHandler) MyTasks(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	tasks, err := h.taskStore.ListByChild(childID)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Toggle flips a task done/undone for the authenticated child and reports
// the new state plus the signed point delta that was applied.
func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	taskID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	result, err := h.taskStore.Toggle(taskID, ac.ChildID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.broadcast(ac.ParentID, websocket.NewEvent("task", "toggled", result.Task.ID, result.Task.ChildID, map[string]any{
		"done":  result.Task.Done,
		"delta": result.Entry.Delta,
	}))
	h.broadcast(ac.ParentID, websocket.NewEvent("ledger_entry", "created", result.Entry.ID, result.Entry.ChildID, nil))

	writeJSON(w, http.StatusOK, map[string]any{
		"done":  result.Task.Done,
		"delta": result.Entry.Delta,
		"entry": result.Entry,
	})
}

func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request, parentID int64) (*model.Task, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	task, err := h.taskStore.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	if task.ParentID != parentID {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return task, true
}
