package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/model"
	"github.com/calebmsmith/pocketpoints/internal/store"
	"github.com/calebmsmith/pocketpoints/internal/websocket"
)

type ChildHandler struct {
	childStore  *store.ChildStore
	ledgerStore *store.LedgerStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, ls *store.LedgerStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{childStore: cs, ledgerStore: ls, hub: hub, logger: logger}
}

func (h *ChildHandler) broadcast(familyID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, ev)
	}
}

type childRequest struct {
	Name string `json:"name"`
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	child, err := h.childStore.Create(parentID, req.Name)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("child", "created", child.ID, child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	children, err := h.childStore.ListByParent(parentID)
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	child, ok := h.ownedChild(w, r, parentID)
	if !ok {
		return
	}

	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.childStore.Update(child.ID, req.Name)
	if err != nil {
		h.logger.Error("update child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update child")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("child", "updated", updated.ID, updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	child, ok := h.ownedChild(w, r, parentID)
	if !ok {
		return
	}

	if err := h.childStore.Delete(child.ID); err != nil {
		h.logger.Error("delete child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete child")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("child", "deleted", child.ID, child.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Balance returns a child's current balance alongside the ledger sum, which
// must agree with it.
func (h *ChildHandler) Balance(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	child, ok := h.ownedChild(w, r, parentID)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"child_id": child.ID,
		"balance":  child.PointsBalance,
	})
}

func (h *ChildHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	child, ok := h.ownedChild(w, r, parentID)
	if !ok {
		return
	}

	limit, offset := paging(r)
	entries, err := h.ledgerStore.History(child.ID, limit, offset)
	if err != nil {
		h.logger.Error("list ledger", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// MyBalance serves the child device's own balance.
func (h *ChildHandler) MyBalance(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	balance, err := h.ledgerStore.BalanceOf(childID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"child_id": childID, "balance": balance})
}

// MyLedger serves the child device's own history, newest first.
func (h *ChildHandler) MyLedger(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	limit, offset := paging(r)
	entries, err := h.ledgerStore.History(childID, limit, offset)
	if err != nil {
		h.logger.Error("list ledger", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list ledger")
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ownedChild loads the path child and enforces parent ownership, writing
// the error response itself when the check fails.
func (h *ChildHandler) ownedChild(w http.ResponseWriter, r *http.Request, parentID int64) (*model.Child, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	child, err := h.childStore.GetByID(id)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return nil, false
	}
	if child == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return nil, false
	}
	if child.ParentID != parentID {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return child, true
}

func paging(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
