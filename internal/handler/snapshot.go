package handler

import (
	"log/slog"
	"net/http"

	"github.com/calebmsmith/pocketpoints/internal/model"
	"github.com/calebmsmith/pocketpoints/internal/snapshot"
	"github.com/calebmsmith/pocketpoints/internal/store"
)

type SnapshotHandler struct {
	manager       *snapshot.Manager
	snapshotStore *store.SnapshotStore
	logger        *slog.Logger
}

func NewSnapshotHandler(m *snapshot.Manager, ss *store.SnapshotStore, logger *slog.Logger) *SnapshotHandler {
	return &SnapshotHandler{manager: m, snapshotStore: ss, logger: logger}
}

func (h *SnapshotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.snapshotStore.List(50)
	if err != nil {
		h.logger.Error("list snapshots", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (h *SnapshotHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Enabled() {
		writeError(w, http.StatusConflict, "snapshots not configured")
		return
	}

	id, err := h.manager.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	snap, err := h.snapshotStore.GetByID(id)
	if err != nil || snap == nil {
		writeError(w, http.StatusInternalServerError, "snapshot record missing")
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}
