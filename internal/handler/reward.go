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

type RewardHandler struct {
	rewardStore *store.RewardStore
	childStore  *store.ChildStore
	hub         *websocket.Hub
	logger      *slog.Logger
}

func NewRewardHandler(rs *store.RewardStore, cs *store.ChildStore, hub *websocket.Hub, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{rewardStore: rs, childStore: cs, hub: hub, logger: logger}
}

func (h *RewardHandler) broadcast(familyID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, ev)
	}
}

type rewardRequest struct {
	ChildID     int64  `json:"child_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PointCost   int    `json:"point_cost"`
	Active      bool   `json:"active"`
	ImageURL    string `json:"image_url"`
}

func (h *RewardHandler) validate(w http.ResponseWriter, req *rewardRequest, parentID int64) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return false
	}
	if req.PointCost <= 0 {
		writeError(w, http.StatusBadRequest, "point_cost must be positive")
		return false
	}

	child, err := h.childStore.GetByID(req.ChildID)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to validate reward")
		return false
	}
	if child == nil || child.ParentID != parentID {
		writeError(w, http.StatusBadRequest, "child_id does not name one of your children")
		return false
	}
	return true
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(w, &req, parentID) {
		return
	}

	reward, err := h.rewardStore.Create(parentID, req.ChildID, req.Title, req.Description, req.PointCost, req.Active, req.ImageURL)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("reward", "created", reward.ID, reward.ChildID, nil))
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	rewards, err := h.rewardStore.ListByParent(parentID)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	reward, ok := h.ownedReward(w, r, parentID)
	if !ok {
		return
	}

	var req rewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !h.validate(w, &req, parentID) {
		return
	}

	updated, err := h.rewardStore.Update(reward.ID, req.ChildID, req.Title, req.Description, req.PointCost, req.Active, req.ImageURL)
	if err != nil {
		h.logger.Error("update reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reward")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("reward", "updated", updated.ID, updated.ChildID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	reward, ok := h.ownedReward(w, r, parentID)
	if !ok {
		return
	}

	if err := h.rewardStore.Delete(reward.ID); err != nil {
		h.logger.Error("delete reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reward")
		return
	}

	h.broadcast(parentID, websocket.NewEvent("reward", "deleted", reward.ID, reward.ChildID, nil))
	w.WriteHeader(http.StatusNoContent)
}

// MyRewards lists active rewards the authenticated child can request.
func (h *RewardHandler) MyRewards(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	rewards, err := h.rewardStore.ListActiveByChild(childID)
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

func (h *RewardHandler) ownedReward(w http.ResponseWriter, r *http.Request, parentID int64) (*model.Reward, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	reward, err := h.rewardStore.GetByID(id)
	if err != nil {
		h.logger.Error("get reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get reward")
		return nil, false
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "reward not found")
		return nil, false
	}
	if reward.ParentID != parentID {
		writeError(w, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return reward, true
}
