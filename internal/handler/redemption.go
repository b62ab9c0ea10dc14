package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/model"
	"github.com/calebmsmith/pocketpoints/internal/push"
	"github.com/calebmsmith/pocketpoints/internal/store"
	"github.com/calebmsmith/pocketpoints/internal/websocket"
)

type RedemptionHandler struct {
	redemptionStore *store.RedemptionStore
	rewardStore     *store.RewardStore
	childStore      *store.ChildStore
	hub             *websocket.Hub
	notifier        *push.Notifier
	logger          *slog.Logger
}

func NewRedemptionHandler(rs *store.RedemptionStore, rw *store.RewardStore, cs *store.ChildStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionStore: rs,
		rewardStore:     rw,
		childStore:      cs,
		hub:             hub,
		notifier:        notifier,
		logger:          logger,
	}
}

func (h *RedemptionHandler) broadcast(familyID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, ev)
	}
}

// Request files a redemption for the authenticated child (the reward ID is
// in the path) and notifies the parent's devices.
func (h *RedemptionHandler) Request(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	rewardID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	redemption, err := h.redemptionStore.Request(ac.ChildID, rewardID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.broadcast(ac.ParentID, websocket.NewEvent("redemption", "requested", redemption.ID, redemption.ChildID, nil))
	h.notifyParent(ac.ParentID, redemption)

	writeJSON(w, http.StatusCreated, redemption)
}

func (h *RedemptionHandler) notifyParent(parentID int64, redemption *model.Redemption) {
	if h.notifier == nil {
		return
	}

	childName := "Your child"
	if child, err := h.childStore.GetByID(redemption.ChildID); err == nil && child != nil {
		childName = child.Name
	}
	rewardTitle := "a reward"
	if reward, err := h.rewardStore.GetByID(redemption.RewardID); err == nil && reward != nil {
		rewardTitle = reward.Title
	}

	go h.notifier.RedemptionRequested(parentID, childName, rewardTitle)
}

// Approve moves a pending redemption to approved, spending the points.
func (h *RedemptionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

// Reject moves a pending redemption to rejected.
func (h *RedemptionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

func (h *RedemptionHandler) handle(w http.ResponseWriter, r *http.Request, approve bool) {
	parentID := auth.ParentID(r.Context())

	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var redemption *model.Redemption
	if approve {
		redemption, err = h.redemptionStore.Approve(id, parentID)
	} else {
		redemption, err = h.redemptionStore.Reject(id, parentID)
	}
	if err != nil {
		writeStoreError(w, err)
		return
	}

	action := "rejected"
	if approve {
		action = "approved"
	}
	h.broadcast(parentID, websocket.NewEvent("redemption", action, redemption.ID, redemption.ChildID, nil))

	writeJSON(w, http.StatusOK, redemption)
}

// ListPending lists the parent's pending redemptions oldest first,
// optionally filtered to one child with ?child_id=.
func (h *RedemptionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	var childID *int64
	if raw := r.URL.Query().Get("child_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid child_id")
			return
		}
		childID = &id
	}

	redemptions, err := h.redemptionStore.ListPending(parentID, childID)
	if err != nil {
		h.logger.Error("list pending redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}

// MyRedemptions lists the authenticated child's redemptions, newest first.
func (h *RedemptionHandler) MyRedemptions(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	redemptions, err := h.redemptionStore.ListByChild(childID)
	if err != nil {
		h.logger.Error("list redemptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list redemptions")
		return
	}
	if redemptions == nil {
		redemptions = []model.Redemption{}
	}
	writeJSON(w, http.StatusOK, redemptions)
}
