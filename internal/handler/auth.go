package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/middleware"
	"github.com/calebmsmith/pocketpoints/internal/store"
)

const sessionTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	parentStore  *store.ParentStore
	sessionStore *store.SessionStore
	childStore   *store.ChildStore
	jwtSvc       *auth.JWTService
	logger       *slog.Logger
}

func NewAuthHandler(ps *store.ParentStore, ss *store.SessionStore, cs *store.ChildStore, jwtSvc *auth.JWTService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{parentStore: ps, sessionStore: ss, childStore: cs, jwtSvc: jwtSvc, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := h.parentStore.GetByEmail(req.Email)
	if err != nil {
		h.logger.Error("lookup parent", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	parent, err := h.parentStore.Create(req.Email, req.Name, hash)
	if err != nil {
		h.logger.Error("create parent", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	h.startSession(w, parent.ID)
	writeJSON(w, http.StatusCreated, parent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	parent, err := h.parentStore.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("lookup parent", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if parent == nil || !auth.CheckPassword(parent.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.startSession(w, parent.ID)
	writeJSON(w, http.StatusOK, parent)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessionStore.DeleteByToken(cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ChildToken mints a device token for one of the parent's children. The
// child's tablet or phone stores it and presents it as a bearer token.
func (h *AuthHandler) ChildToken(w http.ResponseWriter, r *http.Request) {
	parentID := auth.ParentID(r.Context())

	childID, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	child, err := h.childStore.GetByID(childID)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mint token")
		return
	}
	if child == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}
	if child.ParentID != parentID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	token, err := h.jwtSvc.GenerateChildToken(child.ID, parentID)
	if err != nil {
		h.logger.Error("generate child token", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mint token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, parentID int64) {
	sess, err := h.sessionStore.Create(parentID, sessionTTL)
	if err != nil {
		h.logger.Error("create session", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
