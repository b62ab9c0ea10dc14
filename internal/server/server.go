package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/handler"
	"github.com/calebmsmith/pocketpoints/internal/middleware"
	"github.com/calebmsmith/pocketpoints/internal/push"
	"github.com/calebmsmith/pocketpoints/internal/snapshot"
	"github.com/calebmsmith/pocketpoints/internal/store"
	ws "github.com/calebmsmith/pocketpoints/internal/websocket"
)

type Config struct {
	JWTSecret     string
	ChildTokenTTL time.Duration
	Push          push.Config
	Snapshot      snapshot.Config
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	sessionStore *store.SessionStore
	jwtSvc       *auth.JWTService

	authH       *handler.AuthHandler
	childH      *handler.ChildHandler
	taskH       *handler.TaskHandler
	rewardH     *handler.RewardHandler
	redemptionH *handler.RedemptionHandler
	pushH       *handler.PushHandler
	snapshotH   *handler.SnapshotHandler

	snapshotMgr *snapshot.Manager
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	parentStore := store.NewParentStore(db)
	sessionStore := store.NewSessionStore(db)
	childStore := store.NewChildStore(db)
	taskStore := store.NewTaskStore(db)
	rewardStore := store.NewRewardStore(db)
	redemptionStore := store.NewRedemptionStore(db)
	ledgerStore := store.NewLedgerStore(db)
	pushStore := store.NewPushStore(db)
	snapshotStore := store.NewSnapshotStore(db)

	ttl := cfg.ChildTokenTTL
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	jwtSvc := auth.NewJWTService(cfg.JWTSecret, "pocketpoints", ttl)

	var pushSvc *push.Service
	var notifier *push.Notifier
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		notifier = push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	snapshotMgr := snapshot.NewManager(cfg.Snapshot, db, snapshotStore, logger.With("component", "snapshot"))

	return &Server{
		db:           db,
		hub:          hub,
		sessionStore: sessionStore,
		jwtSvc:       jwtSvc,
		authH:        handler.NewAuthHandler(parentStore, sessionStore, childStore, jwtSvc, logger.With("component", "auth")),
		childH:       handler.NewChildHandler(childStore, ledgerStore, hub, logger.With("component", "child")),
		taskH:        handler.NewTaskHandler(taskStore, childStore, hub, logger.With("component", "task")),
		rewardH:      handler.NewRewardHandler(rewardStore, childStore, hub, logger.With("component", "reward")),
		redemptionH:  handler.NewRedemptionHandler(redemptionStore, rewardStore, childStore, hub, notifier, logger.With("component", "redemption")),
		pushH:        pushH,
		snapshotH:    handler.NewSnapshotHandler(snapshotMgr, snapshotStore, logger.With("component", "snapshot_handler")),
		snapshotMgr:  snapshotMgr,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SnapshotManager exposes the manager so main can run its schedule loop.
func (s *Server) SnapshotManager() *snapshot.Manager {
	return s.snapshotMgr
}

// SessionStore exposes the session store so main can prune expired sessions.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	parent := middleware.RequireParent(s.sessionStore)
	child := middleware.RequireChild(s.jwtSvc)

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("POST /register", s.rateLimited(s.authH.Register))
	mux.Handle("POST /login", s.rateLimited(s.authH.Login))

	// Parent routes (session cookie)
	mux.Handle("POST /logout", parent(http.HandlerFunc(s.authH.Logout)))

	mux.Handle("POST /api/children", parent(http.HandlerFunc(s.childH.Create)))
	mux.Handle("GET /api/children", parent(http.HandlerFunc(s.childH.List)))
	mux.Handle("PUT /api/children/{id}", parent(http.HandlerFunc(s.childH.Update)))
	mux.Handle("DELETE /api/children/{id}", parent(http.HandlerFunc(s.childH.Delete)))
	mux.Handle("GET /api/children/{id}/balance", parent(http.HandlerFunc(s.childH.Balance)))
	mux.Handle("GET /api/children/{id}/ledger", parent(http.HandlerFunc(s.childH.Ledger)))
	mux.Handle("POST /api/children/{id}/token", parent(http.HandlerFunc(s.authH.ChildToken)))

	mux.Handle("POST /api/tasks", parent(http.HandlerFunc(s.taskH.Create)))
	mux.Handle("GET /api/tasks", parent(http.HandlerFunc(s.taskH.List)))
	mux.Handle("PUT /api/tasks/{id}", parent(http.HandlerFunc(s.taskH.Update)))
	mux.Handle("DELETE /api/tasks/{id}", parent(http.HandlerFunc(s.taskH.Delete)))

	mux.Handle("POST /api/rewards", parent(http.HandlerFunc(s.rewardH.Create)))
	mux.Handle("GET /api/rewards", parent(http.HandlerFunc(s.rewardH.List)))
	mux.Handle("PUT /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Update)))
	mux.Handle("DELETE /api/rewards/{id}", parent(http.HandlerFunc(s.rewardH.Delete)))

	mux.Handle("GET /api/redemptions/pending", parent(http.HandlerFunc(s.redemptionH.ListPending)))
	mux.Handle("POST /api/redemptions/{id}/approve", parent(http.HandlerFunc(s.redemptionH.Approve)))
	mux.Handle("POST /api/redemptions/{id}/reject", parent(http.HandlerFunc(s.redemptionH.Reject)))

	mux.Handle("POST /api/snapshots/run", parent(http.HandlerFunc(s.snapshotH.RunNow)))
	mux.Handle("GET /api/snapshots", parent(http.HandlerFunc(s.snapshotH.List)))
	mux.Handle("GET /api/snapshots/status", parent(http.HandlerFunc(s.snapshotH.Status)))

	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.Handle("POST /api/push/subscribe", parent(http.HandlerFunc(s.pushH.Subscribe)))
		mux.Handle("POST /api/push/unsubscribe", parent(http.HandlerFunc(s.pushH.Unsubscribe)))
	}

	// Child routes (device bearer token)
	mux.Handle("GET /api/me/tasks", child(http.HandlerFunc(s.taskH.MyTasks)))
	mux.Handle("POST /api/tasks/{id}/toggle", child(http.HandlerFunc(s.taskH.Toggle)))
	mux.Handle("GET /api/me/rewards", child(http.HandlerFunc(s.rewardH.MyRewards)))
	mux.Handle("POST /api/rewards/{id}/redeem", child(http.HandlerFunc(s.redemptionH.Request)))
	mux.Handle("GET /api/me/balance", child(http.HandlerFunc(s.childH.MyBalance)))
	mux.Handle("GET /api/me/ledger", child(http.HandlerFunc(s.childH.MyLedger)))
	mux.Handle("GET /api/me/redemptions", child(http.HandlerFunc(s.redemptionH.MyRedemptions)))

	// Live sync — parents and child devices both connect here
	mux.Handle("GET /ws", s.eitherAuth(ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, 10, time.Minute)(h)
}

// eitherAuth accepts a parent session cookie or a child bearer token.
func (s *Server) eitherAuth(next http.Handler) http.Handler {
	parent := middleware.RequireParent(s.sessionStore)(next)
	child := middleware.RequireChild(s.jwtSvc)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
			parent.ServeHTTP(w, r)
			return
		}
		child.ServeHTTP(w, r)
	})
}
