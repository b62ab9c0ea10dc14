package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/database"
	"github.com/calebmsmith/pocketpoints/internal/logging"
	"github.com/calebmsmith/pocketpoints/internal/push"
	"github.com/calebmsmith/pocketpoints/internal/server"
	"github.com/calebmsmith/pocketpoints/internal/snapshot"
)

func main() {
	logger := logging.Setup(os.Getenv("POCKETPOINTS_LOG_LEVEL"))

	port := envDefault("POCKETPOINTS_PORT", "8080")
	dbPath := envDefault("POCKETPOINTS_DB_PATH", "pocketpoints.db")

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	jwtSecret := os.Getenv("POCKETPOINTS_JWT_SECRET")
	if jwtSecret == "" {
		// Child tokens won't survive a restart without a configured secret.
		jwtSecret = randomSecret()
		logger.Warn("POCKETPOINTS_JWT_SECRET not set, using an ephemeral secret")
	}

	cfg := server.Config{
		JWTSecret: jwtSecret,
		Push: push.Config{
			VAPIDPublicKey:  os.Getenv("POCKETPOINTS_VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("POCKETPOINTS_VAPID_PRIVATE_KEY"),
		},
		Snapshot: snapshot.Config{
			S3: snapshot.S3Config{
				Endpoint:  os.Getenv("POCKETPOINTS_S3_ENDPOINT"),
				Bucket:    os.Getenv("POCKETPOINTS_S3_BUCKET"),
				Region:    envDefault("POCKETPOINTS_S3_REGION", "auto"),
				AccessKey: os.Getenv("POCKETPOINTS_S3_ACCESS_KEY"),
				SecretKey: os.Getenv("POCKETPOINTS_S3_SECRET_KEY"),
			},
			DBPath:        dbPath,
			ScheduleHour:  envInt("POCKETPOINTS_SNAPSHOT_HOUR", 3),
			RetentionDays: envInt("POCKETPOINTS_SNAPSHOT_RETENTION_DAYS", 30),
		},
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.SnapshotManager().Start(ctx)
	defer srv.SnapshotManager().Stop()

	// Prune expired parent sessions in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("prune sessions", "error", err)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("pocketpoints listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
