package middleware

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/calebmsmith/pocketpoints/internal/auth"
	"github.com/calebmsmith/pocketpoints/internal/database"
	"github.com/calebmsmith/pocketpoints/internal/store"
)

func TestRequireParent(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	parent, err := store.NewParentStore(db).Create("mw@example.com", "Test", "hash")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	sessions := store.NewSessionStore(db)
	sess, err := sessions.Create(parent.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var gotParentID int64
	handler := RequireParent(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotParentID = auth.ParentID(r.Context())
	}))

	// No cookie.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/children", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie status = %d, want 401", rec.Code)
	}

	// Bogus token.
	req := httptest.NewRequest("GET", "/api/children", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus token status = %d, want 401", rec.Code)
	}

	// Valid session.
	req = httptest.NewRequest("GET", "/api/children", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sess.Token})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid session status = %d, want 200", rec.Code)
	}
	if gotParentID != parent.ID {
		t.Errorf("parent id = %d, want %d", gotParentID, parent.ID)
	}
}

func TestRequireChild(t *testing.T) {
	jwtSvc := auth.NewJWTService("test-secret", "pocketpoints-test", time.Hour)
	token, err := jwtSvc.GenerateChildToken(42, 7)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var gotChildID int64
	handler := RequireChild(jwtSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotChildID = auth.ChildID(r.Context())
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/tasks", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}

	// Authorization header.
	req := httptest.NewRequest("GET", "/api/me/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("bearer status = %d, want 200", rec.Code)
	}
	if gotChildID != 42 {
		t.Errorf("child id = %d, want 42", gotChildID)
	}

	// Query parameter fallback for websocket clients.
	gotChildID = 0
	req = httptest.NewRequest("GET", "/ws?token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query token status = %d, want 200", rec.Code)
	}
	if gotChildID != 42 {
		t.Errorf("child id = %d, want 42", gotChildID)
	}
}
