package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calebmsmith/pocketpoints/internal/store"
)

func TestWriteStoreError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrForbidden, http.StatusForbidden},
		{store.ErrInvalidState, http.StatusConflict},
		{store.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{fmt.Errorf("child 3: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("balance 5 with delta -10: %w", store.ErrInsufficientBalance), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeStoreError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("writeStoreError(%v) status = %d, want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q, want application/json", ct)
		}
	}
}

func TestParseIDParam(t *testing.T) {
	mux := http.NewServeMux()
	var gotID int64
	var gotErr error
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		gotID, gotErr = parseIDParam(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/tasks/42", nil))
	if gotErr != nil || gotID != 42 {
		t.Errorf("parseIDParam = %d, %v, want 42, nil", gotID, gotErr)
	}

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/tasks/abc", nil))
	if gotErr == nil {
		t.Error("expected error for non-numeric id")
	}
}
