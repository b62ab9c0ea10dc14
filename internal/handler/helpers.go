package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/calebmsmith/pocketpoints/internal/store"
)

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps sentinel store errors to HTTP statuses. Insufficient
// balance and invalid state are expected business outcomes; everything
// unrecognized is a storage failure the caller may retry whole.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid state")
	case errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
	default:
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}
