// internal/handler/handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ownerID extracts the authenticated owner from the X-Owner-ID header.
// Writes a 401 and returns false when the header is missing or malformed.
func ownerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-Owner-ID")
	if raw == "" {
		http.Error(w, "missing X-Owner-ID header", http.StatusUnauthorized)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid X-Owner-ID header", http.StatusUnauthorized)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
