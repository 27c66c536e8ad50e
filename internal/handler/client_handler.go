// internal/handler/client_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/duespark/duespark-backend/internal/model"
	"github.com/duespark/duespark-backend/internal/repository"
)

// ClientHandler holds the dependencies for client-related HTTP handlers
type ClientHandler struct {
	ClientRepo repository.ClientRepositoryInterface
}

// CreateClientHandler handles creating a new client
func (h *ClientHandler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	client := &model.Client{
		OwnerID:   owner,
		Name:      strings.TrimSpace(payload.Name),
		Email:     strings.TrimSpace(payload.Email),
		CreatedAt: time.Now(),
	}
	if err := h.ClientRepo.Create(client); err != nil {
		http.Error(w, "failed to create client: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, client)
}

// ListClientsHandler returns the owner's clients
func (h *ClientHandler) ListClientsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	clients, err := h.ClientRepo.ListByOwner(owner)
	if err != nil {
		http.Error(w, "failed to list clients: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}
