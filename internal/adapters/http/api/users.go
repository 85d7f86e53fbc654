// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// UsersHandler handles user registration and profile requests.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// createUserRequest mirrors the OpenAPI schema for POST /api/users.
type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c createUserRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return errors.New("missing name")
	case strings.TrimSpace(c.Email) == "":
		return errors.New("missing email")
	}
	return nil
}

// HandleCreateUser handles POST /api/users requests.
func (h *UsersHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	user, err := h.deps.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleGetUser handles GET /api/users/{id} requests.
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if strings.Contains(userID, "/") {
		http.NotFound(w, r)
		return
	}

	user, err := h.deps.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
