package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/focusup/backend/internal/domain/model"
)

// CreateUser registers a new player with an empty stats projection.
func (s *Service) CreateUser(ctx context.Context, name, email string) (model.User, error) {
	if !s.isStarted() {
		return model.User{}, ErrNotStarted
	}

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return model.User{}, ErrInvalidSubmission
	}

	user := model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	return s.store.CreateUser(ctx, user)
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	if !s.isStarted() {
		return model.User{}, ErrNotStarted
	}
	return s.store.GetUser(ctx, id)
}
