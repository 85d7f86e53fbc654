package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrScoreNotFound  = errors.New("score not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)
