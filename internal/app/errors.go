package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrUnknownGame       = errors.New("unknown game")
	ErrInvalidSubmission = errors.New("invalid submission")
)
