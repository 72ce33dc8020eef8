package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("score record not found")
	ErrInvalidRecord = errors.New("invalid score record")
	ErrOpenStore     = errors.New("open store")
)
