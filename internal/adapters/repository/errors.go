package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrNotFound          = errors.New("submission not found")
	ErrAlreadyExists     = errors.New("submission already exists")
	ErrInvalidLimit      = errors.New("invalid list limit")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrClosed            = errors.New("store closed")
)
