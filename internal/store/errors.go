package store

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrOwnership = errors.New("caller does not own resource")
)
