package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrLastItem         = errors.New("cannot delete the last item of a list")
	ErrInvalidReference = errors.New("invalid item reference")
	ErrAlreadyExists    = errors.New("already exists")
)
