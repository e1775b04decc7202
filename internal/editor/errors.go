package editor

import "errors"

var (
	ErrInvalidList   = errors.New("invalid list id")
	ErrEmptyList     = errors.New("list has no items")
	ErrInvalidItemID = errors.New("invalid item id")
	ErrDuplicateItem = errors.New("duplicate item id")
	ErrNotFound      = errors.New("not found")
	ErrNoTransport   = errors.New("mutation transport is not configured")
)
