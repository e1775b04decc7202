package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid id")
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidListID   = errors.New("invalid list id")
	ErrInvalidText     = errors.New("invalid text")
)
