package core

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileTooLarge    = errors.New("file too large")
	ErrNoFiles         = errors.New("no file provided")
	ErrTooManyFiles    = errors.New("too many files in one upload")
	ErrInvalidNumber   = errors.New("invalid number")
	ErrUnknownChart    = errors.New("unknown chart type")
	ErrUnknownFormat   = errors.New("unknown export format")
	ErrInvalidRequest  = errors.New("invalid request")
)
