package service

import (
	"errors"

	"traffichub/internal/repository"
)

var (
	ErrNotFound     = repository.ErrNotFound
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
