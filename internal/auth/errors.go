package auth

import (
	"errors"

	sharedauth "pdfchat-backend/internal/shared/auth"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("email already registered")
	ErrInvalidToken       = sharedauth.ErrInvalidToken
)
