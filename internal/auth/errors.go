package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
)

var (
	// ErrInvalidToken covers bad signatures, wrong secret, wrong token type, expiry and vanished subjects.
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)

	// ErrInvalidCredentials is returned for both unknown email and wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: email or password is incorrect", ErrUnauthorized)
)
