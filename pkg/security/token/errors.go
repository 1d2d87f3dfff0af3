package token

import "errors"

var (
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the token cannot be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	// ErrInsufficientPermissions is returned when the caller lacks every required permission.
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrInvalidPublicKey        = errors.New("invalid public key")
)
