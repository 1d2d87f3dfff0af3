package token

import (
	"context"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", ErrMissingToken
	}
	return tok, nil
}

// Authenticate validates the request's bearer token, requires an access
// token holding one of requiredPermissions (if any) and stores the claims in
// the returned context.
func Authenticate(ctx context.Context, validator Validator, r *http.Request, requiredPermissions ...string) (context.Context, *Claims, error) {
	tok, err := BearerToken(r)
	if err != nil {
		return ctx, nil, err
	}
	claims, err := validator.ValidateToken(tok)
	if err != nil {
		return ctx, nil, err
	}
	if !claims.IsAccess() {
		return ctx, nil, ErrInvalidToken
	}
	if len(requiredPermissions) > 0 && !claims.HasAnyPermission(requiredPermissions) {
		return ctx, nil, ErrInsufficientPermissions
	}
	return ContextWithClaims(ctx, claims), claims, nil
}
