package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// testValidator accepts base64-encoded JSON tokens produced by
// GenerateTestToken. It lets end-to-end tests carry distinct callers without
// signing keys.
type testValidator struct{}

type testTokenPayload struct {
	Subject     string   `json:"sub"`
	Permissions []string `json:"permissions"`
	Type        string   `json:"type"`
}

func newTestValidator() Validator {
	return &testValidator{}
}

func (v *testValidator) ValidateToken(tok string) (*Claims, error) {
	decoded, err := base64.StdEncoding.DecodeString(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	var payload testTokenPayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if payload.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{
		Subject:     payload.Subject,
		Permissions: payload.Permissions,
		Type:        payload.Type,
	}, nil
}

// GenerateTestToken returns an access token understood by the test validator.
func GenerateTestToken(subject string, permissions ...string) string {
	data, err := json.Marshal(testTokenPayload{Subject: subject, Permissions: permissions, Type: typeAccess})
	if err != nil {
		panic(fmt.Sprintf("failed to marshal test token: %v", err))
	}
	return base64.StdEncoding.EncodeToString(data)
}
