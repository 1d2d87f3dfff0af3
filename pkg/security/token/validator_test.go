package token

import (
	"encoding/hex"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenSpec struct {
	subject     string
	tokenType   string
	issuer      string
	permissions []string
	expiresAt   time.Time
	notBefore   time.Time
}

func signToken(secret paseto.V4AsymmetricSecretKey, s tokenSpec) string {
	tok := paseto.NewToken()
	if s.subject != "" {
		tok.SetSubject(s.subject)
	}
	if s.issuer != "" {
		tok.SetIssuer(s.issuer)
	}
	tok.SetString("type", s.tokenType)
	_ = tok.Set("permissions", s.permissions)
	tok.SetIssuedAt(time.Now())
	tok.SetExpiration(s.expiresAt)
	tok.SetNotBefore(s.notBefore)
	return tok.V4Sign(secret, nil)
}

func newTestKeys(t *testing.T) (paseto.V4AsymmetricSecretKey, string) {
	t.Helper()
	secret := paseto.NewV4AsymmetricSecretKey()
	return secret, hex.EncodeToString(secret.Public().ExportBytes())
}

func TestNewPasetoValidator_InvalidKey(t *testing.T) {
	for name, key := range map[string]string{
		"not hex":   "zz",
		"too short": hex.EncodeToString([]byte("short")),
		"too long":  hex.EncodeToString(make([]byte, 64)),
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			v, err := newPasetoValidator(Config{PublicKey: key})

			assert.ErrorIs(t, err, ErrInvalidPublicKey)
			assert.Nil(t, v)
		})
	}
}

func TestPasetoValidator_ValidateToken(t *testing.T) {
	secret, publicHex := newTestKeys(t)
	otherSecret, _ := newTestKeys(t)

	v, err := newPasetoValidator(Config{PublicKey: publicHex, Issuer: "auth-service"})
	require.NoError(t, err)

	valid := tokenSpec{
		subject:     "editor-42",
		tokenType:   "access",
		issuer:      "auth-service",
		permissions: []string{"newsletters:publish"},
		expiresAt:   time.Now().Add(time.Hour),
		notBefore:   time.Now().Add(-time.Minute),
	}

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.ValidateToken(signToken(secret, valid))

		require.NoError(t, err)
		assert.Equal(t, "editor-42", claims.Subject)
		assert.Equal(t, "auth-service", claims.Issuer)
		assert.True(t, claims.IsAccess())
		assert.True(t, claims.HasPermission("newsletters:publish"))
	})

	tests := []struct {
		name    string
		mutate  func(s *tokenSpec)
		secret  paseto.V4AsymmetricSecretKey
		wantErr error
	}{
		{name: "expired", mutate: func(s *tokenSpec) { s.expiresAt = time.Now().Add(-time.Minute) }, secret: secret, wantErr: ErrExpiredToken},
		{name: "not yet valid", mutate: func(s *tokenSpec) { s.notBefore = time.Now().Add(time.Hour) }, secret: secret, wantErr: ErrInvalidToken},
		{name: "wrong issuer", mutate: func(s *tokenSpec) { s.issuer = "someone-else" }, secret: secret, wantErr: ErrInvalidToken},
		{name: "missing subject", mutate: func(s *tokenSpec) { s.subject = "" }, secret: secret, wantErr: ErrInvalidToken},
		{name: "foreign signature", mutate: func(*tokenSpec) {}, secret: otherSecret, wantErr: ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)

			claims, err := v.ValidateToken(signToken(tt.secret, s))

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}

	t.Run("garbage", func(t *testing.T) {
		_, err := v.ValidateToken("v4.public.garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTestValidator_RoundTrip(t *testing.T) {
	claims, err := newTestValidator().ValidateToken(GenerateTestToken("editor-1", "newsletters:publish"))

	require.NoError(t, err)
	assert.Equal(t, "editor-1", claims.Subject)
	assert.True(t, claims.IsAccess())
	assert.Equal(t, []string{"newsletters:publish"}, claims.Permissions)

	_, err = newTestValidator().ValidateToken("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticValidator_ReturnsCopy(t *testing.T) {
	v := newStaticValidator(Claims{Subject: "fixed", Type: "access"})

	first, _ := v.ValidateToken("a")
	first.Subject = "changed"
	second, _ := v.ValidateToken("b")

	assert.Equal(t, "fixed", second.Subject)
}
