package token

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithAuth(header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/admin/newsletters", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr error
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "", wantErr: ErrMissingToken},
		{header: "Basic abc", wantErr: ErrMissingToken},
		{header: "Bearer ", wantErr: ErrMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := BearerToken(requestWithAuth(tt.header))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	v := newTestValidator()

	t.Run("stores claims", func(t *testing.T) {
		r := requestWithAuth("Bearer " + GenerateTestToken("editor-1", "newsletters:publish"))

		ctx, claims, err := Authenticate(context.Background(), v, r, "newsletters:publish")

		require.NoError(t, err)
		assert.Equal(t, "editor-1", claims.Subject)
		assert.Same(t, claims, ClaimsFromContext(ctx))
	})

	t.Run("wildcard", func(t *testing.T) {
		r := requestWithAuth("Bearer " + GenerateTestToken("admin", WildcardPermission))

		_, _, err := Authenticate(context.Background(), v, r, "newsletters:publish")

		require.NoError(t, err)
	})

	t.Run("missing permission", func(t *testing.T) {
		r := requestWithAuth("Bearer " + GenerateTestToken("viewer", "newsletters:read"))

		ctx, _, err := Authenticate(context.Background(), v, r, "newsletters:publish")

		assert.ErrorIs(t, err, ErrInsufficientPermissions)
		assert.Nil(t, ClaimsFromContext(ctx))
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		static := newStaticValidator(Claims{Subject: "u", Type: "refresh", Permissions: []string{WildcardPermission}})

		_, _, err := Authenticate(context.Background(), static, requestWithAuth("Bearer x"))

		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no header", func(t *testing.T) {
		_, _, err := Authenticate(context.Background(), v, requestWithAuth(""))

		assert.ErrorIs(t, err, ErrMissingToken)
	})
}

func TestClaims(t *testing.T) {
	c := &Claims{Permissions: []string{"newsletters:read"}}

	assert.True(t, c.HasPermission("newsletters:read"))
	assert.False(t, c.HasPermission("newsletters:publish"))
	assert.True(t, c.HasAnyPermission([]string{"newsletters:publish", "newsletters:read"}))
	assert.False(t, c.HasAnyPermission(nil))

	now := time.Now()
	assert.False(t, (&Claims{}).IsExpired(now))
	assert.True(t, (&Claims{ExpiresAt: now.Add(-time.Second)}).IsExpired(now))
}

func TestNewConfig(t *testing.T) {
	_, err := newConfig(viperWith(map[string]any{}))
	assert.ErrorContains(t, err, "security.token configuration section is required")

	_, err = newConfig(viperWith(map[string]any{"security.token.issuer": "auth"}))
	assert.ErrorContains(t, err, "public-key is required")

	cfg, err := newConfig(viperWith(map[string]any{"security.token.public-key": "abcd", "security.token.audience": "newsletter"}))
	require.NoError(t, err)
	assert.Equal(t, "abcd", cfg.PublicKey)
	assert.Equal(t, "newsletter", cfg.Audience)
}

func viperWith(values map[string]any) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}
