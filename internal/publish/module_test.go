package publish

import (
	"testing"
	"time"

	"github.com/Sokol111/newsletter-publisher/internal/idempotency"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestCheckClaimTimeout(t *testing.T) {
	tests := []struct {
		name    string
		commit  time.Duration
		claim   time.Duration
		wantErr bool
	}{
		{name: "claim outlives commit", commit: 30 * time.Second, claim: time.Minute},
		{name: "claim equal to commit", commit: time.Minute, claim: time.Minute, wantErr: true},
		{name: "claim shorter than commit", commit: time.Minute, claim: 10 * time.Second, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkClaimTimeout(Config{CommitTimeout: tt.commit}, idempotency.Config{ClaimTimeout: tt.claim})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "must be longer than publish commit-timeout")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewPublishModule_RejectsShortClaimTimeout(t *testing.T) {
	// Given
	v := viper.New()
	v.Set("publish.commit-timeout", "2m")

	// When
	app := fx.New(
		fx.NopLogger,
		fx.Supply(v),
		fx.Supply(idempotency.Config{ClaimTimeout: time.Minute}),
		NewPublishModule(),
	)

	// Then
	require.Error(t, app.Err())
	assert.Contains(t, app.Err().Error(), "idempotency claim-timeout 1m0s must be longer than publish commit-timeout 2m0s")
}

func TestNewPublishModule_AcceptsDefaults(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(viper.New()),
		fx.Supply(idempotency.Config{ClaimTimeout: time.Minute}),
		NewPublishModule(),
	)

	require.NoError(t, app.Err())
}
