package delivery

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := newConfig(viper.New())

	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestNewConfig_FromViper(t *testing.T) {
	// Given
	v := viper.New()
	v.Set("delivery.concurrency", 4)
	v.Set("delivery.lease", "2m")
	v.Set("delivery.max-attempts", 5)
	v.Set("delivery.rate-limit", 12.5)

	// When
	cfg, err := newConfig(v)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Lease)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.InDelta(t, 12.5, cfg.RateLimit, 0.0001)
	assert.Equal(t, 30*time.Second, cfg.SendTimeout)
}

func TestNewConfig_SendTimeoutMustBeShorterThanLease(t *testing.T) {
	v := viper.New()
	v.Set("delivery.lease", "30s")
	v.Set("delivery.send-timeout", "30s")

	_, err := newConfig(v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send-timeout")
}

func TestApplyDefaults_SendTimeoutFollowsShortLease(t *testing.T) {
	cfg := Config{Lease: 10 * time.Second}

	applyDefaults(&cfg)

	assert.Equal(t, 5*time.Second, cfg.SendTimeout)
	assert.NoError(t, cfg.validate())
}

func TestApplyDefaults_RetryMaxDelayNotBelowBase(t *testing.T) {
	cfg := Config{RetryBaseDelay: 2 * time.Hour, RetryMaxDelay: time.Minute}

	applyDefaults(&cfg)

	assert.Equal(t, 2*time.Hour, cfg.RetryMaxDelay)
}
