package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAppEnv(t *testing.T, env, name, version string) {
	t.Helper()
	t.Setenv(envAppEnv, env)
	t.Setenv(envAppServiceName, name)
	t.Setenv(envAppServiceVersion, version)
	t.Setenv(envAppInstanceID, "")
}

func TestNewAppConfig_Success(t *testing.T) {
	// Arrange
	setAppEnv(t, "dev", "newsletter", "1.0.0")
	t.Setenv(envAppInstanceID, "worker-1")

	// Act
	cfg, err := newAppConfig()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, "newsletter", cfg.ServiceName)
	assert.Equal(t, "1.0.0", cfg.ServiceVersion)
	assert.Equal(t, "worker-1", cfg.InstanceID)
}

func TestNewAppConfig_GeneratesInstanceID(t *testing.T) {
	// Arrange
	setAppEnv(t, "standalone", "newsletter", "1.0.0")

	// Act
	first, err := newAppConfig()
	require.NoError(t, err)
	second, err := newAppConfig()
	require.NoError(t, err)

	// Assert
	assert.NotEmpty(t, first.InstanceID)
	assert.NotEqual(t, first.InstanceID, second.InstanceID)
}

func TestNewAppConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		service  string
		version  string
		contains string
	}{
		{name: "missing env", env: "", service: "svc", version: "1", contains: envAppEnv},
		{name: "unknown env", env: "staging", service: "svc", version: "1", contains: "staging"},
		{name: "missing service name", env: "dev", service: "", version: "1", contains: envAppServiceName},
		{name: "missing service version", env: "dev", service: "svc", version: "", contains: envAppServiceVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setAppEnv(t, tt.env, tt.service, tt.version)

			_, err := newAppConfig()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestWithInstanceID_KeepsExplicitValue(t *testing.T) {
	cfg := withInstanceID(AppConfig{InstanceID: "fixed"})

	assert.Equal(t, "fixed", cfg.InstanceID)
}

func TestEnvironment_IsValid(t *testing.T) {
	assert.True(t, EnvStandalone.IsValid())
	assert.True(t, EnvDevelopment.IsValid())
	assert.True(t, EnvProduction.IsValid())
	assert.False(t, Environment("local").IsValid())
	assert.False(t, Environment("").IsValid())
}
