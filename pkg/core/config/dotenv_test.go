package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is not an error", func(t *testing.T) {
		loaded, err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env"))

		require.NoError(t, err)
		assert.False(t, loaded)
	})

	t.Run("existing variables win", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "worker.env", "EMAIL_TRANSPORT=kafka\nDELIVERY_CONCURRENCY=8\n")
		t.Setenv("EMAIL_TRANSPORT", "ses")
		t.Setenv("DELIVERY_CONCURRENCY", "")
		require.NoError(t, os.Unsetenv("DELIVERY_CONCURRENCY"))

		loaded, err := LoadDotEnv(path)

		require.NoError(t, err)
		assert.True(t, loaded)
		assert.Equal(t, "ses", os.Getenv("EMAIL_TRANSPORT"))
		assert.Equal(t, "8", os.Getenv("DELIVERY_CONCURRENCY"))
	})

	t.Run("unreadable path is reported", func(t *testing.T) {
		_, err := LoadDotEnv(t.TempDir())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load env file")
	})
}
