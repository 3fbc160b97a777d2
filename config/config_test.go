package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "whisper", cfg.STTProvider)
	assert.Equal(t, "local", cfg.TTSProvider)
	assert.Equal(t, 24*time.Hour, cfg.AnalysisCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT: \"9000\"\nDOCTOR_CHAT_ID: 42\nTTS_PROVIDER: elevenlabs\n"), 0o600))

	t.Setenv("TTS_PROVIDER", "local")
	t.Setenv("ENV", "production")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.AppPort)
	assert.Equal(t, int64(42), cfg.DoctorChatID)
	assert.Equal(t, "local", cfg.TTSProvider)
	assert.True(t, cfg.IsProduction())
}
