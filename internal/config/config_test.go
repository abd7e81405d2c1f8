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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "quiz.db", cfg.Database.Path)
	assert.Equal(t, BackendSQLite, cfg.Highscore.Backend)
	assert.Equal(t, BackendFile, cfg.Snapshot.Backend)
	assert.Equal(t, "sessions", cfg.Snapshot.Dir)
	assert.Equal(t, 4, cfg.Quiz.MixedCategoryID)
	assert.Equal(t, time.Second, cfg.Quiz.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Quiz.ExitWindow)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SnapshotTTL)
	assert.Equal(t, 1.0, cfg.Telegram.EditsPerSecond)
	assert.False(t, cfg.UsesRedis())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
database:
  path: /var/lib/quiz/quiz.db
highscore:
  backend: redis
quiz:
  max_questions: 10
  exit_window: 3s
redis:
  addr: redis:6379
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/quiz/quiz.db", cfg.Database.Path)
	assert.Equal(t, BackendRedis, cfg.Highscore.Backend)
	assert.Equal(t, 10, cfg.Quiz.MaxQuestions)
	assert.Equal(t, 3*time.Second, cfg.Quiz.ExitWindow)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.UsesRedis())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("QUIZ_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("QUIZ_SNAPSHOT_BACKEND", "none")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, BackendNone, cfg.Snapshot.Backend)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("QUIZ_HIGHSCORE_BACKEND", "postgres")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "unknown highscore backend")
}

func TestValidate(t *testing.T) {
	cfg := Config{
		Highscore: HighscoreConfig{Backend: BackendMemory},
		Snapshot:  SnapshotConfig{Backend: BackendFile},
		Quiz:      QuizConfig{TickInterval: time.Second},
	}
	require.NoError(t, cfg.Validate())

	cfg.Snapshot.Backend = "s3"
	assert.Error(t, cfg.Validate())

	cfg.Snapshot.Backend = BackendRedis
	cfg.Quiz.TickInterval = 0
	assert.Error(t, cfg.Validate())
}
