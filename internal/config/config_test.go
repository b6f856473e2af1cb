package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CanonCurator/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  dsn: postgres://canon@localhost/canon
engine:
  batchSize: 3
  fastMovingKeywords: [robotics]
  domains:
    2: Culture
scheduler:
  enabled: true
  cronExpression: "30 5 * * 1"
  timezone: Europe/Berlin
logging:
  format: json
`)
	t.Setenv(inferenceAPIKeyEnv, "sk-test")
	t.Setenv(databaseDSNEnv, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://canon@localhost/canon", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Engine.BatchSize)
	assert.Equal(t, 730, cfg.Engine.StalenessThresholds.Author.SevereDays, "untouched keys keep defaults")
	assert.Equal(t, "sk-test", cfg.Inference.APIKey)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout())

	settings := cfg.Settings()
	assert.True(t, settings.IsFastMoving("Home robotics"))
	assert.False(t, settings.IsFastMoving("Agentic systems"))
	assert.Equal(t, "Culture", settings.DomainLabel(domain.DomainID(2)))
	assert.Equal(t, "Technology & Capabilities", settings.DomainLabel(domain.DomainID(1)))
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDriverEnv, "postgres")
	t.Setenv(databaseDSNEnv, "postgres://env/canon")
	t.Setenv(logLevelEnv, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env/canon", cfg.Database.DSN)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: mysql
engine:
  batchSize: 0
  stalenessThresholds:
    author: {severeDays: 100, staleDays: 365, agingDays: 180}
inference:
  backend: oracle
`)

	_, err := Load(path)
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "Database.Driver must be one of: postgres sqlite")
	assert.ErrorContains(t, err, "Engine.BatchSize must be >= 1")
	assert.ErrorContains(t, err, "Engine.StalenessThresholds.Author.SevereDays must be greater than StaleDays")
	assert.ErrorContains(t, err, "Inference.Backend must be one of: llm ml")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "engine: [not, a, map]"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	require.ErrorIs(t, err, ErrInvalid)
	assert.ErrorContains(t, err, "Mars/Olympus")
}

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, Default().Validate())
}
