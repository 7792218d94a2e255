package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezdb/ezdb"
	"github.com/ezdb/ezdb/types"
)

const sample = `
target:
  dialect: mysql
  host: db.internal
  port: 3307
  database: metrics
engine:
  retention_pause: 250ms
  max_delete_row_size: 500
tables:
  - name: readings
    max_rows: 1000
    columns:
      - name: id
        type: bigint
      - name: value
        type: float64
      - name: at
        type: timestamp
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ezdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample), nil)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Target.Dialect)
	assert.Equal(t, "db.internal", cfg.Target.Host)
	assert.Equal(t, 3307, cfg.Target.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.RetentionPause)
	assert.Equal(t, int64(500), cfg.Engine.MaxDeleteRowSize)
	assert.Equal(t, "info", cfg.LogLevel)

	require.Len(t, cfg.Tables, 1)
	table, err := cfg.Table("readings")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), table.MaxRows)
	assert.Equal(t, []ezdb.Column{
		{Name: "id", Kind: types.Int64},
		{Name: "value", Kind: types.Float64},
		{Name: "at", Kind: types.Timestamp},
	}, table.Columns)

	_, err = cfg.Table("missing")
	assert.ErrorIs(t, err, ezdb.ErrUnknownTable)
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, sample)
	t.Setenv("EZDB_TARGET__HOST", "env-host")
	t.Setenv("EZDB_TARGET__DATABASE", "env-db")
	t.Setenv("EZDB_LOG_LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database", "", "")
	flags.String("host", "", "")
	require.NoError(t, flags.Parse([]string{"--database", "flag-db"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Target.Host, "env overrides file")
	assert.Equal(t, "flag-db", cfg.Target.Database, "flags override env")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, path, cfg.FileUsed)
}

func TestDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Target.Dialect)
	assert.Empty(t, cfg.FileUsed)
	assert.Empty(t, cfg.Tables)
}

func TestInvalidTable(t *testing.T) {
	_, err := Load(writeConfig(t, `
tables:
  - name: bad-name
    columns:
      - name: id
        type: int32
`), nil)
	assert.ErrorIs(t, err, ezdb.ErrInvalidName)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{LogLevel: "warn", LogFormat: "json"}
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "table", "readings")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"table":"readings"`)

	_, err = (&Config{LogLevel: "loud"}).Logger(&buf)
	assert.Error(t, err)
	_, err = (&Config{LogLevel: "info", LogFormat: "xml"}).Logger(&buf)
	assert.Error(t, err)
}
