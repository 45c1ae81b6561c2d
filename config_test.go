package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), *cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yml", `
listen: ":9090"
log:
  level: debug
  format: json
storage:
  backend: s3
  s3:
    endpoint: http://minio:9000
    bucket: kanban
    region: us-east-1
    access_key: key
    secret_key: secret
    use_path_style: true
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "kanban", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
	// Unset values keep their defaults.
	assert.Equal(t, "static", cfg.StaticDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigYAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "config.yml", "listen: \":80\"\nlisten_port: 80\n")
	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigEmptyYAML(t *testing.T) {
	cfg, err := loadConfig(writeFile(t, "config.yml", ""))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), *cfg)
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
listen = ":7070"

[storage]
backend = "sql"

[storage.sql]
driver = "sqlite3"
dsn = "file:kban.db"
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "sql", cfg.Storage.Backend)
	assert.Equal(t, "file:kban.db", cfg.Storage.SQL.DSN)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	cfg := defaultConfig()
	env := map[string]string{
		"KBAN_LISTEN":       ":1234",
		"KBAN_STORAGE":      "redis",
		"KBAN_REDIS_ADDR":   "localhost:6379",
		"KBAN_MEMORY_QUOTA": "1024",
	}
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, ":1234", cfg.Listen)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
	assert.Equal(t, 1024, cfg.Storage.Memory.QuotaBytes)
	assert.NoError(t, cfg.Validate())

	env["KBAN_MEMORY_QUOTA"] = "lots"
	assert.Error(t, cfg.applyEnv(func(k string) string { return env[k] }))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no listen", func(c *Config) { c.Listen = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "localstorage" }},
		{"negative quota", func(c *Config) { c.Storage.Memory.QuotaBytes = -1 }},
		{"file without dir", func(c *Config) { c.Storage.Backend = "file"; c.Storage.File.Dir = "" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3"; c.Storage.S3.Endpoint = "http://minio:9000" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }},
		{"sql without dsn", func(c *Config) { c.Storage.Backend = "sql" }},
		{"sql bad driver", func(c *Config) { c.Storage.Backend = "sql"; c.Storage.SQL.DSN = "x"; c.Storage.SQL.Driver = "mysql" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOpenKV(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	ctx := context.Background()

	cfgs := []StorageConfig{
		{Backend: "memory"},
		{Backend: "file", File: FileConfig{Dir: t.TempDir()}},
		{Backend: "sql", SQL: defaultConfig().Storage.SQL},
	}
	cfgs[2].SQL.DSN = ":memory:"
	for _, cfg := range cfgs {
		kv, closeKV, err := openKV(ctx, cfg, log)
		require.NoError(t, err, cfg.Backend)
		require.NoError(t, kv.Set(ctx, "k", "v"), cfg.Backend)
		assert.NoError(t, closeKV())
	}

	_, _, err := openKV(ctx, StorageConfig{Backend: "etcd"}, log)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = newLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
