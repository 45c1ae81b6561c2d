package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gmllt/taskboard/internal/storage"
)

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // text or json
}

type MemoryConfig struct {
	QuotaBytes int `yaml:"quota_bytes" toml:"quota_bytes"`
}

type FileConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

type StorageConfig struct {
	// Backend is one of memory, file, s3, redis, sql.
	Backend string              `yaml:"backend" toml:"backend"`
	Memory  MemoryConfig        `yaml:"memory" toml:"memory"`
	File    FileConfig          `yaml:"file" toml:"file"`
	S3      storage.S3Config    `yaml:"s3" toml:"s3"`
	Redis   storage.RedisConfig `yaml:"redis" toml:"redis"`
	SQL     storage.SQLConfig   `yaml:"sql" toml:"sql"`
}

type Config struct {
	Listen    string        `yaml:"listen" toml:"listen"`
	StaticDir string        `yaml:"static_dir" toml:"static_dir"`
	Log       LogConfig     `yaml:"log" toml:"log"`
	Storage   StorageConfig `yaml:"storage" toml:"storage"`
}

func defaultConfig() Config {
	return Config{
		Listen:    ":8080",
		StaticDir: "static",
		Log:       LogConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{
			Backend: "memory",
			Memory:  MemoryConfig{QuotaBytes: 5 << 20},
			File:    FileConfig{Dir: "data"},
			SQL:     storage.SQLConfig{Driver: "sqlite3"},
		},
	}
}

// loadConfig reads a YAML or TOML file over the defaults. A missing
// file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return &cfg, nil
}

// applyEnv overrides config values from KBAN_* environment variables.
func (c *Config) applyEnv(getenv func(string) string) error {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Listen, "KBAN_LISTEN")
	set(&c.StaticDir, "KBAN_STATIC_DIR")
	set(&c.Log.Level, "KBAN_LOG_LEVEL")
	set(&c.Log.Format, "KBAN_LOG_FORMAT")
	set(&c.Storage.Backend, "KBAN_STORAGE")
	set(&c.Storage.File.Dir, "KBAN_FILE_DIR")
	set(&c.Storage.Redis.Addr, "KBAN_REDIS_ADDR")
	set(&c.Storage.Redis.Password, "KBAN_REDIS_PASSWORD")
	set(&c.Storage.SQL.Driver, "KBAN_SQL_DRIVER")
	set(&c.Storage.SQL.DSN, "KBAN_SQL_DSN")
	set(&c.Storage.S3.AccessKey, "KBAN_S3_ACCESS_KEY")
	set(&c.Storage.S3.SecretKey, "KBAN_S3_SECRET_KEY")
	if v := getenv("KBAN_MEMORY_QUOTA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KBAN_MEMORY_QUOTA: %w", err)
		}
		c.Storage.Memory.QuotaBytes = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	s := c.Storage
	switch s.Backend {
	case "memory":
		if s.Memory.QuotaBytes < 0 {
			return errors.New("memory quota must not be negative")
		}
	case "file":
		if s.File.Dir == "" {
			return errors.New("storage.file.dir is required")
		}
	case "s3":
		if s.S3.Endpoint == "" || s.S3.Bucket == "" {
			return errors.New("storage.s3 endpoint and bucket are required")
		}
	case "redis":
		if s.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required")
		}
	case "sql":
		if s.SQL.DSN == "" {
			return errors.New("storage.sql.dsn is required")
		}
		if s.SQL.Driver != "sqlite3" && s.SQL.Driver != "postgres" {
			return fmt.Errorf("unknown sql driver %q", s.SQL.Driver)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
	return nil
}
