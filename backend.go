package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gmllt/taskboard/internal/storage"
)

// openKV builds the configured storage backend. The returned close
// function releases its connections.
func openKV(ctx context.Context, cfg StorageConfig, log logrus.FieldLogger) (storage.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "memory":
		log.Warn("using in-memory storage, the board is lost on restart")
		return storage.NewMemory(cfg.Memory.QuotaBytes), noop, nil
	case "file":
		kv, err := storage.NewFile(cfg.File.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	case "s3":
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init S3: %w", err)
		}
		kv := storage.NewS3(client, cfg.S3)
		if err := kv.EnsureBucket(ctx); err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	case "redis":
		client, err := storage.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewRedis(client, cfg.Redis.Prefix), client.Close, nil
	case "sql":
		kv, err := storage.OpenSQL(ctx, cfg.SQL)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
