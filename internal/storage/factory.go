package storage

import (
	"fmt"
	"strings"

	"materialhub/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Open 按 storage.backend 选择后端，返回的 closer 负责释放底层连接
func Open(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (KV, func() error, error) {
	noop := func() error { return nil }
	backend := strings.ToLower(cfg.Storage.Backend)
	switch backend {
	case "", "memory":
		logger.Warn("storage: using in-memory snapshots, rule changes will not survive restart")
		return NewMemoryKV(), noop, nil
	case "database", "db":
		if db == nil {
			return nil, noop, fmt.Errorf("storage backend %q requires a database connection", backend)
		}
		return NewGormKV(db), noop, nil
	case "redis":
		rdb, err := NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return NewRedisKV(rdb, cfg.Storage.KeyPrefix), rdb.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
