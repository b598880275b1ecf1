package storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"materialhub/internal/config"
	"materialhub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newKVTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.KVSnapshot{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// exerciseKV 所有后端共享的行为约定
func exerciseKV(t *testing.T, kv KV) {
	ctx := context.Background()

	data, found, err := kv.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)

	require.NoError(t, kv.Save(ctx, "ns", []byte(`{"v":1}`)))
	data, found, err = kv.Load(ctx, "ns")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"v":1}`, string(data))

	// 整体替换
	require.NoError(t, kv.Save(ctx, "ns", []byte(`{"v":2}`)))
	data, _, err = kv.Load(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	// 命名空间互不影响
	require.NoError(t, kv.Save(ctx, "other", []byte("x")))
	data, _, _ = kv.Load(ctx, "ns")
	assert.Equal(t, `{"v":2}`, string(data))
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemoryKV())
}

func TestMemoryKV_CopiesBuffers(t *testing.T) {
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Save(context.Background(), "ns", buf))
	buf[0] = 'z'

	got, _, _ := kv.Load(context.Background(), "ns")
	assert.Equal(t, "abc", string(got))
	got[1] = 'z'
	again, _, _ := kv.Load(context.Background(), "ns")
	assert.Equal(t, "abc", string(again))
}

func TestGormKV(t *testing.T) {
	exerciseKV(t, NewGormKV(newKVTestDB(t)))
}

func TestGormKV_SingleRowPerNamespace(t *testing.T) {
	db := newKVTestDB(t)
	kv := NewGormKV(db)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, kv.Save(ctx, "ns", []byte{byte(i)}))
	}
	var count int64
	db.Model(&models.KVSnapshot{}).Where("namespace = ?", "ns").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRedisKV(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	kv := NewRedisKV(rdb, "test:")
	exerciseKV(t, kv)

	assert.True(t, mr.Exists("test:ns"))
	assert.Equal(t, time.Duration(0), mr.TTL("test:ns"))
}

func TestOpen_Backends(t *testing.T) {
	logger := logrus.New()

	cfg := config.GetDefaultConfig()
	cfg.Storage.Backend = "memory"
	kv, closer, err := Open(cfg, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)
	assert.NoError(t, closer())

	cfg.Storage.Backend = "database"
	_, _, err = Open(cfg, nil, logger)
	assert.Error(t, err)

	kv, _, err = Open(cfg, newKVTestDB(t), logger)
	require.NoError(t, err)
	assert.IsType(t, &GormKV{}, kv)

	cfg.Storage.Backend = "bogus"
	_, _, err = Open(cfg, nil, logger)
	assert.Error(t, err)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.GetDefaultConfig()
	cfg.Storage.Backend = "redis"
	cfg.Redis.Host = mr.Host()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	cfg.Redis.Port = port

	kv, closer, err := Open(cfg, nil, logrus.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer() })
	require.NoError(t, kv.Save(context.Background(), "system-config", []byte("{}")))
	assert.True(t, mr.Exists("materialhub:system-config"))
}
