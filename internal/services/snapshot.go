package services

import (
	"context"
	"encoding/json"
	"fmt"

	"materialhub/internal/metrics"
	"materialhub/internal/storage"

	"github.com/sirupsen/logrus"
)

// 各存储的固定命名空间
const (
	NamespaceOpening     = "opening-config-storage"
	NamespaceReturnVisit = "return-visit-storage"
	NamespaceAudit       = "system-config"
	NamespaceLexicon     = "audit-lexicon-storage"
	NamespaceOutreach    = "outreach-plan-storage"
)

// snapshotter 把一个命名空间的完整状态以 JSON 写入 KV
type snapshotter struct {
	kv        storage.KV
	namespace string
	logger    *logrus.Logger
}

func newSnapshotter(kv storage.KV, namespace string, logger *logrus.Logger) snapshotter {
	if kv == nil {
		kv = storage.NewMemoryKV()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return snapshotter{kv: kv, namespace: namespace, logger: logger}
}

// load 返回 false 表示没有快照，调用方应使用种子数据
func (s snapshotter) load(ctx context.Context, out interface{}) (bool, error) {
	data, found, err := s.kv.Load(ctx, s.namespace)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", s.namespace, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", s.namespace, err)
	}
	return true, nil
}

func (s snapshotter) save(ctx context.Context, state interface{}) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.namespace, err)
	}
	if err := s.kv.Save(ctx, s.namespace, data); err != nil {
		s.logger.WithError(err).WithField("namespace", s.namespace).Error("failed to persist snapshot")
		metrics.RecordSnapshotFailure(s.namespace)
		return fmt.Errorf("save %s: %w", s.namespace, err)
	}
	return nil
}
