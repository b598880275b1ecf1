package storage

import (
	"context"
	"errors"
	"time"

	"materialhub/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKV 把快照保存在 kv_snapshots 表中
type GormKV struct {
	db *gorm.DB
}

func NewGormKV(db *gorm.DB) *GormKV {
	return &GormKV{db: db}
}

func (g *GormKV) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "kv.gorm.Load", trace.WithAttributes(attribute.String("kv.namespace", namespace)))
	defer span.End()

	var snap models.KVSnapshot
	err := g.db.WithContext(ctx).Where("namespace = ?", namespace).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return snap.Data, true, nil
}

func (g *GormKV) Save(ctx context.Context, namespace string, data []byte) error {
	ctx, span := tracer.Start(ctx, "kv.gorm.Save", trace.WithAttributes(
		attribute.String("kv.namespace", namespace),
		attribute.Int("kv.size", len(data)),
	))
	defer span.End()

	snap := models.KVSnapshot{Namespace: namespace, Data: data, UpdatedAt: time.Now()}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		span.RecordError(err)
	}
	return err
}
