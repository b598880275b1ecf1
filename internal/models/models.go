package models

import "time"

// 账户状态
const (
	AccountStatusActive  = "active"
	AccountStatusExpired = "expired"
)

// Account 已授权的广告账户
type Account struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	AccountID string    `gorm:"index;not null" json:"account_id"` // 广告平台侧的账户 ID
	Status    string    `gorm:"default:'active'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// 素材类型与状态
const (
	MaterialTypeImage = "image"
	MaterialTypeVideo = "video"

	MaterialStatusSuccess = "success"
	MaterialStatusFailed  = "failed"
	MaterialStatusPending = "pending"
)

// Material 素材库中的一条素材
type Material struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Name       string    `gorm:"not null;index" json:"name"`
	Type       string    `gorm:"size:16" json:"type"`
	MimeType   string    `gorm:"size:128" json:"mime_type"`
	Size       int64     `json:"size"`
	AccountID  string    `gorm:"index" json:"account_id"`
	Remark     string    `gorm:"type:text" json:"remark"`
	Status     string    `gorm:"index" json:"status"`
	UploadedAt time.Time `json:"uploaded_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// KVSnapshot 按命名空间整体保存的状态快照
type KVSnapshot struct {
	Namespace string    `gorm:"primaryKey;size:128"`
	Data      []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KVSnapshot) TableName() string { return "kv_snapshots" }

// AllModels 需要迁移的表
func AllModels() []interface{} {
	return []interface{}{&Account{}, &Material{}, &KVSnapshot{}}
}
