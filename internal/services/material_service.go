package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"materialhub/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MaterialFilter Search 不区分大小写匹配名称；AccountID 为空或 "all" 时不过滤
type MaterialFilter struct {
	Search    string `form:"search" json:"search"`
	AccountID string `form:"account_id" json:"account_id"`
}

// SubmitResult 批量提审结果
type SubmitResult struct {
	Count  int    `json:"count"`
	Policy string `json:"policy"`
}

// MaterialService 素材库
type MaterialService struct {
	db     *gorm.DB
	audit  *AuditConfigService
	logger *logrus.Logger
}

func NewMaterialService(db *gorm.DB, audit *AuditConfigService, logger *logrus.Logger) *MaterialService {
	if logger == nil {
		logger = logrus.New()
	}
	return &MaterialService{db: db, audit: audit, logger: logger}
}

// SeedMaterials 演示用的素材数据，按账户轮流归属
func SeedMaterials(now time.Time) []models.Material {
	accounts := []string{"1", "2", "3", "4"}
	out := make([]models.Material, 0, 12)
	for i := 0; i < 12; i++ {
		status := models.MaterialStatusSuccess
		if i%10 == 9 {
			status = models.MaterialStatusFailed
		}
		out = append(out, models.Material{
			ID:         fmt.Sprintf("m-%d", i+1),
			Name:       fmt.Sprintf("2023春季新品推广视频_%d.mp4", i+1),
			Type:       models.MaterialTypeVideo,
			MimeType:   "video/mp4",
			Size:       int64(i+1) * 3 * 1024 * 1024,
			AccountID:  accounts[i%len(accounts)],
			Status:     status,
			UploadedAt: now.Add(-time.Duration(i) * 17 * time.Hour),
		})
	}
	return out
}

func (s *MaterialService) Seed(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Material{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seed := SeedMaterials(time.Now())
	return s.db.WithContext(ctx).Create(&seed).Error
}

// List 按上传时间倒序
func (s *MaterialService) List(ctx context.Context, f MaterialFilter) ([]models.Material, error) {
	var materials []models.Material
	q := s.db.WithContext(ctx).Order("uploaded_at DESC, id ASC")
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+search+"%")
	}
	if f.AccountID != "" && f.AccountID != accountFilterAll {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if err := q.Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}

// ToggleSelectAll 对当前过滤结果全选或清空
func (s *MaterialService) ToggleSelectAll(ctx context.Context, f MaterialFilter, current Selection) (Selection, error) {
	materials, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(materials))
	for i, m := range materials {
		ids[i] = m.ID
	}
	return ToggleAll(ids, current), nil
}

// Register 把上传成功的文件登记进素材库
func (s *MaterialService) Register(ctx context.Context, files []models.MaterialFile) ([]models.Material, error) {
	if len(files) == 0 {
		return nil, nil
	}
	now := time.Now()
	out := make([]models.Material, 0, len(files))
	for _, f := range files {
		out = append(out, models.Material{
			ID:         f.ID,
			Name:       f.Name,
			Type:       materialType(f.MimeType),
			MimeType:   f.MimeType,
			Size:       f.Size,
			AccountID:  f.AccountID,
			Remark:     f.Remark,
			Status:     models.MaterialStatusSuccess,
			UploadedAt: now,
		})
	}
	if err := s.db.WithContext(ctx).Create(&out).Error; err != nil {
		return nil, fmt.Errorf("register materials: %w", err)
	}
	s.logger.WithField("count", len(out)).Info("materials registered")
	return out, nil
}

// BatchSubmit 提交审核，返回数量与当前审核策略描述
func (s *MaterialService) BatchSubmit(ctx context.Context, ids []string) (*SubmitResult, error) {
	if len(ids) == 0 {
		return nil, validationError("no materials selected")
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Material{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, notFoundError("materials %v", ids)
	}
	policy := "仅平台审核"
	if s.audit != nil {
		policy = s.audit.PolicyDescription()
	}
	s.logger.WithFields(logrus.Fields{"count": count, "policy": policy}).Info("materials submitted for review")
	return &SubmitResult{Count: int(count), Policy: policy}, nil
}

func materialType(mime string) string {
	if strings.HasPrefix(mime, "video/") {
		return models.MaterialTypeVideo
	}
	return models.MaterialTypeImage
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize 1024 进制，最多两位小数并去掉末尾的 0
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := math.Round(float64(bytes)/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
