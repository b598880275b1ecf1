package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"materialhub/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SeedAccounts 初始的四个授权账户
func SeedAccounts() []models.Account {
	day := func(s string) time.Time {
		t, _ := time.Parse(dateLayout, s)
		return t
	}
	return []models.Account{
		{ID: "1", Name: "品牌主账号-美妆", AccountID: "1001", Status: models.AccountStatusActive, CreatedAt: day("2023-10-01")},
		{ID: "2", Name: "品牌主账号-服饰", AccountID: "1002", Status: models.AccountStatusActive, CreatedAt: day("2023-10-05")},
		{ID: "3", Name: "分销商账号-华东", AccountID: "2001", Status: models.AccountStatusExpired, CreatedAt: day("2023-11-12")},
		{ID: "4", Name: "分销商账号-华南", AccountID: "2002", Status: models.AccountStatusActive, CreatedAt: day("2023-11-20")},
	}
}

// AccountCreateRequest 新增账户
type AccountCreateRequest struct {
	Name      string `json:"name" binding:"required"`
	AccountID string `json:"account_id" binding:"required"`
}

// AccountService 广告账户目录，同时作为触达计划与素材的账户来源
type AccountService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewAccountService(db *gorm.DB, logger *logrus.Logger) *AccountService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AccountService{db: db, logger: logger}
}

// Seed 表为空时写入初始账户
func (s *AccountService) Seed(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seed := SeedAccounts()
	return s.db.WithContext(ctx).Create(&seed).Error
}

// List search 按名称或平台账户 ID 子串匹配
func (s *AccountService) List(ctx context.Context, search string) ([]models.Account, error) {
	var accounts []models.Account
	q := s.db.WithContext(ctx).Order("created_at ASC, id ASC")
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR account_id LIKE ?", like, like)
	}
	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError("account %q", id)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) Create(ctx context.Context, req *AccountCreateRequest) (*models.Account, error) {
	if req == nil {
		return nil, validationError("request required")
	}
	name, extID := strings.TrimSpace(req.Name), strings.TrimSpace(req.AccountID)
	if name == "" || extID == "" {
		return nil, validationError("name and account_id are required")
	}
	now := time.Now()
	account := &models.Account{
		ID:        uuid.NewString(),
		Name:      name,
		AccountID: extID,
		Status:    models.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"account_id": account.ID, "external_id": extID}).Info("account added")
	return account, nil
}

// Delete 返回 false 表示账户不存在
func (s *AccountService) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Account{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	s.logger.WithField("account_id", id).Info("account deleted")
	return true, nil
}

// AccountNames 实现 AccountDirectory
func (s *AccountService) AccountNames(ctx context.Context) (map[string]string, error) {
	accounts, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return names, nil
}
