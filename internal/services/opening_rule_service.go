package services

import (
	"context"
	"sync"
	"unicode/utf8"

	"materialhub/internal/metrics"
	"materialhub/internal/models"
	"materialhub/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultOpeningMinutes = 5
	maxMessageLength      = 500
)

// SeedOpeningRules 首次启动时的开口规则
func SeedOpeningRules() []models.OpeningRule {
	return []models.OpeningRule{
		{ID: "1", Minutes: defaultOpeningMinutes, Message: "您好，请问有什么可以帮您？"},
	}
}

// OpeningRuleUpdate 局部更新，nil 字段保持不变
type OpeningRuleUpdate struct {
	Minutes *int    `json:"minutes"`
	Message *string `json:"message"`
}

// OpeningRuleService 开口规则存储
type OpeningRuleService struct {
	mu     sync.Mutex
	rules  []models.OpeningRule
	snap   snapshotter
	logger *logrus.Logger
}

func NewOpeningRuleService(ctx context.Context, kv storage.KV, logger *logrus.Logger) (*OpeningRuleService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	s := &OpeningRuleService{snap: newSnapshotter(kv, NamespaceOpening, logger), logger: logger}
	var rules []models.OpeningRule
	found, err := s.snap.load(ctx, &rules)
	if err != nil {
		return nil, err
	}
	if !found {
		rules = SeedOpeningRules()
	}
	s.rules = rules
	return s, nil
}

func (s *OpeningRuleService) List() []models.OpeningRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OpeningRule(nil), s.rules...)
}

// Add 追加一条默认规则（5 分钟，空话术）
func (s *OpeningRuleService) Add(ctx context.Context) (models.OpeningRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := models.OpeningRule{ID: uuid.NewString(), Minutes: defaultOpeningMinutes}
	next := append(append([]models.OpeningRule(nil), s.rules...), rule)
	if err := s.commit(ctx, next); err != nil {
		return models.OpeningRule{}, err
	}
	s.logger.WithField("rule_id", rule.ID).Info("opening rule added")
	metrics.RecordRuleMutation("opening", "add")
	return rule, nil
}

// Update 返回 false 表示规则不存在，此时不做任何修改
func (s *OpeningRuleService) Update(ctx context.Context, id string, req OpeningRuleUpdate) (bool, error) {
	if req.Minutes != nil && *req.Minutes < 1 {
		return false, validationError("minutes must be positive")
	}
	if req.Message != nil && utf8.RuneCountInString(*req.Message) > maxMessageLength {
		return false, validationError("message exceeds %d characters", maxMessageLength)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.rules {
		if s.rules[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	next := append([]models.OpeningRule(nil), s.rules...)
	if req.Minutes != nil {
		next[idx].Minutes = *req.Minutes
	}
	if req.Message != nil {
		next[idx].Message = *req.Message
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.logger.WithField("rule_id", id).Info("opening rule updated")
	metrics.RecordRuleMutation("opening", "update")
	return true, nil
}

// Delete 允许删除到空列表
func (s *OpeningRuleService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]models.OpeningRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(s.rules) {
		return false, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.logger.WithField("rule_id", id).Info("opening rule deleted")
	metrics.RecordRuleMutation("opening", "delete")
	return true, nil
}

// commit 先持久化再替换内存状态，保存失败时状态不变
func (s *OpeningRuleService) commit(ctx context.Context, next []models.OpeningRule) error {
	if err := s.snap.save(ctx, next); err != nil {
		return err
	}
	s.rules = next
	return nil
}
