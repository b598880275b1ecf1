package services

import (
	"context"
	"sync"

	"materialhub/internal/metrics"
	"materialhub/internal/models"
	"materialhub/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultNoReplyMinutes = 30

// SeedReturnVisitRules 首次启动时的回访规则
func SeedReturnVisitRules() []models.ReturnVisitRule {
	return []models.ReturnVisitRule{
		{ID: "1", NoReplyMinutes: defaultNoReplyMinutes, MissingFields: []string{models.MissingFieldPhone}, SelectedAgentID: "agent-1"},
	}
}

type ReturnVisitRuleUpdate struct {
	NoReplyMinutes  *int      `json:"no_reply_minutes"`
	MissingFields   *[]string `json:"missing_fields"`
	SelectedAgentID *string   `json:"selected_agent_id"`
}

// ReturnVisitService 回访规则存储，至少保留一条规则
type ReturnVisitService struct {
	mu     sync.Mutex
	rules  []models.ReturnVisitRule
	agents *AgentCatalog
	snap   snapshotter
	logger *logrus.Logger
}

func NewReturnVisitService(ctx context.Context, kv storage.KV, agents *AgentCatalog, logger *logrus.Logger) (*ReturnVisitService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if agents == nil {
		agents = NewAgentCatalog(DefaultAgents())
	}
	s := &ReturnVisitService{agents: agents, snap: newSnapshotter(kv, NamespaceReturnVisit, logger), logger: logger}
	var rules []models.ReturnVisitRule
	found, err := s.snap.load(ctx, &rules)
	if err != nil {
		return nil, err
	}
	if !found || len(rules) == 0 {
		rules = SeedReturnVisitRules()
	}
	s.rules = rules
	return s, nil
}

func (s *ReturnVisitService) List() []models.ReturnVisitRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReturnVisitRules(s.rules)
}

// Add 追加默认规则：30 分钟、无缺失字段、目录中的第一个 Agent
func (s *ReturnVisitService) Add(ctx context.Context) (models.ReturnVisitRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule := models.ReturnVisitRule{
		ID:              uuid.NewString(),
		NoReplyMinutes:  defaultNoReplyMinutes,
		MissingFields:   []string{},
		SelectedAgentID: s.agents.First().ID,
	}
	next := append(cloneReturnVisitRules(s.rules), rule)
	if err := s.commit(ctx, next); err != nil {
		return models.ReturnVisitRule{}, err
	}
	s.logger.WithField("rule_id", rule.ID).Info("return visit rule added")
	metrics.RecordRuleMutation("return_visit", "add")
	return rule.Clone(), nil
}

func (s *ReturnVisitService) Update(ctx context.Context, id string, req ReturnVisitRuleUpdate) (bool, error) {
	if req.NoReplyMinutes != nil && *req.NoReplyMinutes < 1 {
		return false, validationError("no_reply_minutes must be positive")
	}
	var fields []string
	if req.MissingFields != nil {
		var err error
		if fields, err = normalizeMissingFields(*req.MissingFields); err != nil {
			return false, err
		}
	}
	if req.SelectedAgentID != nil {
		if _, ok := s.agents.Find(*req.SelectedAgentID); !ok {
			return false, validationError("unknown agent %q", *req.SelectedAgentID)
		}
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
	next := cloneReturnVisitRules(s.rules)
	if req.NoReplyMinutes != nil {
		next[idx].NoReplyMinutes = *req.NoReplyMinutes
	}
	if req.MissingFields != nil {
		next[idx].MissingFields = fields
	}
	if req.SelectedAgentID != nil {
		next[idx].SelectedAgentID = *req.SelectedAgentID
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.logger.WithField("rule_id", id).Info("return visit rule updated")
	metrics.RecordRuleMutation("return_visit", "update")
	return true, nil
}

// Delete 仅剩一条时静默忽略
func (s *ReturnVisitService) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rules) <= 1 {
		return false, nil
	}
	next := make([]models.ReturnVisitRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.ID != id {
			next = append(next, r.Clone())
		}
	}
	if len(next) == len(s.rules) {
		return false, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}
	s.logger.WithField("rule_id", id).Info("return visit rule deleted")
	metrics.RecordRuleMutation("return_visit", "delete")
	return true, nil
}

func (s *ReturnVisitService) commit(ctx context.Context, next []models.ReturnVisitRule) error {
	if err := s.snap.save(ctx, next); err != nil {
		return err
	}
	s.rules = next
	return nil
}

func cloneReturnVisitRules(in []models.ReturnVisitRule) []models.ReturnVisitRule {
	out := make([]models.ReturnVisitRule, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// normalizeMissingFields 去重并按 name, phone, wechat 排序
func normalizeMissingFields(fields []string) ([]string, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		known := false
		for _, k := range models.MissingFieldOrder {
			if f == k {
				known = true
				break
			}
		}
		if !known {
			return nil, validationError("unknown missing field %q", f)
		}
		seen[f] = true
	}
	out := make([]string, 0, len(seen))
	for _, k := range models.MissingFieldOrder {
		if seen[k] {
			out = append(out, k)
		}
	}
	return out, nil
}
