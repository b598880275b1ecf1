package services

import (
	"context"
	"sync"

	"materialhub/internal/metrics"
	"materialhub/internal/models"
	"materialhub/internal/storage"

	"github.com/sirupsen/logrus"
)

// AuditConfigService 素材审核策略单例
type AuditConfigService struct {
	mu     sync.Mutex
	cfg    models.AuditConfig
	agents *AgentCatalog
	snap   snapshotter
	logger *logrus.Logger
}

func NewAuditConfigService(ctx context.Context, kv storage.KV, agents *AgentCatalog, logger *logrus.Logger) (*AuditConfigService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if agents == nil {
		agents = NewAgentCatalog(DefaultAgents())
	}
	s := &AuditConfigService{agents: agents, snap: newSnapshotter(kv, NamespaceAudit, logger), logger: logger}
	var cfg models.AuditConfig
	found, err := s.snap.load(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg = models.AuditConfig{AuditMode: models.AuditModeAI, SelectedAgentID: agents.First().ID}
	}
	s.cfg = cfg
	return s, nil
}

func (s *AuditConfigService) Get() models.AuditConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetAuditMode 切换到 platform 时保留已选 Agent，切回 ai 即恢复
func (s *AuditConfigService) SetAuditMode(ctx context.Context, mode models.AuditMode) (models.AuditConfig, error) {
	if mode != models.AuditModeAI && mode != models.AuditModePlatform {
		return models.AuditConfig{}, validationError("unknown audit mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	next.AuditMode = mode
	if err := s.commit(ctx, next); err != nil {
		return models.AuditConfig{}, err
	}
	s.logger.WithField("audit_mode", mode).Info("audit mode changed")
	metrics.RecordRuleMutation("audit", "set_mode")
	return next, nil
}

func (s *AuditConfigService) SetSelectedAgent(ctx context.Context, agentID string) (models.AuditConfig, error) {
	if _, ok := s.agents.Find(agentID); !ok {
		return models.AuditConfig{}, notFoundError("agent %q", agentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	next.SelectedAgentID = agentID
	if err := s.commit(ctx, next); err != nil {
		return models.AuditConfig{}, err
	}
	s.logger.WithField("agent_id", agentID).Info("audit agent changed")
	metrics.RecordRuleMutation("audit", "set_agent")
	return next, nil
}

// PolicyDescription 批量提审时展示的审核策略
func (s *AuditConfigService) PolicyDescription() string {
	cfg := s.Get()
	if cfg.AuditMode == models.AuditModeAI {
		return "AI 大模型审核 (" + s.agents.NameOf(cfg.SelectedAgentID) + ") + 平台审核"
	}
	return "仅平台审核"
}

func (s *AuditConfigService) commit(ctx context.Context, next models.AuditConfig) error {
	if err := s.snap.save(ctx, next); err != nil {
		return err
	}
	s.cfg = next
	return nil
}
