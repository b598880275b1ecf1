package services

import (
	"context"

	"materialhub/internal/models"
)

// 查找不到时的展示占位
const (
	UnknownAgentName   = "未知Agent"
	UnknownAccountName = "未知账户"
)

// DefaultAgents 由 Admin 端预置的审核 / 回访智能体
func DefaultAgents() []models.Agent {
	return []models.Agent{
		{ID: "agent-1", Name: "通用合规审核助手", Description: "适用于大多数通用素材，基于标准广告法进行审核。"},
		{ID: "agent-2", Name: "严谨风控审核助手", Description: "严格把控风险，适用于医疗、金融等敏感行业素材。"},
		{ID: "agent-3", Name: "营销文案优化助手", Description: "不仅审核违规，还会对营销文案的吸引力进行评估。"},
	}
}

// AgentCatalog 只读的 Agent 目录
type AgentCatalog struct {
	agents []models.Agent
}

func NewAgentCatalog(agents []models.Agent) *AgentCatalog {
	return &AgentCatalog{agents: append([]models.Agent(nil), agents...)}
}

func (c *AgentCatalog) List() []models.Agent {
	return append([]models.Agent(nil), c.agents...)
}

func (c *AgentCatalog) Find(id string) (models.Agent, bool) {
	for _, a := range c.agents {
		if a.ID == id {
			return a, true
		}
	}
	return models.Agent{}, false
}

// First 目录为空时返回零值
func (c *AgentCatalog) First() models.Agent {
	if len(c.agents) == 0 {
		return models.Agent{}
	}
	return c.agents[0]
}

func (c *AgentCatalog) NameOf(id string) string {
	if a, ok := c.Find(id); ok {
		return a.Name
	}
	return UnknownAgentName
}

// AccountDirectory 账户目录，用于把账户 ID 解析为展示名称
type AccountDirectory interface {
	AccountNames(ctx context.Context) (map[string]string, error)
}

// StaticAccounts 固定的账户目录
type StaticAccounts map[string]string

func (s StaticAccounts) AccountNames(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

func accountName(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return UnknownAccountName
}
