package models

import "time"

type OutreachType string

const (
	OutreachTypeComment OutreachType = "comment"
	OutreachTypeLive    OutreachType = "live"
)

type OutreachStatus string

const (
	OutreachStatusActive OutreachStatus = "active"
	OutreachStatusClosed OutreachStatus = "closed"
)

// OutreachAccountDetail 计划在单个账户下的执行情况，LeadCount 通常不超过 ReachedCount
type OutreachAccountDetail struct {
	AccountID    string         `json:"account_id"`
	ReachedCount int            `json:"reached_count"`
	LeadCount    int            `json:"lead_count"`
	Status       OutreachStatus `json:"status"`
}

// OutreachPlan 主动私信触达计划，按账户展开执行
// Content 与 CollectPhone 属于计划级属性
type OutreachPlan struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Type         OutreachType            `json:"type"`
	Content      string                  `json:"content"`
	CollectPhone bool                    `json:"collect_phone"`
	CreatedAt    time.Time               `json:"created_at"`
	Details      []OutreachAccountDetail `json:"details"`
}

// Clone 返回不共享 Details 的副本
func (p OutreachPlan) Clone() OutreachPlan {
	p.Details = append([]OutreachAccountDetail(nil), p.Details...)
	return p
}

// AccountIDs 按 Details 顺序返回账户 ID
func (p OutreachPlan) AccountIDs() []string {
	ids := make([]string, 0, len(p.Details))
	for _, d := range p.Details {
		ids = append(ids, d.AccountID)
	}
	return ids
}

// OutreachRow 计划 x 账户 展开后的一行，ID 为 "planID:accountID"
type OutreachRow struct {
	ID           string         `json:"id"`
	PlanID       string         `json:"plan_id"`
	PlanName     string         `json:"plan_name"`
	Type         OutreachType   `json:"type"`
	Content      string         `json:"content"`
	CollectPhone bool           `json:"collect_phone"`
	CreatedAt    time.Time      `json:"created_at"`
	AccountID    string         `json:"account_id"`
	AccountName  string         `json:"account_name"`
	ReachedCount int            `json:"reached_count"`
	LeadCount    int            `json:"lead_count"`
	Status       OutreachStatus `json:"status"`
}
