package services

import "materialhub/internal/config"

// TokenBilling 大模型 Token 用量
type TokenBilling struct {
	Total        int64  `json:"total"`
	Used         int64  `json:"used"`
	Balance      int64  `json:"balance"`
	UsagePercent string `json:"usage_percent"`
}

// LeadBilling 线索包用量，Remaining = Purchased - Acquired
type LeadBilling struct {
	Acquired    int     `json:"acquired"`
	Purchased   int     `json:"purchased"`
	Remaining   int     `json:"remaining"`
	CostPerLead float64 `json:"cost_per_lead"`
	TotalCost   float64 `json:"total_cost"`
	Month       string  `json:"month"`
}

type BillingSummary struct {
	Tokens TokenBilling `json:"tokens"`
	Leads  LeadBilling  `json:"leads"`
}

type BillingService struct {
	cfg config.BillingConfig
}

func NewBillingService(cfg config.BillingConfig) *BillingService {
	return &BillingService{cfg: cfg}
}

// Summary 每次读取时由配置推导
func (s *BillingService) Summary() BillingSummary {
	c := s.cfg
	usage := "0.0"
	if c.TokenTotal > 0 {
		usage = roundTenth(float64(c.TokenUsed) / float64(c.TokenTotal) * 100)
	}
	return BillingSummary{
		Tokens: TokenBilling{
			Total:        c.TokenTotal,
			Used:         c.TokenUsed,
			Balance:      c.TokenTotal - c.TokenUsed,
			UsagePercent: usage,
		},
		Leads: LeadBilling{
			Acquired:    c.LeadsAcquired,
			Purchased:   c.LeadsPurchased,
			Remaining:   c.LeadsPurchased - c.LeadsAcquired,
			CostPerLead: c.CostPerLead,
			TotalCost:   float64(c.LeadsAcquired) * c.CostPerLead,
			Month:       c.Month,
		},
	}
}
