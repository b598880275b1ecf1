package models

// OpeningRule 用户进入私信窗口后超过 Minutes 分钟未发言时自动发送 Message
type OpeningRule struct {
	ID      string `json:"id"`
	Minutes int    `json:"minutes"`
	Message string `json:"message"`
}

// 回访规则可检测的缺失留资字段
const (
	MissingFieldName   = "name"
	MissingFieldPhone  = "phone"
	MissingFieldWechat = "wechat"
)

// MissingFieldOrder 缺失字段的规范顺序
var MissingFieldOrder = []string{MissingFieldName, MissingFieldPhone, MissingFieldWechat}

// ReturnVisitRule 用户超过 NoReplyMinutes 未回复且缺失指定字段时，由所选 Agent 发起回访
type ReturnVisitRule struct {
	ID              string   `json:"id"`
	NoReplyMinutes  int      `json:"no_reply_minutes"`
	MissingFields   []string `json:"missing_fields"`
	SelectedAgentID string   `json:"selected_agent_id"`
}

// Clone 返回不共享切片的副本
func (r ReturnVisitRule) Clone() ReturnVisitRule {
	r.MissingFields = append([]string(nil), r.MissingFields...)
	return r
}

// Agent 预置的 AI 智能体
type Agent struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AuditMode string

const (
	AuditModeAI       AuditMode = "ai"
	AuditModePlatform AuditMode = "platform"
)

// AuditConfig 素材审核策略；SelectedAgentID 仅在 AI 模式下生效，切换模式不会清空
type AuditConfig struct {
	AuditMode       AuditMode `json:"audit_mode"`
	SelectedAgentID string    `json:"selected_agent_id"`
}

// AuditLexicon 违禁词与违规行为
type AuditLexicon struct {
	Words     []string `json:"words"`
	Behaviors []string `json:"behaviors"`
}
