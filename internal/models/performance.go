package models

// Funnel 进线 -> 开口 -> 留资 漏斗计数
type Funnel struct {
	Incoming int `json:"incoming"`
	Opening  int `json:"opening"`
	Leads    int `json:"leads"`
}

// FunnelRates 由 Funnel 推导出的百分比字符串，始终按需计算，不落库
type FunnelRates struct {
	OpeningRate        string `json:"opening_rate"`         // opening / incoming
	LeadConversionRate string `json:"lead_conversion_rate"` // leads / opening
	IncomingLeadRate   string `json:"incoming_lead_rate"`   // leads / incoming
}

// SourceDetail 按渠道拆分（live / organic / ads 或来源账户）
type SourceDetail struct {
	Source string `json:"source"`
	Funnel
	FunnelRates
}

// MaterialDetail 按素材拆分
type MaterialDetail struct {
	MaterialID string `json:"material_id"`
	Funnel
	FunnelRates
}

// PerformanceRecord 数据看板中的一行（客服账户 / 广告计划 / 直播间）
type PerformanceRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccountName string `json:"account_name,omitempty"`
	Funnel
	FunnelRates
	Details   []SourceDetail   `json:"details,omitempty"`
	Materials []MaterialDetail `json:"materials,omitempty"`
}

// DailyStat 每日接待与留资趋势
type DailyStat struct {
	Date       string `json:"date"`
	Receptions int    `json:"receptions"`
	Leads      int    `json:"leads"`
}

// MaterialFile 批量上传会话中的待上传文件
type MaterialFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Remark        string `json:"remark"`
	FileName      string `json:"file_name"`
	MimeType      string `json:"mime_type"`
	Size          int64  `json:"size"`
	PreviewHandle string `json:"preview_handle"`
	Status        string `json:"status"` // pending, uploading, success, error
	Progress      int    `json:"progress"`
	AccountID     string `json:"account_id,omitempty"`
	ErrorMsg      string `json:"error_msg,omitempty"`
}

const (
	FileStatusPending   = "pending"
	FileStatusUploading = "uploading"
	FileStatusSuccess   = "success"
	FileStatusError     = "error"
)
