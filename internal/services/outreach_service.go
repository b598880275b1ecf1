package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"materialhub/internal/metrics"
	"materialhub/internal/models"
	"materialhub/internal/storage"

	"github.com/sirupsen/logrus"
)

const (
	maxOutreachContentLength = 500
	outreachIDFloor          = 10000
	rowIDSeparator           = ":"
)

// OutreachPlanRequest 创建触达计划
type OutreachPlanRequest struct {
	Name         string              `json:"name"`
	Type         models.OutreachType `json:"type"`
	Content      string              `json:"content"`
	CollectPhone bool                `json:"collect_phone"`
	AccountIDs   []string            `json:"account_ids"`
}

// OutreachPlanUpdate 编辑计划，类型创建后不可修改
type OutreachPlanUpdate struct {
	Name         *string   `json:"name"`
	Content      *string   `json:"content"`
	CollectPhone *bool     `json:"collect_phone"`
	AccountIDs   *[]string `json:"account_ids"`
}

// OutreachRowFilter 展开行的过滤条件，空值表示不过滤
type OutreachRowFilter struct {
	Search    string `form:"search" json:"search"`
	AccountID string `form:"account_id" json:"account_id"`
	Type      string `form:"type" json:"type"`
	Status    string `form:"status" json:"status"`
}

// BatchContentRequest 对勾选的行批量修改话术
type BatchContentRequest struct {
	RowIDs       []string `json:"row_ids"`
	Content      string   `json:"content"`
	CollectPhone bool     `json:"collect_phone"`
}

// SeedOutreachPlans 初始触达计划
func SeedOutreachPlans() []models.OutreachPlan {
	at := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02 15:04", s)
		return t
	}
	return []models.OutreachPlan{
		{
			ID: "1", Name: "双11预热评论触达", Type: models.OutreachTypeComment,
			Content:      "亲，看到您对我们的产品感兴趣，双11预热活动正在进行中，现在预定享额外优惠哦！",
			CollectPhone: true, CreatedAt: at("2023-10-20 14:30"),
			Details: []models.OutreachAccountDetail{
				{AccountID: "1", ReachedCount: 800, LeadCount: 30, Status: models.OutreachStatusActive},
				{AccountID: "2", ReachedCount: 450, LeadCount: 15, Status: models.OutreachStatusActive},
			},
		},
		{
			ID: "2", Name: "晚间直播间弹幕跟进", Type: models.OutreachTypeLive,
			Content:   "感谢关注！点击下方链接领取专属粉丝福利，不要错过哦~",
			CreatedAt: at("2023-10-21 19:00"),
			Details: []models.OutreachAccountDetail{
				{AccountID: "3", ReachedCount: 3400, LeadCount: 120, Status: models.OutreachStatusActive},
			},
		},
		{
			ID: "3", Name: "新品发布意向用户回访", Type: models.OutreachTypeComment,
			Content:   "您好，我们注意到您对新品很感兴趣，现邀请您成为首批体验官...",
			CreatedAt: at("2023-10-15 10:00"),
			Details: []models.OutreachAccountDetail{
				{AccountID: "1", ReachedCount: 500, LeadCount: 12, Status: models.OutreachStatusClosed},
				{AccountID: "4", ReachedCount: 300, LeadCount: 8, Status: models.OutreachStatusClosed},
			},
		},
	}
}

// OutreachService 触达计划存储；计划按账户展开，每个 (计划, 账户) 独立统计
type OutreachService struct {
	mu       sync.Mutex
	plans    []models.OutreachPlan
	seq      int64
	accounts AccountDirectory
	snap     snapshotter
	logger   *logrus.Logger
	now      func() time.Time
}

func NewOutreachService(ctx context.Context, kv storage.KV, accounts AccountDirectory, logger *logrus.Logger) (*OutreachService, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if accounts == nil {
		accounts = StaticAccounts{}
	}
	s := &OutreachService{
		accounts: accounts,
		snap:     newSnapshotter(kv, NamespaceOutreach, logger),
		logger:   logger,
		now:      time.Now,
	}
	var plans []models.OutreachPlan
	found, err := s.snap.load(ctx, &plans)
	if err != nil {
		return nil, err
	}
	if !found {
		plans = SeedOutreachPlans()
	}
	s.plans = plans
	s.seq = nextOutreachSeq(plans)
	return s, nil
}

// nextOutreachSeq 已有数字 ID 的最大值，不低于 10000；非数字 ID 忽略
func nextOutreachSeq(plans []models.OutreachPlan) int64 {
	seq := int64(outreachIDFloor)
	for _, p := range plans {
		if n, err := strconv.ParseInt(p.ID, 10, 64); err == nil && n > seq {
			seq = n
		}
	}
	return seq
}

func (s *OutreachService) List() []models.OutreachPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePlans(s.plans)
}

func (s *OutreachService) Get(id string) (models.OutreachPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return models.OutreachPlan{}, notFoundError("outreach plan %q", id)
	}
	return s.plans[idx].Clone(), nil
}

// CreatePlan 新计划排在最前，所有账户计数从 0 开始
func (s *OutreachService) CreatePlan(ctx context.Context, req OutreachPlanRequest) (models.OutreachPlan, error) {
	if err := validatePlanText(req.Name, req.Content); err != nil {
		return models.OutreachPlan{}, err
	}
	if req.Type != models.OutreachTypeComment && req.Type != models.OutreachTypeLive {
		return models.OutreachPlan{}, validationError("unknown plan type %q", req.Type)
	}
	accountIDs := normalizeAccountIDs(req.AccountIDs)
	if len(accountIDs) == 0 {
		return models.OutreachPlan{}, validationError("at least one account is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan := models.OutreachPlan{
		ID:           strconv.FormatInt(s.seq+1, 10),
		Name:         strings.TrimSpace(req.Name),
		Type:         req.Type,
		Content:      req.Content,
		CollectPhone: req.CollectPhone,
		CreatedAt:    s.now(),
		Details:      reconcileDetails(nil, accountIDs),
	}
	next := append([]models.OutreachPlan{plan}, clonePlans(s.plans)...)
	if err := s.commit(ctx, next); err != nil {
		return models.OutreachPlan{}, err
	}
	s.seq++
	s.logger.WithFields(logrus.Fields{"plan_id": plan.ID, "accounts": len(accountIDs)}).Info("outreach plan created")
	metrics.RecordOutreachOp("create")
	return plan.Clone(), nil
}

// EditPlan 保留仍被选中账户的计数与状态，新账户从 0 开始，被移除账户的计数丢弃
func (s *OutreachService) EditPlan(ctx context.Context, id string, req OutreachPlanUpdate) (models.OutreachPlan, error) {
	var accountIDs []string
	if req.AccountIDs != nil {
		accountIDs = normalizeAccountIDs(*req.AccountIDs)
		if len(accountIDs) == 0 {
			return models.OutreachPlan{}, validationError("at least one account is required")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return models.OutreachPlan{}, notFoundError("outreach plan %q", id)
	}
	next := clonePlans(s.plans)
	plan := &next[idx]
	name, content := plan.Name, plan.Content
	if req.Name != nil {
		name = *req.Name
	}
	if req.Content != nil {
		content = *req.Content
	}
	if err := validatePlanText(name, content); err != nil {
		return models.OutreachPlan{}, err
	}
	plan.Name = strings.TrimSpace(name)
	plan.Content = content
	if req.CollectPhone != nil {
		plan.CollectPhone = *req.CollectPhone
	}
	if accountIDs != nil {
		plan.Details = reconcileDetails(plan.Details, accountIDs)
	}
	if err := s.commit(ctx, next); err != nil {
		return models.OutreachPlan{}, err
	}
	s.logger.WithField("plan_id", id).Info("outreach plan updated")
	metrics.RecordOutreachOp("edit")
	return next[idx].Clone(), nil
}

// ToggleStatus 只切换单个账户的状态；计划或账户不存在时返回 false
func (s *OutreachService) ToggleStatus(ctx context.Context, planID, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(planID)
	if idx < 0 {
		return false, nil
	}
	next := clonePlans(s.plans)
	for i := range next[idx].Details {
		d := &next[idx].Details[i]
		if d.AccountID != accountID {
			continue
		}
		if d.Status == models.OutreachStatusActive {
			d.Status = models.OutreachStatusClosed
		} else {
			d.Status = models.OutreachStatusActive
		}
		if err := s.commit(ctx, next); err != nil {
			return false, err
		}
		s.logger.WithFields(logrus.Fields{"plan_id": planID, "account_id": accountID, "status": d.Status}).Info("outreach status toggled")
		metrics.RecordOutreachOp("toggle")
		return true, nil
	}
	return false, nil
}

// BatchEditContent 话术与留手机号开关是计划级属性：
// 勾选计划下任意一行即修改整个计划。返回被修改的计划 ID
func (s *OutreachService) BatchEditContent(ctx context.Context, req BatchContentRequest) ([]string, error) {
	if len(req.RowIDs) == 0 {
		return nil, validationError("no rows selected")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, validationError("content is required")
	}
	if utf8.RuneCountInString(req.Content) > maxOutreachContentLength {
		return nil, validationError("content exceeds %d characters", maxOutreachContentLength)
	}
	targets := make(map[string]bool)
	for _, rowID := range req.RowIDs {
		if planID, _, ok := SplitRowID(rowID); ok {
			targets[planID] = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := clonePlans(s.plans)
	var updated []string
	for i := range next {
		if !targets[next[i].ID] {
			continue
		}
		next[i].Content = req.Content
		next[i].CollectPhone = req.CollectPhone
		updated = append(updated, next[i].ID)
	}
	if len(updated) == 0 {
		return nil, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"plans": updated, "rows": len(req.RowIDs)}).Info("outreach content batch updated")
	metrics.RecordOutreachOp("batch_edit")
	return updated, nil
}

// Rows 展开当前计划并过滤
func (s *OutreachService) Rows(ctx context.Context, f OutreachRowFilter) ([]models.OutreachRow, error) {
	names, err := s.accounts.AccountNames(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRows(Flatten(s.List(), names), f), nil
}

func (s *OutreachService) indexOf(id string) int {
	for i := range s.plans {
		if s.plans[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *OutreachService) commit(ctx context.Context, next []models.OutreachPlan) error {
	if err := s.snap.save(ctx, next); err != nil {
		return err
	}
	s.plans = next
	return nil
}

// Flatten 每个 (计划, 账户) 一行，账户名找不到时使用占位
func Flatten(plans []models.OutreachPlan, accountNames map[string]string) []models.OutreachRow {
	var rows []models.OutreachRow
	for _, p := range plans {
		for _, d := range p.Details {
			rows = append(rows, models.OutreachRow{
				ID:           RowID(p.ID, d.AccountID),
				PlanID:       p.ID,
				PlanName:     p.Name,
				Type:         p.Type,
				Content:      p.Content,
				CollectPhone: p.CollectPhone,
				CreatedAt:    p.CreatedAt,
				AccountID:    d.AccountID,
				AccountName:  accountName(accountNames, d.AccountID),
				ReachedCount: d.ReachedCount,
				LeadCount:    d.LeadCount,
				Status:       d.Status,
			})
		}
	}
	return rows
}

func FilterRows(rows []models.OutreachRow, f OutreachRowFilter) []models.OutreachRow {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.OutreachRow, 0, len(rows))
	for _, r := range rows {
		if search != "" && !strings.Contains(strings.ToLower(r.PlanName), search) {
			continue
		}
		if f.AccountID != "" && f.AccountID != accountFilterAll && r.AccountID != f.AccountID {
			continue
		}
		if f.Type != "" && f.Type != accountFilterAll && string(r.Type) != f.Type {
			continue
		}
		if f.Status != "" && f.Status != accountFilterAll && string(r.Status) != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SelectActiveRows 候选只包括进行中的行
func SelectActiveRows(rows []models.OutreachRow, current Selection) Selection {
	var active []string
	for _, r := range rows {
		if r.Status == models.OutreachStatusActive {
			active = append(active, r.ID)
		}
	}
	return ToggleAll(active, current)
}

func RowID(planID, accountID string) string {
	return planID + rowIDSeparator + accountID
}

// SplitRowID 计划 ID 不含分隔符，按第一个分隔符拆分
func SplitRowID(rowID string) (planID, accountID string, ok bool) {
	planID, accountID, ok = strings.Cut(rowID, rowIDSeparator)
	if !ok || planID == "" || accountID == "" {
		return "", "", false
	}
	return planID, accountID, true
}

func reconcileDetails(existing []models.OutreachAccountDetail, accountIDs []string) []models.OutreachAccountDetail {
	byAccount := make(map[string]models.OutreachAccountDetail, len(existing))
	for _, d := range existing {
		byAccount[d.AccountID] = d
	}
	out := make([]models.OutreachAccountDetail, 0, len(accountIDs))
	for _, id := range accountIDs {
		if d, ok := byAccount[id]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, models.OutreachAccountDetail{AccountID: id, Status: models.OutreachStatusActive})
	}
	return out
}

func validatePlanText(name, content string) error {
	if strings.TrimSpace(name) == "" {
		return validationError("plan name is required")
	}
	if strings.TrimSpace(content) == "" {
		return validationError("content is required")
	}
	if utf8.RuneCountInString(content) > maxOutreachContentLength {
		return validationError("content exceeds %d characters", maxOutreachContentLength)
	}
	return nil
}

// normalizeAccountIDs 去掉空值与重复，保持顺序
func normalizeAccountIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func clonePlans(in []models.OutreachPlan) []models.OutreachPlan {
	out := make([]models.OutreachPlan, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

