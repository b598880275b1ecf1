package services

import (
	"strings"

	"materialhub/internal/models"

	"github.com/sirupsen/logrus"
)

// Board 数据看板
type Board string

const (
	BoardAgent Board = "agent"
	BoardAd    Board = "ad"
	BoardLive  Board = "live"
)

const accountFilterAll = "all"

func ParseBoard(s string) (Board, error) {
	switch Board(s) {
	case BoardAgent, BoardAd, BoardLive:
		return Board(s), nil
	case "":
		return BoardAgent, nil
	}
	return "", validationError("unknown board %q", s)
}

// BoardFilter Search 按名称不区分大小写匹配；Account 为 "all" 或空时不过滤
type BoardFilter struct {
	Search  string `form:"search" json:"search"`
	Account string `form:"account" json:"account"`
}

// DashboardService 数据看板；基准数据只读，所有派生值在读取时计算
type DashboardService struct {
	boards   map[Board][]models.PerformanceRecord
	daily    []models.DailyStat
	poolSize int
	logger   *logrus.Logger
}

func NewDashboardService(poolSize int, logger *logrus.Logger) *DashboardService {
	if logger == nil {
		logger = logrus.New()
	}
	if poolSize <= 0 {
		poolSize = 5
	}
	return &DashboardService{
		boards: map[Board][]models.PerformanceRecord{
			BoardAgent: AgentPerformanceBase(),
			BoardAd:    AdPerformanceBase(),
			BoardLive:  LivePerformanceBase(),
		},
		daily:    DailyStatsBase(),
		poolSize: poolSize,
		logger:   logger,
	}
}

// accountKey 客服看板的账户即其名称，广告与直播看板按投放账户
func accountKey(board Board, r models.PerformanceRecord) string {
	if board == BoardAgent {
		return r.Name
	}
	return r.AccountName
}

// Records 缩放后再过滤
func (s *DashboardService) Records(board Board, w ReportWindow, f BoardFilter) []models.PerformanceRecord {
	adjusted := AdjustRecords(s.boards[board], w)
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]models.PerformanceRecord, 0, len(adjusted))
	for _, r := range adjusted {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) {
			continue
		}
		if f.Account != "" && f.Account != accountFilterAll && accountKey(board, r) != f.Account {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AccountOptions 基准数据中去重后的账户名称，保持首次出现顺序
func (s *DashboardService) AccountOptions(board Board) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range s.boards[board] {
		k := accountKey(board, r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Ranking 客服账户排行
func (s *DashboardService) Ranking(w ReportWindow, metric RankMetric, dir RankDirection) []RankedRecord {
	return Rank(AdjustRecords(s.boards[BoardAgent], w), metric, dir, s.poolSize)
}

func (s *DashboardService) Overview(w ReportWindow) Overview {
	return BuildOverview(w)
}

func (s *DashboardService) DailyStats() []models.DailyStat {
	return append([]models.DailyStat(nil), s.daily...)
}
