package services

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"materialhub/internal/models"
)

// WindowKind 报表时间窗口
type WindowKind string

const (
	WindowToday     WindowKind = "today"
	WindowYesterday WindowKind = "yesterday"
	WindowLast7     WindowKind = "last7"
	WindowLast30    WindowKind = "last30"
	WindowCustom    WindowKind = "custom"
)

const dateLayout = "2006-01-02"

// ReportWindow 自定义窗口使用 Start/End（YYYY-MM-DD）
type ReportWindow struct {
	Kind  WindowKind `json:"kind"`
	Start string     `json:"start,omitempty"`
	End   string     `json:"end,omitempty"`
}

// ParseWindow 空 kind 视为 last7
func ParseWindow(kind, start, end string) (ReportWindow, error) {
	w := ReportWindow{Kind: WindowKind(strings.ToLower(strings.TrimSpace(kind))), Start: start, End: end}
	switch w.Kind {
	case "":
		w.Kind = WindowLast7
	case WindowToday, WindowYesterday, WindowLast7, WindowLast30, WindowCustom:
	default:
		return ReportWindow{}, validationError("unknown window %q", kind)
	}
	return w, nil
}

// Multiplier 相对于 7 天基准数据的缩放系数
func (w ReportWindow) Multiplier() float64 {
	switch w.Kind {
	case WindowToday:
		return 0.14
	case WindowYesterday:
		return 0.15
	case WindowLast30:
		return 4.2
	case WindowCustom:
		start, err1 := time.Parse(dateLayout, w.Start)
		end, err2 := time.Parse(dateLayout, w.End)
		if err1 != nil || err2 != nil {
			return 1
		}
		diff := end.Sub(start)
		if diff < 0 {
			diff = -diff
		}
		days := math.Ceil(diff.Hours()/24) + 1
		return math.Max(0.1, days/7)
	default:
		return 1
	}
}

// FormatRate 一位小数加百分号，分母为 0 时为 "0.0%"
func FormatRate(num, den int) string {
	if den <= 0 {
		return "0.0%"
	}
	return roundTenth(float64(num)/float64(den)*100) + "%"
}

// roundTenth 按 x 的精确二进制值保留一位小数，恰好居中时远离零进位
func roundTenth(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'f', 1, 64)
	}
	r := new(big.Rat).SetFloat64(math.Abs(x))
	r.Mul(r, big.NewRat(10, 1))
	r.Add(r, big.NewRat(1, 2))
	digits := new(big.Int).Quo(r.Num(), r.Denom()).String()
	if len(digits) < 2 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-1] + "." + digits[len(digits)-1:]
	if x < 0 {
		out = "-" + out
	}
	return out
}

// ParseRate 解析 "12.3%"，无法解析时为 0
func ParseRate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

func DeriveRates(f models.Funnel) models.FunnelRates {
	return models.FunnelRates{
		OpeningRate:        FormatRate(f.Opening, f.Incoming),
		LeadConversionRate: FormatRate(f.Leads, f.Opening),
		IncomingLeadRate:   FormatRate(f.Leads, f.Incoming),
	}
}

// ScaleFunnel 三个计数各自向下取整
func ScaleFunnel(f models.Funnel, m float64) models.Funnel {
	return models.Funnel{
		Incoming: int(math.Floor(float64(f.Incoming) * m)),
		Opening:  int(math.Floor(float64(f.Opening) * m)),
		Leads:    int(math.Floor(float64(f.Leads) * m)),
	}
}

// AdjustRecords 按窗口缩放计数并重新推导比率，返回新切片，入参不会被修改
func AdjustRecords(records []models.PerformanceRecord, w ReportWindow) []models.PerformanceRecord {
	m := w.Multiplier()
	out := make([]models.PerformanceRecord, len(records))
	for i, r := range records {
		adj := r
		adj.Funnel = ScaleFunnel(r.Funnel, m)
		adj.FunnelRates = DeriveRates(adj.Funnel)
		if r.Details != nil {
			adj.Details = make([]models.SourceDetail, len(r.Details))
			for j, d := range r.Details {
				d.Funnel = ScaleFunnel(d.Funnel, m)
				d.FunnelRates = DeriveRates(d.Funnel)
				adj.Details[j] = d
			}
		}
		if r.Materials != nil {
			adj.Materials = make([]models.MaterialDetail, len(r.Materials))
			for j, md := range r.Materials {
				md.Funnel = ScaleFunnel(md.Funnel, m)
				md.FunnelRates = DeriveRates(md.Funnel)
				adj.Materials[j] = md
			}
		}
		out[i] = adj
	}
	return out
}

// WithRates 只推导比率，不缩放
func WithRates(records []models.PerformanceRecord) []models.PerformanceRecord {
	return AdjustRecords(records, ReportWindow{Kind: WindowLast7})
}

// OverviewBase 概览卡片的 7 天基准
var OverviewBase = models.Funnel{Incoming: 2845, Opening: 2560, Leads: 342}

// Overview 概览卡片，ConversionRate 为 leads / opening
type Overview struct {
	Window ReportWindow `json:"window"`
	models.Funnel
	ConversionRate string `json:"conversion_rate"`
	OpeningRate    string `json:"opening_rate"`
}

func BuildOverview(w ReportWindow) Overview {
	f := ScaleFunnel(OverviewBase, w.Multiplier())
	rates := DeriveRates(f)
	return Overview{Window: w, Funnel: f, ConversionRate: rates.LeadConversionRate, OpeningRate: rates.OpeningRate}
}

// RankMetric 排行指标
type RankMetric string

const (
	RankByLeads          RankMetric = "leads"
	RankByConversionRate RankMetric = "conversionRate"
	RankByOpeningRate    RankMetric = "openingRate"
)

type RankDirection string

const (
	RankTop    RankDirection = "top"
	RankBottom RankDirection = "bottom"
)

// 前三名徽章
const (
	BadgeGold   = "gold"
	BadgeSilver = "silver"
	BadgeBronze = "bronze"
	BadgePlain  = "plain"
)

type RankedRecord struct {
	Position int    `json:"position"`
	Badge    string `json:"badge"`
	models.PerformanceRecord
}

func ParseRankMetric(s string) (RankMetric, error) {
	switch RankMetric(s) {
	case RankByLeads, RankByConversionRate, RankByOpeningRate:
		return RankMetric(s), nil
	case "":
		return RankByLeads, nil
	}
	return "", validationError("unknown rank metric %q", s)
}

func ParseRankDirection(s string) (RankDirection, error) {
	switch RankDirection(s) {
	case RankTop, RankBottom:
		return RankDirection(s), nil
	case "":
		return RankTop, nil
	}
	return "", validationError("unknown rank direction %q", s)
}

func rankKey(r models.PerformanceRecord, metric RankMetric) float64 {
	switch metric {
	case RankByConversionRate:
		return ParseRate(r.LeadConversionRate)
	case RankByOpeningRate:
		return ParseRate(r.OpeningRate)
	default:
		return float64(r.Leads)
	}
}

// Badge 只有 top 方向的前三名有徽章
func Badge(dir RankDirection, index int) string {
	if dir != RankTop {
		return BadgePlain
	}
	switch index {
	case 0:
		return BadgeGold
	case 1:
		return BadgeSilver
	case 2:
		return BadgeBronze
	default:
		return BadgePlain
	}
}

// Rank 先截取前 n 条作为候选池，再稳定排序；n <= 0 时取全部
func Rank(records []models.PerformanceRecord, metric RankMetric, dir RankDirection, n int) []RankedRecord {
	pool := records
	if n > 0 && n < len(pool) {
		pool = pool[:n]
	}
	sorted := append([]models.PerformanceRecord(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := rankKey(sorted[i], metric), rankKey(sorted[j], metric)
		if dir == RankBottom {
			return a < b
		}
		return a > b
	})
	out := make([]RankedRecord, len(sorted))
	for i, r := range sorted {
		out[i] = RankedRecord{Position: i + 1, Badge: Badge(dir, i), PerformanceRecord: r}
	}
	return out
}
