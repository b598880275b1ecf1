package services

import "materialhub/internal/models"

func funnel(incoming, opening, leads int) models.Funnel {
	return models.Funnel{Incoming: incoming, Opening: opening, Leads: leads}
}

func src(source string, incoming, opening, leads int) models.SourceDetail {
	return models.SourceDetail{Source: source, Funnel: funnel(incoming, opening, leads)}
}

func mat(id string, incoming, opening, leads int) models.MaterialDetail {
	return models.MaterialDetail{MaterialID: id, Funnel: funnel(incoming, opening, leads)}
}

// AgentPerformanceBase 客服账户 7 天基准数据
func AgentPerformanceBase() []models.PerformanceRecord {
	return []models.PerformanceRecord{
		{ID: "1", Name: "品牌主账号-美妆", Funnel: funnel(1250, 1100, 150), Details: []models.SourceDetail{
			src("live", 600, 550, 90), src("organic", 400, 350, 40), src("ads", 250, 200, 20),
		}},
		{ID: "2", Name: "品牌主账号-服饰", Funnel: funnel(980, 850, 98), Details: []models.SourceDetail{
			src("live", 500, 450, 60), src("organic", 300, 250, 25), src("ads", 180, 150, 13),
		}},
		{ID: "3", Name: "分销商账号-华东", Funnel: funnel(2100, 1950, 310), Details: []models.SourceDetail{
			src("live", 1000, 950, 180), src("organic", 800, 750, 100), src("ads", 300, 250, 30),
		}},
		{ID: "4", Name: "分销商账号-华南", Funnel: funnel(1800, 1600, 220), Details: []models.SourceDetail{
			src("live", 900, 800, 120), src("organic", 600, 550, 70), src("ads", 300, 250, 30),
		}},
		{ID: "5", Name: "AI 客服助手 A", Funnel: funnel(3500, 3450, 525), Details: []models.SourceDetail{
			src("live", 1500, 1480, 250), src("organic", 1200, 1180, 180), src("ads", 800, 790, 95),
		}},
	}
}

// AdPerformanceBase 广告计划基准数据
func AdPerformanceBase() []models.PerformanceRecord {
	return []models.PerformanceRecord{
		{
			ID: "ad-1", Name: "双11大促通投计划", AccountName: "抖音-美妆旗舰店", Funnel: funnel(5400, 4800, 650),
			Materials: []models.MaterialDetail{mat("mat-1001", 2000, 1800, 250), mat("mat-1002", 1500, 1300, 200), mat("mat-1003", 1900, 1700, 200)},
			Details:   []models.SourceDetail{src("品牌主账号-美妆", 2000, 1800, 250), src("AI 客服助手 A", 3400, 3000, 400)},
		},
		{
			ID: "ad-2", Name: "朋友圈精选投放", AccountName: "微信-品牌官方号", Funnel: funnel(3200, 2900, 380),
			Materials: []models.MaterialDetail{mat("mat-2001", 1600, 1450, 190), mat("mat-2002", 1600, 1450, 190)},
			Details:   []models.SourceDetail{src("品牌主账号-服饰", 1200, 1100, 130), src("AI 客服助手 A", 2000, 1800, 250)},
		},
		{
			ID: "ad-3", Name: "品牌词搜索保护", AccountName: "百度-企业推广", Funnel: funnel(1500, 1450, 280),
			Materials: []models.MaterialDetail{mat("mat-3001", 1500, 1450, 280)},
			Details:   []models.SourceDetail{src("AI 客服助手 A", 1500, 1450, 280)},
		},
		{
			ID: "ad-4", Name: "直播间投流计划A", AccountName: "抖音-华东分销商", Funnel: funnel(4200, 3800, 520),
			Materials: []models.MaterialDetail{mat("mat-4001", 2100, 1900, 260), mat("mat-4002", 2100, 1900, 260)},
			Details:   []models.SourceDetail{src("分销商账号-华东", 2200, 2000, 270), src("分销商账号-华南", 2000, 1800, 250)},
		},
	}
}

// LivePerformanceBase 直播间基准数据
func LivePerformanceBase() []models.PerformanceRecord {
	return []models.PerformanceRecord{
		{ID: "live-1", Name: "双11超级福利夜", AccountName: "品牌主账号-美妆", Funnel: funnel(8500, 7200, 950)},
		{ID: "live-2", Name: "秋季新品发布会", AccountName: "品牌主账号-服饰", Funnel: funnel(6200, 5400, 680)},
		{ID: "live-3", Name: "华东大区专场", AccountName: "分销商账号-华东", Funnel: funnel(4100, 3600, 420)},
		{ID: "live-4", Name: "深夜宠粉专场", AccountName: "分销商账号-华南", Funnel: funnel(3800, 3200, 350)},
		{ID: "live-5", Name: "周末狂欢购", AccountName: "品牌主账号-美妆", Funnel: funnel(5600, 4900, 600)},
	}
}

// DailyStatsBase 每日趋势，不随窗口缩放
func DailyStatsBase() []models.DailyStat {
	return []models.DailyStat{
		{Date: "01-01", Receptions: 120, Leads: 15},
		{Date: "01-02", Receptions: 132, Leads: 18},
		{Date: "01-03", Receptions: 101, Leads: 12},
		{Date: "01-04", Receptions: 134, Leads: 20},
		{Date: "01-05", Receptions: 90, Leads: 8},
		{Date: "01-06", Receptions: 230, Leads: 35},
		{Date: "01-07", Receptions: 210, Leads: 30},
	}
}
