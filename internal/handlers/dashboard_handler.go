package handlers

import (
	"net/http"

	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
)

// DashboardHandler 数据看板与计费概览
type DashboardHandler struct {
	dashboard *services.DashboardService
	billing   *services.BillingService
}

func NewDashboardHandler(dashboard *services.DashboardService, billing *services.BillingService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, billing: billing}
}

// windowQuery ?window=today|yesterday|last7|last30|custom&start=&end=
type windowQuery struct {
	Window string `form:"window"`
	Start  string `form:"start"`
	End    string `form:"end"`
}

func bindWindow(c *gin.Context) (services.ReportWindow, bool) {
	var q windowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return services.ReportWindow{}, false
	}
	w, err := services.ParseWindow(q.Window, q.Start, q.End)
	if err != nil {
		respondError(c, "Invalid report window", err)
		return services.ReportWindow{}, false
	}
	return w, true
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	w, ok := bindWindow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Overview(w))
}

func (h *DashboardHandler) Board(c *gin.Context) {
	board, err := services.ParseBoard(c.Param("board"))
	if err != nil {
		respondError(c, "Invalid board", err)
		return
	}
	w, ok := bindWindow(c)
	if !ok {
		return
	}
	var f services.BoardFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"window": w, "records": h.dashboard.Records(board, w, f)})
}

func (h *DashboardHandler) BoardAccounts(c *gin.Context) {
	board, err := services.ParseBoard(c.Param("board"))
	if err != nil {
		respondError(c, "Invalid board", err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.AccountOptions(board))
}

func (h *DashboardHandler) Ranking(c *gin.Context) {
	w, ok := bindWindow(c)
	if !ok {
		return
	}
	metric, err := services.ParseRankMetric(c.Query("metric"))
	if err != nil {
		respondError(c, "Invalid ranking metric", err)
		return
	}
	dir, err := services.ParseRankDirection(c.Query("direction"))
	if err != nil {
		respondError(c, "Invalid ranking direction", err)
		return
	}
	c.JSON(http.StatusOK, h.dashboard.Ranking(w, metric, dir))
}

func (h *DashboardHandler) Daily(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboard.DailyStats())
}

func (h *DashboardHandler) Billing(c *gin.Context) {
	c.JSON(http.StatusOK, h.billing.Summary())
}

// RegisterDashboardRoutes 注册看板路由
func RegisterDashboardRoutes(r *gin.RouterGroup, handler *DashboardHandler) {
	dashboard := r.Group("/dashboard")
	{
		dashboard.GET("/overview", handler.Overview)
		dashboard.GET("/boards/:board", handler.Board)
		dashboard.GET("/boards/:board/accounts", handler.BoardAccounts)
		dashboard.GET("/ranking", handler.Ranking)
		dashboard.GET("/daily", handler.Daily)
	}
	r.GET("/billing", handler.Billing)
}
