package handlers

import (
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
)

// OutreachHandler 用户触达计划
type OutreachHandler struct {
	service *services.OutreachService
}

func NewOutreachHandler(service *services.OutreachService) *OutreachHandler {
	return &OutreachHandler{service: service}
}

func (h *OutreachHandler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List())
}

func (h *OutreachHandler) GetPlan(c *gin.Context) {
	plan, err := h.service.Get(c.Param("id"))
	if err != nil {
		respondError(c, "Failed to get outreach plan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *OutreachHandler) CreatePlan(c *gin.Context) {
	var req services.OutreachPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	plan, err := h.service.CreatePlan(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to create outreach plan", err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *OutreachHandler) EditPlan(c *gin.Context) {
	var req services.OutreachPlanUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	plan, err := h.service.EditPlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update outreach plan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// ListRows 计划 x 账户 展开后的行，支持 search/account_id/type/status 过滤
func (h *OutreachHandler) ListRows(c *gin.Context) {
	var f services.OutreachRowFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.service.Rows(c.Request.Context(), f)
	if err != nil {
		respondError(c, "Failed to list outreach rows", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *OutreachHandler) ToggleStatus(c *gin.Context) {
	ok, err := h.service.ToggleStatus(c.Request.Context(), c.Param("id"), c.Param("accountId"))
	if err != nil {
		respondError(c, "Failed to toggle status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": ok})
}

func (h *OutreachHandler) BatchEditContent(c *gin.Context) {
	var req services.BatchContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	updated, err := h.service.BatchEditContent(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Failed to batch edit content", err)
		return
	}
	if updated == nil {
		updated = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"updated_plans": updated})
}

// SelectAll 当前过滤条件下的全选切换，只选进行中的行
func (h *OutreachHandler) SelectAll(c *gin.Context) {
	var f services.OutreachRowFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	rows, err := h.service.Rows(c.Request.Context(), f)
	if err != nil {
		respondError(c, "Failed to select rows", err)
		return
	}
	sel := services.SelectActiveRows(rows, services.NewSelection(req.Selected...))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Status == models.OutreachStatusActive {
			order = append(order, r.ID)
		}
	}
	c.JSON(http.StatusOK, selectionResponse{Selected: sel.IDs(order), AllSelected: sel.AllSelected(order)})
}

// RegisterOutreachRoutes 注册触达路由
func RegisterOutreachRoutes(r *gin.RouterGroup, handler *OutreachHandler) {
	outreach := r.Group("/outreach")
	{
		outreach.GET("/plans", handler.ListPlans)
		outreach.POST("/plans", handler.CreatePlan)
		outreach.GET("/plans/:id", handler.GetPlan)
		outreach.PUT("/plans/:id", handler.EditPlan)
		outreach.POST("/plans/:id/accounts/:accountId/toggle", handler.ToggleStatus)
		outreach.GET("/rows", handler.ListRows)
		outreach.POST("/rows/select-all", handler.SelectAll)
		outreach.POST("/rows/batch-content", handler.BatchEditContent)
	}
}
