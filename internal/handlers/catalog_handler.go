package handlers

import (
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
)

// AccountHandler 广告账户管理
type AccountHandler struct {
	service *services.AccountService
}

func NewAccountHandler(service *services.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, "Failed to list accounts", err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *AccountHandler) Create(c *gin.Context) {
	var req services.AccountCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	account, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, "Failed to create account", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	ok, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to delete account", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Failed to delete account", Message: "account not found"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// RegisterAccountRoutes 注册账户路由
func RegisterAccountRoutes(r *gin.RouterGroup, handler *AccountHandler) {
	accounts := r.Group("/accounts")
	{
		accounts.GET("", handler.List)
		accounts.POST("", handler.Create)
		accounts.DELETE(":id", handler.Delete)
	}
}

// MaterialHandler 素材库
type MaterialHandler struct {
	service *services.MaterialService
}

func NewMaterialHandler(service *services.MaterialService) *MaterialHandler {
	return &MaterialHandler{service: service}
}

// materialView 附带可读的文件大小
type materialView struct {
	models.Material
	SizeText string `json:"size_text"`
}

func (h *MaterialHandler) List(c *gin.Context) {
	var f services.MaterialFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	materials, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, "Failed to list materials", err)
		return
	}
	out := make([]materialView, len(materials))
	for i, m := range materials {
		out[i] = materialView{Material: m, SizeText: services.FormatSize(m.Size)}
	}
	c.JSON(http.StatusOK, out)
}

func (h *MaterialHandler) SelectAll(c *gin.Context) {
	var f services.MaterialFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		badRequest(c, err)
		return
	}
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sel, err := h.service.ToggleSelectAll(c.Request.Context(), f, services.NewSelection(req.Selected...))
	if err != nil {
		respondError(c, "Failed to select materials", err)
		return
	}
	materials, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, "Failed to select materials", err)
		return
	}
	order := make([]string, len(materials))
	for i, m := range materials {
		order[i] = m.ID
	}
	c.JSON(http.StatusOK, selectionResponse{Selected: sel.IDs(order), AllSelected: sel.AllSelected(order)})
}

func (h *MaterialHandler) Submit(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.service.BatchSubmit(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, "Failed to submit materials", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RegisterMaterialRoutes 注册素材路由
func RegisterMaterialRoutes(r *gin.RouterGroup, handler *MaterialHandler) {
	materials := r.Group("/materials")
	{
		materials.GET("", handler.List)
		materials.POST("/select-all", handler.SelectAll)
		materials.POST("/submit", handler.Submit)
	}
}
