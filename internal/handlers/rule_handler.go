package handlers

import (
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
)

// RuleHandler 开口规则、回访规则、审核配置与敏感词库
type RuleHandler struct {
	opening     *services.OpeningRuleService
	returnVisit *services.ReturnVisitService
	audit       *services.AuditConfigService
	lexicon     *services.LexiconService
	agents      *services.AgentCatalog
}

func NewRuleHandler(
	opening *services.OpeningRuleService,
	returnVisit *services.ReturnVisitService,
	audit *services.AuditConfigService,
	lexicon *services.LexiconService,
	agents *services.AgentCatalog,
) *RuleHandler {
	return &RuleHandler{opening: opening, returnVisit: returnVisit, audit: audit, lexicon: lexicon, agents: agents}
}

// mutationResult Changed 为 false 表示目标不存在或触及下限，请求被忽略
type mutationResult struct {
	Changed bool        `json:"changed"`
	Rules   interface{} `json:"rules"`
}

func (h *RuleHandler) ListOpening(c *gin.Context) {
	c.JSON(http.StatusOK, h.opening.List())
}

func (h *RuleHandler) AddOpening(c *gin.Context) {
	rule, err := h.opening.Add(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to add opening rule", err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) UpdateOpening(c *gin.Context) {
	var req services.OpeningRuleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ok, err := h.opening.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update opening rule", err)
		return
	}
	c.JSON(http.StatusOK, mutationResult{Changed: ok, Rules: h.opening.List()})
}

func (h *RuleHandler) DeleteOpening(c *gin.Context) {
	ok, err := h.opening.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to delete opening rule", err)
		return
	}
	c.JSON(http.StatusOK, mutationResult{Changed: ok, Rules: h.opening.List()})
}

func (h *RuleHandler) ListReturnVisit(c *gin.Context) {
	c.JSON(http.StatusOK, h.returnVisit.List())
}

func (h *RuleHandler) AddReturnVisit(c *gin.Context) {
	rule, err := h.returnVisit.Add(c.Request.Context())
	if err != nil {
		respondError(c, "Failed to add return visit rule", err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) UpdateReturnVisit(c *gin.Context) {
	var req services.ReturnVisitRuleUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ok, err := h.returnVisit.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, "Failed to update return visit rule", err)
		return
	}
	c.JSON(http.StatusOK, mutationResult{Changed: ok, Rules: h.returnVisit.List()})
}

func (h *RuleHandler) DeleteReturnVisit(c *gin.Context) {
	ok, err := h.returnVisit.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to delete return visit rule", err)
		return
	}
	c.JSON(http.StatusOK, mutationResult{Changed: ok, Rules: h.returnVisit.List()})
}

func (h *RuleHandler) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, h.agents.List())
}

// auditView 审核配置及其策略描述
type auditView struct {
	models.AuditConfig
	Policy string `json:"policy"`
}

func (h *RuleHandler) GetAudit(c *gin.Context) {
	c.JSON(http.StatusOK, auditView{AuditConfig: h.audit.Get(), Policy: h.audit.PolicyDescription()})
}

func (h *RuleHandler) SetAuditMode(c *gin.Context) {
	var req struct {
		Mode models.AuditMode `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.audit.SetAuditMode(c.Request.Context(), req.Mode)
	if err != nil {
		respondError(c, "Failed to set audit mode", err)
		return
	}
	c.JSON(http.StatusOK, auditView{AuditConfig: cfg, Policy: h.audit.PolicyDescription()})
}

func (h *RuleHandler) SetAuditAgent(c *gin.Context) {
	var req struct {
		AgentID string `json:"agent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.audit.SetSelectedAgent(c.Request.Context(), req.AgentID)
	if err != nil {
		respondError(c, "Failed to set audit agent", err)
		return
	}
	c.JSON(http.StatusOK, auditView{AuditConfig: cfg, Policy: h.audit.PolicyDescription()})
}

func (h *RuleHandler) GetLexicon(c *gin.Context) {
	c.JSON(http.StatusOK, h.lexicon.Get())
}

func (h *RuleHandler) AddLexicon(c *gin.Context) {
	var req struct {
		Input string `json:"input" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	added, err := h.lexicon.Add(c.Request.Context(), services.LexiconKind(c.Param("kind")), req.Input)
	if err != nil {
		respondError(c, "Failed to add terms", err)
		return
	}
	if added == nil {
		added = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"added": added, "lexicon": h.lexicon.Get()})
}

func (h *RuleHandler) RemoveLexicon(c *gin.Context) {
	ok, err := h.lexicon.Remove(c.Request.Context(), services.LexiconKind(c.Param("kind")), c.Param("term"))
	if err != nil {
		respondError(c, "Failed to remove term", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": ok, "lexicon": h.lexicon.Get()})
}

func (h *RuleHandler) ClearLexicon(c *gin.Context) {
	if err := h.lexicon.Clear(c.Request.Context(), services.LexiconKind(c.Param("kind"))); err != nil {
		respondError(c, "Failed to clear terms", err)
		return
	}
	c.JSON(http.StatusOK, h.lexicon.Get())
}

// RegisterRuleRoutes 注册规则配置路由
func RegisterRuleRoutes(r *gin.RouterGroup, handler *RuleHandler) {
	opening := r.Group("/rules/opening")
	{
		opening.GET("", handler.ListOpening)
		opening.POST("", handler.AddOpening)
		opening.PATCH(":id", handler.UpdateOpening)
		opening.DELETE(":id", handler.DeleteOpening)
	}
	returnVisit := r.Group("/rules/return-visit")
	{
		returnVisit.GET("", handler.ListReturnVisit)
		returnVisit.POST("", handler.AddReturnVisit)
		returnVisit.PATCH(":id", handler.UpdateReturnVisit)
		returnVisit.DELETE(":id", handler.DeleteReturnVisit)
	}
	r.GET("/agents", handler.ListAgents)
	audit := r.Group("/audit")
	{
		audit.GET("", handler.GetAudit)
		audit.PUT("/mode", handler.SetAuditMode)
		audit.PUT("/agent", handler.SetAuditAgent)
		audit.GET("/lexicon", handler.GetLexicon)
		audit.POST("/lexicon/:kind", handler.AddLexicon)
		audit.DELETE("/lexicon/:kind", handler.ClearLexicon)
		audit.DELETE("/lexicon/:kind/:term", handler.RemoveLexicon)
	}
}
