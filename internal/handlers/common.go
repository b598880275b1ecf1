package handlers

import (
	"errors"
	"net/http"

	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse 成功响应结构
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respondError 校验失败 400，记录不存在 404，其余 500
func respondError(c *gin.Context, summary string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error(summary)
	}
	c.JSON(status, ErrorResponse{Error: summary, Message: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
}

// selectionRequest 全选切换请求，Selected 为当前已勾选的 ID
type selectionRequest struct {
	Selected []string `json:"selected"`
}

type selectionResponse struct {
	Selected    []string `json:"selected"`
	AllSelected bool     `json:"all_selected"`
}
