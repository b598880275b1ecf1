package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"materialhub/internal/models"
	"materialhub/internal/services"

	"github.com/gin-gonic/gin"
)

// IntakeHandler 批量上传会话
type IntakeHandler struct {
	service *services.IntakeService
}

func NewIntakeHandler(service *services.IntakeService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

type sessionView struct {
	ID            string                `json:"id"`
	GlobalAccount string                `json:"global_account"`
	Files         []models.MaterialFile `json:"files"`
}

func viewOf(sess *services.IntakeSession) sessionView {
	files := sess.Files()
	if files == nil {
		files = []models.MaterialFile{}
	}
	return sessionView{ID: sess.ID, GlobalAccount: sess.GlobalAccount(), Files: files}
}

func (h *IntakeHandler) session(c *gin.Context) (*services.IntakeSession, bool) {
	sess, ok := h.service.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Session not found", Message: c.Param("id")})
		return nil, false
	}
	return sess, true
}

func (h *IntakeHandler) Open(c *gin.Context) {
	var req struct {
		GlobalAccount string `json:"global_account"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, viewOf(h.service.Open(req.GlobalAccount)))
}

func (h *IntakeHandler) Get(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *IntakeHandler) Close(c *gin.Context) {
	if !h.service.Close(c.Param("id")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Session not found", Message: c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "closed"})
}

// AddFiles multipart 表单字段 files，可多个
func (h *IntakeHandler) AddFiles(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, err)
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: "no files"})
		return
	}
	files := make([]services.IntakeFile, 0, len(headers))
	for _, fh := range headers {
		// 超限的分片不读入内存，交给 Intake 记为拒绝
		if sess.TooLarge(fh.Size) {
			files = append(files, services.IntakeFile{FileName: fh.Filename, Size: fh.Size})
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			badRequest(c, err)
			return
		}
		files = append(files, services.IntakeFile{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	accepted, rejected := sess.Intake(files)
	if accepted == nil {
		accepted = []models.MaterialFile{}
	}
	if rejected == nil {
		rejected = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "rejected": rejected})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// UpdateFile 部分更新名称、备注、账户
func (h *IntakeHandler) UpdateFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Name      *string `json:"name"`
		Remark    *string `json:"remark"`
		AccountID *string `json:"account_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	fileID := c.Param("fileId")
	found := true
	if req.Name != nil {
		found = sess.Rename(fileID, *req.Name) && found
	}
	if req.Remark != nil {
		found = sess.SetRemark(fileID, *req.Remark) && found
	}
	if req.AccountID != nil {
		found = sess.SetAccount(fileID, *req.AccountID) && found
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "File not found", Message: fileID})
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *IntakeHandler) RemoveFile(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	if !sess.Remove(c.Param("fileId")) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "File not found", Message: c.Param("fileId")})
		return
	}
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *IntakeHandler) SetGlobalAccount(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		AccountID string `json:"account_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess.SetGlobalAccount(req.AccountID)
	c.JSON(http.StatusOK, viewOf(sess))
}

func (h *IntakeHandler) Upload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		SubmitForReview bool `json:"submit_for_review"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := sess.StartUpload(c.Request.Context(), req.SubmitForReview)
	if err != nil {
		respondError(c, "Failed to upload materials", err)
		return
	}
	if res.Uploaded == nil {
		res.Uploaded = []models.MaterialFile{}
	}
	c.JSON(http.StatusOK, res)
}

// RegisterIntakeRoutes 注册上传会话路由
func RegisterIntakeRoutes(r *gin.RouterGroup, handler *IntakeHandler) {
	sessions := r.Group("/intake/sessions")
	{
		sessions.POST("", handler.Open)
		sessions.GET("/:id", handler.Get)
		sessions.DELETE("/:id", handler.Close)
		sessions.POST("/:id/files", handler.AddFiles)
		sessions.PATCH("/:id/files/:fileId", handler.UpdateFile)
		sessions.DELETE("/:id/files/:fileId", handler.RemoveFile)
		sessions.PUT("/:id/account", handler.SetGlobalAccount)
		sessions.POST("/:id/upload", handler.Upload)
	}
}
