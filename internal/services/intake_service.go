package services

import (
	"context"
	"strings"
	"sync"

	"materialhub/internal/config"
	"materialhub/internal/metrics"
	"materialhub/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const previewScheme = "preview://"

// PreviewRegistry 本地预览句柄：选择文件时获取，移除或会话关闭时释放，且只释放一次
type PreviewRegistry struct {
	mu   sync.Mutex
	live map[string]bool
}

func NewPreviewRegistry() *PreviewRegistry {
	return &PreviewRegistry{live: make(map[string]bool)}
}

func (r *PreviewRegistry) Acquire() string {
	h := previewScheme + uuid.NewString()
	r.mu.Lock()
	r.live[h] = true
	r.mu.Unlock()
	return h
}

// Release 重复释放返回 false
func (r *PreviewRegistry) Release(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live[handle] {
		return false
	}
	delete(r.live, handle)
	return true
}

func (r *PreviewRegistry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// IntakeFile 选择的本地文件，MimeType 为空时按内容识别
type IntakeFile struct {
	FileName string
	MimeType string
	Data     []byte
	Size     int64 // 为 0 时取 len(Data)；超限的文件可以只带 Size 不带 Data
}

// MaterialRegistrar 接收上传完成的素材
type MaterialRegistrar interface {
	Register(ctx context.Context, files []models.MaterialFile) ([]models.Material, error)
}

// UploadResult StartUpload 的结果
type UploadResult struct {
	Uploaded  []models.MaterialFile `json:"uploaded"`
	Submitted bool                  `json:"submitted"`
	Policy    string                `json:"policy,omitempty"`
}

// IntakeSession 一次批量上传会话，仅由单个操作者使用
type IntakeSession struct {
	ID string

	mu            sync.Mutex
	files         []models.MaterialFile
	globalAccount string
	closed        bool

	previews  *PreviewRegistry
	upload    config.UploadConfig
	materials MaterialRegistrar
	audit     *AuditConfigService
	logger    *logrus.Logger
}

// TooLarge 超过 upload.max_file_size 的文件不接收
func (s *IntakeSession) TooLarge(size int64) bool {
	return s.upload.MaxFileSize > 0 && size > s.upload.MaxFileSize
}

// Intake 过滤出允许的 MIME 类型，生成待上传记录；返回被拒绝的文件名
func (s *IntakeSession) Intake(files []IntakeFile) ([]models.MaterialFile, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accepted []models.MaterialFile
	var rejected []string
	for _, f := range files {
		size := f.Size
		if size == 0 {
			size = int64(len(f.Data))
		}
		if s.closed || s.TooLarge(size) {
			rejected = append(rejected, f.FileName)
			continue
		}
		mime := f.MimeType
		if mime == "" {
			mime = mimetype.Detect(f.Data).String()
		}
		if !s.allowed(mime) {
			rejected = append(rejected, f.FileName)
			continue
		}
		mf := models.MaterialFile{
			ID:            uuid.NewString(),
			FileName:      f.FileName,
			MimeType:      mime,
			Size:          size,
			PreviewHandle: s.previews.Acquire(),
			Status:        models.FileStatusPending,
			AccountID:     s.globalAccount,
		}
		s.files = append(s.files, mf)
		accepted = append(accepted, mf)
	}
	metrics.RecordIntake("accepted", len(accepted))
	metrics.RecordIntake("rejected", len(rejected))
	return accepted, rejected
}

func (s *IntakeSession) allowed(mime string) bool {
	prefixes := s.upload.AllowedPrefixes
	if len(prefixes) == 0 {
		prefixes = []string{"image/", "video/"}
	}
	for _, p := range prefixes {
		if strings.HasPrefix(mime, p) {
			return true
		}
	}
	return false
}

func (s *IntakeSession) Files() []models.MaterialFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MaterialFile(nil), s.files...)
}

func (s *IntakeSession) GlobalAccount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalAccount
}

func (s *IntakeSession) update(id string, fn func(*models.MaterialFile)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.files {
		if s.files[i].ID == id {
			fn(&s.files[i])
			return true
		}
	}
	return false
}

func (s *IntakeSession) Rename(id, name string) bool {
	return s.update(id, func(f *models.MaterialFile) { f.Name = name })
}

func (s *IntakeSession) SetRemark(id, remark string) bool {
	return s.update(id, func(f *models.MaterialFile) { f.Remark = remark })
}

func (s *IntakeSession) SetAccount(id, accountID string) bool {
	return s.update(id, func(f *models.MaterialFile) { f.AccountID = accountID })
}

// SetGlobalAccount 覆盖所有 pending 文件的账户，之后新选择的文件也使用该账户
func (s *IntakeSession) SetGlobalAccount(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalAccount = accountID
	for i := range s.files {
		if s.files[i].Status == models.FileStatusPending {
			s.files[i].AccountID = accountID
		}
	}
}

// Remove 移除文件并释放其预览句柄
func (s *IntakeSession) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.files {
		if f.ID != id {
			continue
		}
		s.previews.Release(f.PreviewHandle)
		s.files = append(s.files[:i:i], s.files[i+1:]...)
		return true
	}
	return false
}

// Close 释放剩余文件的预览句柄，可重复调用
func (s *IntakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, f := range s.files {
		s.previews.Release(f.PreviewHandle)
	}
	s.closed = true
}

// StartUpload 上传 pending 与 error 状态的文件；任一文件缺账户或名称时整体拒绝
func (s *IntakeSession) StartUpload(ctx context.Context, submitForReview bool) (*UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var idx []int
	for i, f := range s.files {
		if f.Status == models.FileStatusPending || f.Status == models.FileStatusError {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return &UploadResult{Submitted: submitForReview}, nil
	}
	for _, i := range idx {
		if s.files[i].AccountID == "" {
			return nil, validationError("请为所有素材选择广告账户")
		}
	}
	for _, i := range idx {
		if strings.TrimSpace(s.files[i].Name) == "" {
			return nil, validationError("请输入所有素材的名称")
		}
	}

	batch := make([]models.MaterialFile, 0, len(idx))
	for _, i := range idx {
		f := s.files[i]
		f.Name = strings.TrimSpace(f.Name)
		f.Status = models.FileStatusSuccess
		f.Progress = 100
		f.ErrorMsg = ""
		batch = append(batch, f)
	}
	if s.materials != nil {
		if _, err := s.materials.Register(ctx, batch); err != nil {
			for _, i := range idx {
				s.files[i].Status = models.FileStatusError
				s.files[i].ErrorMsg = err.Error()
			}
			metrics.RecordIntake("failed", len(idx))
			return nil, err
		}
	}
	for n, i := range idx {
		s.files[i] = batch[n]
	}
	metrics.RecordIntake("uploaded", len(batch))

	res := &UploadResult{Uploaded: batch, Submitted: submitForReview}
	if submitForReview && s.audit != nil {
		res.Policy = s.audit.PolicyDescription()
	}
	s.logger.WithFields(logrus.Fields{"session": s.ID, "count": len(batch), "submit": submitForReview}).Info("intake upload finished")
	return res, nil
}

// IntakeService 管理批量上传会话
type IntakeService struct {
	mu        sync.Mutex
	sessions  map[string]*IntakeSession
	previews  *PreviewRegistry
	upload    config.UploadConfig
	materials MaterialRegistrar
	audit     *AuditConfigService
	logger    *logrus.Logger
}

func NewIntakeService(upload config.UploadConfig, materials MaterialRegistrar, audit *AuditConfigService, logger *logrus.Logger) *IntakeService {
	if logger == nil {
		logger = logrus.New()
	}
	return &IntakeService{
		sessions:  make(map[string]*IntakeSession),
		previews:  NewPreviewRegistry(),
		upload:    upload,
		materials: materials,
		audit:     audit,
		logger:    logger,
	}
}

func (s *IntakeService) Open(globalAccount string) *IntakeSession {
	sess := &IntakeSession{
		ID:            uuid.NewString(),
		globalAccount: globalAccount,
		previews:      s.previews,
		upload:        s.upload,
		materials:     s.materials,
		audit:         s.audit,
		logger:        s.logger,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *IntakeService) Get(id string) (*IntakeSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Close 关闭并移除会话
func (s *IntakeService) Close(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
	return ok
}

// Shutdown 关闭全部会话
func (s *IntakeService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*IntakeSession)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
}

// LivePreviews 尚未释放的预览句柄数
func (s *IntakeService) LivePreviews() int {
	return s.previews.Live()
}
