package services

import (
	"context"
	"errors"
	"testing"

	"materialhub/internal/config"
	"materialhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader 足以让 mimetype 识别为 image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type recordingRegistrar struct {
	got []models.MaterialFile
	err error
}

func (r *recordingRegistrar) Register(_ context.Context, files []models.MaterialFile) ([]models.Material, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.got = append(r.got, files...)
	return nil, nil
}

func newIntakeTestService(reg MaterialRegistrar) *IntakeService {
	return NewIntakeService(config.GetDefaultConfig().Upload, reg, nil, nil)
}

func TestIntakeSession_FiltersMime(t *testing.T) {
	svc := newIntakeTestService(nil)
	sess := svc.Open("1")

	accepted, rejected := sess.Intake([]IntakeFile{
		{FileName: "a.mp4", MimeType: "video/mp4", Data: []byte("xx")},
		{FileName: "b.pdf", MimeType: "application/pdf", Data: []byte("%PDF")},
		{FileName: "c.png", Data: pngHeader},
		{FileName: "d.txt", Data: []byte("plain text")},
	})
	require.Len(t, accepted, 2)
	assert.Equal(t, []string{"b.pdf", "d.txt"}, rejected)
	assert.Equal(t, "image/png", accepted[1].MimeType)
	for _, f := range accepted {
		assert.Equal(t, models.FileStatusPending, f.Status)
		assert.Equal(t, "1", f.AccountID)
		assert.Empty(t, f.Name)
		assert.Empty(t, f.Remark)
		assert.NotEmpty(t, f.PreviewHandle)
	}
	assert.NotEqual(t, accepted[0].PreviewHandle, accepted[1].PreviewHandle)
	assert.Equal(t, 2, svc.LivePreviews())
}

func TestIntakeSession_MaxFileSize(t *testing.T) {
	svc := NewIntakeService(config.UploadConfig{AllowedPrefixes: []string{"image/"}, MaxFileSize: 4}, nil, nil, nil)
	sess := svc.Open("")
	accepted, rejected := sess.Intake([]IntakeFile{
		{FileName: "big.png", MimeType: "image/png", Data: []byte("12345")},
		{FileName: "ok.png", MimeType: "image/png", Data: []byte("1234")},
		{FileName: "clip.mp4", MimeType: "video/mp4", Data: []byte("1")},
	})
	assert.Len(t, accepted, 1)
	assert.Equal(t, []string{"big.png", "clip.mp4"}, rejected)

	// 只带 Size 的文件按声明的大小判断
	accepted, rejected = sess.Intake([]IntakeFile{{FileName: "huge.png", MimeType: "image/png", Size: 1 << 30}})
	assert.Empty(t, accepted)
	assert.Equal(t, []string{"huge.png"}, rejected)
	assert.True(t, sess.TooLarge(5))
	assert.False(t, sess.TooLarge(4))
}

func TestIntakeSession_PreviewReleasedOnce(t *testing.T) {
	svc := newIntakeTestService(nil)
	sess := svc.Open("")
	files, _ := sess.Intake([]IntakeFile{
		{FileName: "1.png", MimeType: "image/png"},
		{FileName: "2.png", MimeType: "image/png"},
		{FileName: "3.png", MimeType: "image/png"},
	})
	require.Equal(t, 3, svc.LivePreviews())

	assert.True(t, sess.Remove(files[0].ID))
	assert.False(t, sess.Remove(files[0].ID))
	assert.Equal(t, 2, svc.LivePreviews())
	assert.False(t, svc.previews.Release(files[0].PreviewHandle))

	assert.True(t, svc.Close(sess.ID))
	assert.Equal(t, 0, svc.LivePreviews())
	sess.Close()
	assert.False(t, svc.Close(sess.ID))

	// 会话关闭后不再接收文件
	accepted, rejected := sess.Intake([]IntakeFile{{FileName: "4.png", MimeType: "image/png"}})
	assert.Empty(t, accepted)
	assert.Equal(t, []string{"4.png"}, rejected)
	assert.Equal(t, 0, svc.LivePreviews())
}

func TestIntakeService_Shutdown(t *testing.T) {
	svc := newIntakeTestService(nil)
	for i := 0; i < 3; i++ {
		svc.Open("").Intake([]IntakeFile{{FileName: "x.png", MimeType: "image/png"}})
	}
	require.Equal(t, 3, svc.LivePreviews())
	svc.Shutdown()
	assert.Equal(t, 0, svc.LivePreviews())
}

func TestIntakeSession_Edits(t *testing.T) {
	sess := newIntakeTestService(nil).Open("")
	files, _ := sess.Intake([]IntakeFile{
		{FileName: "1.png", MimeType: "image/png"},
		{FileName: "2.png", MimeType: "image/png"},
	})
	assert.True(t, sess.Rename(files[0].ID, "春季主图"))
	assert.True(t, sess.SetRemark(files[0].ID, "首页"))
	assert.True(t, sess.SetAccount(files[1].ID, "2"))
	assert.False(t, sess.Rename("missing", "x"))

	got := sess.Files()
	assert.Equal(t, "春季主图", got[0].Name)
	assert.Equal(t, "首页", got[0].Remark)
	assert.Empty(t, got[0].AccountID)
	assert.Equal(t, "2", got[1].AccountID)

	// 全局账户覆盖所有 pending 文件，并用于之后选择的文件
	sess.SetGlobalAccount("3")
	for _, f := range sess.Files() {
		assert.Equal(t, "3", f.AccountID)
	}
	later, _ := sess.Intake([]IntakeFile{{FileName: "3.png", MimeType: "image/png"}})
	assert.Equal(t, "3", later[0].AccountID)
	assert.Equal(t, "3", sess.GlobalAccount())
}

func TestIntakeSession_StartUploadValidation(t *testing.T) {
	ctx := context.Background()
	reg := &recordingRegistrar{}
	sess := newIntakeTestService(reg).Open("")
	files, _ := sess.Intake([]IntakeFile{
		{FileName: "1.png", MimeType: "image/png"},
		{FileName: "2.mp4", MimeType: "video/mp4"},
	})

	sess.Rename(files[0].ID, "a")
	sess.Rename(files[1].ID, "b")
	sess.SetAccount(files[0].ID, "1")
	_, err := sess.StartUpload(ctx, false)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "请为所有素材选择广告账户")

	sess.SetAccount(files[1].ID, "1")
	sess.Rename(files[1].ID, "  ")
	_, err = sess.StartUpload(ctx, false)
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "请输入所有素材的名称")
	assert.Empty(t, reg.got)
	for _, f := range sess.Files() {
		assert.Equal(t, models.FileStatusPending, f.Status)
	}
}

func TestIntakeSession_StartUpload(t *testing.T) {
	ctx := context.Background()
	reg := &recordingRegistrar{}
	sess := newIntakeTestService(reg).Open("1")
	files, _ := sess.Intake([]IntakeFile{{FileName: "1.png", MimeType: "image/png", Data: []byte("abc")}})
	sess.Rename(files[0].ID, " 主图 ")

	res, err := sess.StartUpload(ctx, false)
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 1)
	assert.Equal(t, "主图", res.Uploaded[0].Name)
	assert.Equal(t, models.FileStatusSuccess, res.Uploaded[0].Status)
	assert.Equal(t, 100, res.Uploaded[0].Progress)
	assert.Empty(t, res.Policy)
	require.Len(t, reg.got, 1)
	assert.Equal(t, int64(3), reg.got[0].Size)

	// 已成功的文件不会重复上传
	res, err = sess.StartUpload(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, res.Uploaded)
	assert.Len(t, reg.got, 1)
}

func TestIntakeSession_RegisterFailureMarksError(t *testing.T) {
	ctx := context.Background()
	reg := &recordingRegistrar{err: errors.New("db down")}
	sess := newIntakeTestService(reg).Open("1")
	files, _ := sess.Intake([]IntakeFile{{FileName: "1.png", MimeType: "image/png"}})
	sess.Rename(files[0].ID, "a")

	_, err := sess.StartUpload(ctx, false)
	require.Error(t, err)
	got := sess.Files()[0]
	assert.Equal(t, models.FileStatusError, got.Status)
	assert.Equal(t, "db down", got.ErrorMsg)

	// error 状态的文件可以重试
	reg.err = nil
	res, err := sess.StartUpload(ctx, false)
	require.NoError(t, err)
	require.Len(t, res.Uploaded, 1)
	assert.Empty(t, res.Uploaded[0].ErrorMsg)
}

func TestIntakeSession_SubmitForReviewReportsPolicy(t *testing.T) {
	ctx := context.Background()
	audit, err := NewAuditConfigService(ctx, nil, nil, nil)
	require.NoError(t, err)
	svc := NewIntakeService(config.GetDefaultConfig().Upload, &recordingRegistrar{}, audit, nil)
	sess := svc.Open("1")
	files, _ := sess.Intake([]IntakeFile{{FileName: "1.png", MimeType: "image/png"}})
	sess.Rename(files[0].ID, "a")

	res, err := sess.StartUpload(ctx, true)
	require.NoError(t, err)
	assert.True(t, res.Submitted)
	assert.Equal(t, "AI 大模型审核 (通用合规审核助手) + 平台审核", res.Policy)
}
