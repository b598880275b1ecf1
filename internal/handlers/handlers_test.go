package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"materialhub/internal/config"
	"materialhub/internal/models"
	"materialhub/internal/services"
	"materialhub/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	router   *gin.Engine
	intake   *services.IntakeService
	accounts *services.AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	kv := storage.NewMemoryKV()
	agents := services.NewAgentCatalog(services.DefaultAgents())
	accounts := services.NewAccountService(db, nil)
	require.NoError(t, accounts.Seed(ctx))
	opening, err := services.NewOpeningRuleService(ctx, kv, nil)
	require.NoError(t, err)
	returnVisit, err := services.NewReturnVisitService(ctx, kv, agents, nil)
	require.NoError(t, err)
	audit, err := services.NewAuditConfigService(ctx, kv, agents, nil)
	require.NoError(t, err)
	lexicon, err := services.NewLexiconService(ctx, kv, nil)
	require.NoError(t, err)
	outreach, err := services.NewOutreachService(ctx, kv, accounts, nil)
	require.NoError(t, err)
	materials := services.NewMaterialService(db, audit, nil)
	require.NoError(t, materials.Seed(ctx))
	intake := services.NewIntakeService(config.GetDefaultConfig().Upload, materials, audit, nil)
	cfg := config.GetDefaultConfig()

	r := gin.New()
	api := r.Group("/api")
	RegisterAccountRoutes(api, NewAccountHandler(accounts))
	RegisterMaterialRoutes(api, NewMaterialHandler(materials))
	RegisterIntakeRoutes(api, NewIntakeHandler(intake))
	RegisterRuleRoutes(api, NewRuleHandler(opening, returnVisit, audit, lexicon, agents))
	RegisterOutreachRoutes(api, NewOutreachHandler(outreach))
	RegisterDashboardRoutes(api, NewDashboardHandler(
		services.NewDashboardService(cfg.Reporting.RankingPoolSize, nil),
		services.NewBillingService(cfg.Billing),
	))
	return &testEnv{router: r, intake: intake, accounts: accounts}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func TestAccountRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/accounts?search=华", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Account
	decode(t, w, &list)
	assert.Len(t, list, 2)

	w = env.do(t, "POST", "/api/accounts", gin.H{"name": "新账户"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/accounts", gin.H{"name": "新账户", "account_id": "3001"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Account
	decode(t, w, &created)

	assert.Equal(t, http.StatusOK, env.do(t, "DELETE", "/api/accounts/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, "DELETE", "/api/accounts/"+created.ID, nil).Code)
}

func TestMaterialRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/materials?account_id=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []materialView
	decode(t, w, &list)
	require.Len(t, list, 3)
	assert.NotEmpty(t, list[0].SizeText)

	w = env.do(t, "POST", "/api/materials/select-all?account_id=1", gin.H{"selected": []string{"m-1"}})
	require.Equal(t, http.StatusOK, w.Code)
	var sel selectionResponse
	decode(t, w, &sel)
	assert.Equal(t, []string{"m-1", "m-5", "m-9"}, sel.Selected)
	assert.True(t, sel.AllSelected)

	w = env.do(t, "POST", "/api/materials/select-all?account_id=1", gin.H{"selected": sel.Selected})
	decode(t, w, &sel)
	assert.Empty(t, sel.Selected)
	assert.False(t, sel.AllSelected)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/materials/submit", gin.H{"ids": []string{}}).Code)
	w = env.do(t, "POST", "/api/materials/submit", gin.H{"ids": []string{"m-1", "m-2"}})
	require.Equal(t, http.StatusOK, w.Code)
	var res services.SubmitResult
	decode(t, w, &res)
	assert.Equal(t, 2, res.Count)
	assert.Contains(t, res.Policy, "平台审核")
}

func TestRuleRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/rules/opening", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var rule models.OpeningRule
	decode(t, w, &rule)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "PATCH", "/api/rules/opening/"+rule.ID, gin.H{"minutes": 0}).Code)

	w = env.do(t, "PATCH", "/api/rules/opening/"+rule.ID, gin.H{"message": "你好"})
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		Changed bool                 `json:"changed"`
		Rules   []models.OpeningRule `json:"rules"`
	}
	decode(t, w, &res)
	assert.True(t, res.Changed)
	require.Len(t, res.Rules, 2)
	assert.Equal(t, "你好", res.Rules[1].Message)

	w = env.do(t, "PATCH", "/api/rules/opening/missing", gin.H{"message": "x"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.False(t, res.Changed)

	// 回访规则不能删到 0 条
	w = env.do(t, "GET", "/api/rules/return-visit", nil)
	var visits []models.ReturnVisitRule
	decode(t, w, &visits)
	for i, v := range visits {
		w = env.do(t, "DELETE", "/api/rules/return-visit/"+v.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var r struct {
			Changed bool `json:"changed"`
		}
		decode(t, w, &r)
		assert.Equal(t, i < len(visits)-1, r.Changed)
	}
}

func TestAuditRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "PUT", "/api/audit/mode", gin.H{"mode": "platform"})
	require.Equal(t, http.StatusOK, w.Code)
	var view auditView
	decode(t, w, &view)
	assert.Equal(t, "仅平台审核", view.Policy)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "PUT", "/api/audit/mode", gin.H{"mode": "bogus"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "PUT", "/api/audit/agent", gin.H{}).Code)

	w = env.do(t, "POST", "/api/audit/lexicon/words", gin.H{"input": "新词, 最，新词 另一个"})
	require.Equal(t, http.StatusOK, w.Code)
	var added struct {
		Added []string `json:"added"`
	}
	decode(t, w, &added)
	assert.Equal(t, []string{"新词", "另一个"}, added.Added)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/audit/lexicon/colors", gin.H{"input": "x"}).Code)
	assert.Equal(t, http.StatusOK, env.do(t, "DELETE", "/api/audit/lexicon/words", nil).Code)
}

func TestOutreachRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/outreach/plans", gin.H{"name": "", "type": "comment", "content": "x", "account_ids": []string{"1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/outreach/plans", gin.H{
		"name": "新计划", "type": "live", "content": "欢迎", "account_ids": []string{"1", "2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var plan models.OutreachPlan
	decode(t, w, &plan)
	assert.Equal(t, "10001", plan.ID)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/outreach/plans/404", nil).Code)

	w = env.do(t, "PUT", "/api/outreach/plans/"+plan.ID, gin.H{"account_ids": []string{"2", "3"}})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &plan)
	assert.Equal(t, []string{"2", "3"}, plan.AccountIDs())

	w = env.do(t, "POST", "/api/outreach/plans/"+plan.ID+"/accounts/3/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/outreach/rows?search=新计划", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.OutreachRow
	decode(t, w, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "品牌主账号-服饰", rows[0].AccountName)

	w = env.do(t, "POST", "/api/outreach/rows/select-all?search=新计划", gin.H{"selected": []string{}})
	require.Equal(t, http.StatusOK, w.Code)
	var sel selectionResponse
	decode(t, w, &sel)
	assert.Equal(t, []string{services.RowID(plan.ID, "2")}, sel.Selected)
	assert.True(t, sel.AllSelected)

	w = env.do(t, "POST", "/api/outreach/rows/batch-content", gin.H{
		"row_ids": sel.Selected, "content": "更新后的话术", "collect_phone": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var batch struct {
		Updated []string `json:"updated_plans"`
	}
	decode(t, w, &batch)
	assert.Equal(t, []string{plan.ID}, batch.Updated)
}

func TestDashboardRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/dashboard/overview?window=today", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ov services.Overview
	decode(t, w, &ov)
	assert.Equal(t, 398, ov.Incoming)
	assert.Equal(t, 47, ov.Leads)

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/dashboard/overview?window=decade", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/dashboard/boards/tv", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/dashboard/boards/ad?window=last30&account=all", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/dashboard/boards/live/accounts", nil).Code)

	w = env.do(t, "GET", "/api/dashboard/ranking?metric=leads&direction=top", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ranked []services.RankedRecord
	decode(t, w, &ranked)
	require.NotEmpty(t, ranked)
	assert.Equal(t, services.BadgeGold, ranked[0].Badge)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/dashboard/ranking?metric=views", nil).Code)

	w = env.do(t, "GET", "/api/billing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bill services.BillingSummary
	decode(t, w, &bill)
	assert.Equal(t, 3750, bill.Leads.Remaining)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func multipartFiles(t *testing.T, files map[string][]byte, contentType map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		if ct := contentType[name]; ct != "" {
			h.Set("Content-Type", ct)
		}
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestIntakeRoutes_RejectsOversizeParts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	upload := config.UploadConfig{AllowedPrefixes: []string{"image/"}, MaxFileSize: 8}
	intake := services.NewIntakeService(upload, nil, nil, nil)
	r := gin.New()
	RegisterIntakeRoutes(r.Group("/api"), NewIntakeHandler(intake))

	sess := intake.Open("")
	body, ct := multipartFiles(t,
		map[string][]byte{"big.png": pngHeader, "tiny.png": []byte("\x89PNG")},
		map[string]string{"big.png": "image/png", "tiny.png": "image/png"},
	)
	req, _ := http.NewRequest("POST", "/api/intake/sessions/"+sess.ID+"/files", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Accepted []models.MaterialFile `json:"accepted"`
		Rejected []string              `json:"rejected"`
	}
	decode(t, w, &out)
	require.Len(t, out.Accepted, 1)
	assert.Equal(t, "tiny.png", out.Accepted[0].FileName)
	assert.Equal(t, int64(4), out.Accepted[0].Size)
	assert.Equal(t, []string{"big.png"}, out.Rejected)
}

func TestIntakeRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/intake/sessions", gin.H{"global_account": "1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var sess sessionView
	decode(t, w, &sess)
	base := "/api/intake/sessions/" + sess.ID

	body, ct := multipartFiles(t,
		map[string][]byte{"a.png": pngHeader, "notes.txt": []byte("plain text")},
		map[string]string{"notes.txt": "text/plain"},
	)
	req, _ := http.NewRequest("POST", base+"/files", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var intake struct {
		Accepted []models.MaterialFile `json:"accepted"`
		Rejected []string              `json:"rejected"`
	}
	decode(t, w, &intake)
	require.Len(t, intake.Accepted, 1)
	assert.Equal(t, []string{"notes.txt"}, intake.Rejected)
	assert.Equal(t, "image/png", intake.Accepted[0].MimeType)
	assert.Equal(t, "1", intake.Accepted[0].AccountID)
	assert.Equal(t, 1, env.intake.LivePreviews())
	fileID := intake.Accepted[0].ID

	// 名称为空时拒绝上传
	w = env.do(t, "POST", base+"/upload", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, env.do(t, "PATCH", base+"/files/nope", gin.H{"name": "x"}).Code)
	w = env.do(t, "PATCH", base+"/files/"+fileID, gin.H{"name": "主图", "remark": "首页"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", base+"/upload", gin.H{"submit_for_review": true})
	require.Equal(t, http.StatusOK, w.Code)
	var res services.UploadResult
	decode(t, w, &res)
	require.Len(t, res.Uploaded, 1)
	assert.Equal(t, models.FileStatusSuccess, res.Uploaded[0].Status)
	assert.True(t, res.Submitted)
	assert.NotEmpty(t, res.Policy)

	assert.Equal(t, http.StatusOK, env.do(t, "DELETE", base, nil).Code)
	assert.Equal(t, 0, env.intake.LivePreviews())
	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", base, nil).Code)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewHealthHandler("test", nil).
		AddCheck("database", func(context.Context) error { return nil }).
		AddDetail("live_previews", func() interface{} { return 0 })
	broken := NewHealthHandler("test", nil).
		AddCheck("redis", func(context.Context) error { return errors.New("connection refused") })

	r := gin.New()
	r.GET("/ok/health", healthy.Health)
	r.GET("/ok/ready", healthy.Ready)
	r.GET("/bad/health", broken.Health)
	r.GET("/bad/ready", broken.Ready)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		r.ServeHTTP(w, req)
		return w
	}

	w := get("/ok/health")
	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["database"].Status)
	assert.Contains(t, resp.Details, "live_previews")
	assert.Equal(t, http.StatusOK, get("/ok/ready").Code)

	w = get("/bad/health")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "connection refused", resp.Services["redis"].Error)
	assert.Equal(t, http.StatusServiceUnavailable, get("/bad/ready").Code)
}
