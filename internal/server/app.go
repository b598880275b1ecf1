// Package server 组装服务与 HTTP 路由
package server

import (
	"context"
	"fmt"

	"materialhub/internal/config"
	"materialhub/internal/handlers"
	"materialhub/internal/middleware"
	"materialhub/internal/observability"
	"materialhub/internal/services"
	"materialhub/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Version 构建时通过 -ldflags 覆盖
var Version = "dev"

// App 运行期依赖
type App struct {
	cfg    *config.Config
	db     *gorm.DB
	kv     storage.KV
	logger *logrus.Logger

	closeKV func() error

	Agents      *services.AgentCatalog
	Accounts    *services.AccountService
	Materials   *services.MaterialService
	Opening     *services.OpeningRuleService
	ReturnVisit *services.ReturnVisitService
	Audit       *services.AuditConfigService
	Lexicon     *services.LexiconService
	Outreach    *services.OutreachService
	Intake      *services.IntakeService
	Dashboard   *services.DashboardService
	Billing     *services.BillingService
}

// openStorage 测试中可替换
var openStorage = storage.Open

// New 初始化全部服务；各规则存储在此时从快照恢复
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	kv, closeKV, err := openStorage(cfg, db, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &App{cfg: cfg, db: db, kv: kv, logger: logger, closeKV: closeKV}
	if err := a.initServices(ctx); err != nil {
		if cerr := closeKV(); cerr != nil {
			logger.WithError(cerr).Warn("failed to close storage")
		}
		return nil, err
	}
	return a, nil
}

func (a *App) initServices(ctx context.Context) error {
	var err error
	a.Agents = services.NewAgentCatalog(services.DefaultAgents())
	a.Accounts = services.NewAccountService(a.db, a.logger)
	if a.Opening, err = services.NewOpeningRuleService(ctx, a.kv, a.logger); err != nil {
		return err
	}
	if a.ReturnVisit, err = services.NewReturnVisitService(ctx, a.kv, a.Agents, a.logger); err != nil {
		return err
	}
	if a.Audit, err = services.NewAuditConfigService(ctx, a.kv, a.Agents, a.logger); err != nil {
		return err
	}
	if a.Lexicon, err = services.NewLexiconService(ctx, a.kv, a.logger); err != nil {
		return err
	}
	if a.Outreach, err = services.NewOutreachService(ctx, a.kv, a.Accounts, a.logger); err != nil {
		return err
	}
	a.Materials = services.NewMaterialService(a.db, a.Audit, a.logger)
	a.Intake = services.NewIntakeService(a.cfg.Upload, a.Materials, a.Audit, a.logger)
	a.Dashboard = services.NewDashboardService(a.cfg.Reporting.RankingPoolSize, a.logger)
	a.Billing = services.NewBillingService(a.cfg.Billing)
	return nil
}

// Seed 账户与素材的演示数据，可重复执行
func (a *App) Seed(ctx context.Context) error {
	if err := a.Accounts.Seed(ctx); err != nil {
		return err
	}
	return a.Materials.Seed(ctx)
}

// Router 构建 gin 引擎
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.CORS(a.cfg.Security.CORS))
	r.Use(middleware.RateLimit(a.cfg.Security.RateLimiting))
	if a.cfg.Monitoring.Tracing.Enabled {
		r.Use(otelgin.Middleware(observability.ServiceName(a.cfg.Monitoring.Tracing)))
	}
	if a.cfg.Monitoring.Enabled {
		r.Use(middleware.Metrics())
		path := a.cfg.Monitoring.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	health := handlers.NewHealthHandler(Version, a.logger).
		AddCheck("database", a.pingDatabase).
		AddDetail("live_previews", func() interface{} { return a.Intake.LivePreviews() })
	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)

	api := r.Group("/api")
	handlers.RegisterAccountRoutes(api, handlers.NewAccountHandler(a.Accounts))
	handlers.RegisterMaterialRoutes(api, handlers.NewMaterialHandler(a.Materials))
	handlers.RegisterIntakeRoutes(api, handlers.NewIntakeHandler(a.Intake))
	handlers.RegisterRuleRoutes(api, handlers.NewRuleHandler(a.Opening, a.ReturnVisit, a.Audit, a.Lexicon, a.Agents))
	handlers.RegisterOutreachRoutes(api, handlers.NewOutreachHandler(a.Outreach))
	handlers.RegisterDashboardRoutes(api, handlers.NewDashboardHandler(a.Dashboard, a.Billing))
	return r
}

func (a *App) pingDatabase(ctx context.Context) error {
	if a.db == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭上传会话并释放存储连接
func (a *App) Close() error {
	a.Intake.Shutdown()
	return a.closeKV()
}
