package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"my-page/backend/config"
	"my-page/backend/internal/api/handler"
	"my-page/backend/internal/api/middleware"
	"my-page/backend/pkg/jwt"
	"my-page/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// gatherer 为 nil 时不暴露 /metrics；rdb 为 nil 时写操作限流降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	admin := middleware.RoleAuth("admin")
	limited := middleware.RateLimit(rdb, cfg.Server.WriteRateLimit, cfg.Server.WriteRateWindow, logger)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 公寓模块
		apartments := v1.Group("/apartments")
		{
			apartments.GET("", h.Apartment.ListApartments)
			apartments.POST("", admin, h.Apartment.CreateApartment)
			apartments.PUT("/:id", admin, h.Apartment.UpdateApartment)
		}

		// 抽签模块
		drawings := v1.Group("/drawings")
		{
			drawings.GET("", h.Drawing.ListDrawings)
			drawings.POST("", admin, h.Drawing.CreateDrawing)
			drawings.GET("/:id", h.Drawing.GetDrawing)
			drawings.DELETE("/:id", admin, h.Drawing.DeleteDrawing)
			drawings.POST("/:id/transition", admin, h.Drawing.TransitionDrawing)

			// 时段
			drawings.GET("/:id/periods", h.Period.ListPeriods)
			drawings.POST("/:id/periods", admin, h.Period.AddPeriod)
			drawings.POST("/:id/periods/bulk", admin, h.Period.BulkCreatePeriods)
			drawings.PUT("/:id/periods/:periodId", admin, h.Period.UpdatePeriod)
			drawings.DELETE("/:id/periods/:periodId", admin, h.Period.DeletePeriod)

			// 愿望（本人 / 管理员代提交由 Service 层鉴权）
			drawings.GET("/:id/wishes", admin, h.Wish.ListWishes)
			drawings.POST("/:id/wishes", h.Wish.SubmitWish)
			drawings.GET("/:id/wishes/my", h.Wish.ListMyWishes)
			drawings.DELETE("/:id/wishes/:wishId", h.Wish.DeleteWish)
			drawings.POST("/:id/wishes/import", admin, limited, h.Wish.ImportWishes)

			// 执行与发布
			drawings.POST("/:id/executions", admin, limited, h.Execution.Draw)
			drawings.GET("/:id/executions", admin, h.Execution.ListExecutions)
			drawings.GET("/:id/executions/compare", admin, h.Execution.CompareExecutions)
			drawings.GET("/:id/executions/:executionId", admin, h.Execution.GetExecution)
			drawings.GET("/:id/executions/:executionId/export", admin, h.Export.ExportExecution)
			drawings.POST("/:id/executions/:executionId/publish", admin, h.Execution.PublishExecution)
			drawings.POST("/:id/executions/:executionId/revise", admin, limited, h.Execution.ReviseExecution)
			drawings.POST("/:id/unpublish", admin, h.Execution.Unpublish)

			// 已发布结果
			drawings.GET("/:id/allocations", h.Execution.GetPublishedAllocations)
			drawings.GET("/:id/allocations/my", h.Execution.GetMyAllocations)
			drawings.GET("/:id/allocations/my.ics", h.Export.ExportMyCalendar)
		}
	}

	return r
}
