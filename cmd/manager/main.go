package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetops/manager/internal/config"
	"github.com/fleetops/manager/internal/handler"
	"github.com/fleetops/manager/internal/logger"
	"github.com/fleetops/manager/internal/middleware"
	"github.com/fleetops/manager/internal/queue"
	"github.com/fleetops/manager/internal/repository"
	"github.com/fleetops/manager/internal/service"
	"github.com/fleetops/manager/internal/version"
	"github.com/fleetops/manager/pkg/database"
	"github.com/fleetops/manager/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "configs/manager.yaml", "配置文件路径")
)

func main() {
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	log, err := logger.Init(&cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	log.Info("Manager starting...",
		zap.String("version", version.GetFullVersion()),
		zap.String("mode", cfg.Server.Mode),
	)

	// 3. 初始化数据库
	db, err := database.Init(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to init database", zap.Error(err))
	}

	// 自动迁移数据库表结构
	if err := database.AutoMigrate(db, log); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 4. 初始化JWT管理器
	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.Issuer,
		cfg.JWT.ExpireTime,
	)

	// 5. 初始化Repository层
	userRepo := repository.NewUserRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	scheduleRepo := repository.NewScheduledCommandRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// 6. 初始化命令队列和Service层
	commands := queue.NewCommandQueue()
	authService := service.NewAuthService(userRepo, jwtManager, log)
	agentService := service.NewAgentService(agentRepo, commands, log)
	dispatchService := service.NewDispatchService(agentRepo, commands, log)
	scheduleService := service.NewScheduleService(scheduleRepo, log)
	sweeper := service.NewOfflineSweeper(agentRepo, cfg.Fleet.StaleWindow, log)
	scheduleDispatcher := service.NewScheduleDispatcher(scheduleRepo, dispatchService, cfg.Fleet.ScheduleTolerance, log)

	// 初始化默认管理员账户
	if cfg.Admin.Password != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := authService.EnsureDefaultAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			log.Fatal("Failed to ensure default admin", zap.Error(err))
		}
		cancel()
	}

	// 7. 初始化Handler层
	authHandler := handler.NewAuthHandler(authService, log)
	agentHandler := handler.NewAgentHandler(agentService, log)
	dispatchHandler := handler.NewDispatchHandler(dispatchService, scheduleService, log)

	// 8. 初始化Gin引擎
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// 9. 注册全局中间件
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))

	// 10. 注册路由
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": version.GetVersion(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// 公开API（无需认证）
	public := router.Group("/api")
	{
		// 认证相关
		public.POST("/auth/login", authHandler.Login)
		public.POST("/auth/register", authHandler.Register)

		// 主机侧接口，通过主机密钥认证
		public.POST("/manager/register", agentHandler.Register)
		public.POST("/manager/heartbeat", agentHandler.Heartbeat)
	}

	// 需要认证的API
	api := router.Group("/api")
	api.Use(middleware.JWTAuth(jwtManager))
	api.Use(middleware.Audit(auditRepo, log))
	{
		// 用户相关
		auth := api.Group("/auth")
		{
			auth.GET("/profile", authHandler.GetProfile)
			auth.POST("/change-password", authHandler.ChangePassword)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/refresh", authHandler.RefreshToken)
		}

		// 管理接口（需要管理员权限）
		manager := api.Group("/manager")
		manager.Use(middleware.RequireAdmin())
		{
			// 主机管理
			manager.GET("/agents", agentHandler.List)
			manager.GET("/agents/pending", agentHandler.ListPending)
			manager.GET("/agents/:id", agentHandler.Get)
			manager.POST("/agents/:id/approve", agentHandler.Approve)
			manager.DELETE("/agents/:id", agentHandler.Delete)

			// 命令下发
			manager.POST("/commands/host", dispatchHandler.QueueCommand)
			manager.POST("/commands/group", dispatchHandler.QueueCommandGroup)
			manager.POST("/commands/all", dispatchHandler.QueueCommandAll)

			// 定时命令
			manager.POST("/schedules", dispatchHandler.ScheduleCommand)
			manager.GET("/schedules", dispatchHandler.ListSchedules)
		}

		// 用户管理（需要管理员权限）
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("/users", authHandler.ListUsers)
			admin.POST("/users/:id/disable", authHandler.DisableUser)
			admin.POST("/users/:id/enable", authHandler.EnableUser)
		}
	}

	// 11. 启动周期任务：离线扫描和定时命令派发
	runner := cron.New()
	runner.Schedule(cron.Every(cfg.Fleet.SweepInterval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sweeper.Sweep(ctx); err != nil {
			log.Error("offline sweep failed", zap.Error(err))
		}
	}))
	runner.Schedule(cron.Every(cfg.Fleet.ScheduleInterval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := scheduleDispatcher.DispatchDue(ctx); err != nil {
			log.Error("schedule dispatch failed", zap.Error(err))
		}
	}))
	runner.Start()
	log.Info("background jobs started",
		zap.Duration("sweep_interval", cfg.Fleet.SweepInterval),
		zap.Duration("schedule_interval", cfg.Fleet.ScheduleInterval),
	)

	// 12. 启动HTTP服务器
	httpAddr := cfg.Server.Address()
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 13. 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Manager shutting down...")

	// 14. 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 停止周期任务，等待执行中的任务结束
	<-runner.Stop().Done()

	// 关闭HTTP服务器
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	// 关闭数据库连接
	if err := database.Close(); err != nil {
		log.Error("Database close failed", zap.Error(err))
	}

	log.Info("Manager stopped")
}
