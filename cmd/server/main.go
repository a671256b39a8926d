package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SlpAus/ranked-poll-backend/api"
	"github.com/SlpAus/ranked-poll-backend/internal/gateway"
	"github.com/SlpAus/ranked-poll-backend/internal/platform/config"
	"github.com/SlpAus/ranked-poll-backend/internal/platform/database"
	"github.com/SlpAus/ranked-poll-backend/internal/platform/health"
	"github.com/SlpAus/ranked-poll-backend/internal/platform/shutdown"
	"github.com/SlpAus/ranked-poll-backend/internal/poll"
	"github.com/SlpAus/ranked-poll-backend/pkg/lifecycle"
	"github.com/SlpAus/ranked-poll-backend/pkg/token"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env中的变量通过viper的AutomaticEnv进入配置
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("配置加载失败，无法启动: %v", err))
	}

	token.GenerateSecretKey()
	database.InitRedis(cfg.Database.Redis)
	database.InitDB(cfg.Database.Archive)

	// 归档表迁移
	if err := poll.SetupArchive(); err != nil {
		panic(fmt.Sprintf("归档初始化失败，无法启动: %v", err))
	}

	// 阻塞式执行一次启动后健康检查
	fmt.Println("正在执行启动后健康检查...")
	health.PerformCheck()

	// 生命周期管理：两阶段停机
	gracefulMgr := lifecycle.NewManager()
	forcefulMgr := lifecycle.NewManager()

	// 异步启动后台的持续健康检查器
	healthHandle, err := gracefulMgr.NewServiceHandle("redis-health-checker")
	if err != nil {
		panic(err)
	}
	go health.StartRedisHealthCheck(healthHandle)

	// 领域服务与实时网关
	rules := poll.Rules{FreezeNominationsOnStart: cfg.Poll.FreezeNominationsOnStart}
	service := poll.NewService(poll.NewRedisRepository(database.RDB), rules, cfg.Poll.TTL)

	hub := gateway.NewHub()
	hubHandle, err := gracefulMgr.NewServiceHandle("websocket-hub")
	if err != nil {
		panic(err)
	}
	go hub.Run(hubHandle)

	realtimeGateway := gateway.New(service, hub)
	pollHandler := poll.NewHandler(service)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(r, pollHandler, realtimeGateway)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	go func() {
		fmt.Printf("服务器已准备就绪，开始监听 %s\n", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("Failed to start server: " + err.Error())
		}
	}()

	// 阻塞等待停机信号并编排优雅停机
	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.ListenForSignalsAndShutdown(server)
}
