package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/internal/handler"
	"state-tracer/internal/server"
	"state-tracer/internal/service"
	"state-tracer/pkg/cache"
	"state-tracer/pkg/config"
	"state-tracer/pkg/logger"
	"state-tracer/pkg/monitor"
)

func main() {
	// 0. 初始化 Config
	config.Init()

	// 1. 初始化 Logger
	logger.Init(config.Global.App.Env)
	defer logger.Sync()

	// 2. 初始化监控指标
	monitor.Init()

	// 3. 连接链上节点 (HTTP RPC)
	client, err := chain.Dial(config.Global.Chain.RpcUrl)
	if err != nil {
		logger.Fatal("RPC 连接失败", zap.String("url", config.Global.Chain.RpcUrl), zap.Error(err))
	}
	defer client.Close()
	logger.Info("RPC 连接成功", zap.String("url", config.Global.Chain.RpcUrl))

	// 4. 区块扫描缓存: 配置了 TTL 才启用 (L1 Memory + L2 Redis)
	var scanCache cache.Cache
	ttl := time.Duration(config.Global.Trace.CacheTTLMin) * time.Minute
	if ttl > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Global.Redis.Addr,
			Password: config.Global.Redis.Password,
			DB:       config.Global.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis 不可用，退化为纯内存缓存", zap.Error(err))
			scanCache = cache.NewMemoryCache(ttl, ttl)
		} else {
			scanCache = cache.NewMultiLevelCache(cache.NewMemoryCache(ttl, ttl), cache.NewRedisCache(rdb))
		}
	}

	// 5. 组装服务与路由
	traceSvc := service.NewTraceService(client, scanCache, ttl)
	router := server.NewHTTPRouter(handler.NewTraceHandler(traceSvc))

	srv := &http.Server{
		Addr:    ":" + config.Global.App.HttpPort,
		Handler: router,
	}

	// 6. 启动 + 优雅退出
	go func() {
		logger.Info("HTTP Server 启动", zap.String("port", config.Global.App.HttpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Server 异常退出", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("收到退出信号，开始优雅关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("优雅关闭失败", zap.Error(err))
	}
	logger.Info("Server 已退出")
}
