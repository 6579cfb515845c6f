package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/internal/service"
	"state-tracer/internal/service/mq"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/config"
	"state-tracer/pkg/errno"
	"state-tracer/pkg/logger"
	"state-tracer/pkg/monitor"
	"state-tracer/pkg/utils/lock"
)

// 落选实例重新竞争选主的间隔
const standbyDelay = 30 * time.Second

// tracer-watcher 是常驻的监听进程:
// 从配置读监听目标，值变化发布到 MQ，Redis 锁选主保证多实例部署时
// 同一目标全局只有一个实例在 watch，其余实例热备待命。
func main() {
	config.Init()
	logger.Init(config.Global.App.Env)
	defer logger.Sync()
	monitor.Init()

	cfg, err := watchTarget(config.Global.Watch)
	if err != nil {
		logger.Fatal("监听目标配置无效", zap.Error(err))
	}

	client, err := chain.Dial(config.Global.Chain.WsUrl)
	if err != nil {
		logger.Fatal("WebSocket 连接失败", zap.String("url", config.Global.Chain.WsUrl), zap.Error(err))
	}
	defer client.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Global.Redis.Addr,
		Password: config.Global.Redis.Password,
		DB:       config.Global.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Redis 连接失败 (选主依赖)", zap.Error(err))
	}

	var producer mq.Producer
	topic := config.Global.Kafka.Topic
	switch config.Global.Redis.MQType {
	case "kafka":
		kp := mq.NewKafkaProducer(config.Global.Kafka.Brokers, topic)
		defer kp.Close()
		producer = kp
	default:
		producer = mq.NewRedisProducer(rdb)
	}

	svc := service.NewWatchService(client, producer, topic).WithLock(lock.NewRedisLock(rdb))

	opts := tracer.WatchOptions{
		MaxRetries: config.Global.Watch.MaxRetries,
		OnError: func(err error) {
			logger.Error("watch 内部错误", zap.Error(err))
		},
		OnReconnect: func() {
			logger.Info("订阅已恢复")
		},
	}
	if config.Global.Watch.MinDelta != "" {
		min, err := decimal.NewFromString(config.Global.Watch.MinDelta)
		if err != nil {
			logger.Fatal("min_delta 解析失败", zap.String("raw", config.Global.Watch.MinDelta), zap.Error(err))
		}
		opts.Filter = tracer.MinDeltaFilter(min)
	}

	// 指标暴露给 Prometheus 抓取
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + config.Global.App.HttpPort
		logger.Info("Metrics 端口启动", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Metrics 端口异常退出", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onChange := func(prev, curr *tracer.SampleResult) {
		fields := []zap.Field{
			zap.String("block", curr.Block),
			zap.String("value", curr.Value),
		}
		if prev != nil {
			fields = append(fields, zap.String("prev_value", prev.Value))
		}
		logger.Info("值发生变化", fields...)
	}

	// 选主循环: 落选 → 热备重试; 锁丢失 watch 结束 → 重新竞争
	for ctx.Err() == nil {
		handle, err := svc.Start(ctx, cfg, onChange, opts)
		if errors.Is(err, errno.ErrLockHeld) {
			logger.Info("目标已被其他实例监听，热备待命", zap.Duration("retry_in", standbyDelay))
			if !sleepCtx(ctx, standbyDelay) {
				return
			}
			continue
		}
		if err != nil {
			logger.Fatal("watch 启动失败", zap.Error(err))
		}

		logger.Info("当选为监听主实例",
			zap.String("address", cfg.Address.Hex()),
			zap.String("method", cfg.Method.Name))

		select {
		case <-ctx.Done():
			handle.Stop()
			<-handle.Done()
			return
		case <-handle.Done():
			logger.Warn("watch 结束 (锁易主或内部退出)，重新竞争选主")
		}
	}
}

// watchTarget 把配置里的监听目标组装成 TraceConfig
func watchTarget(w config.WatchConfig) (tracer.TraceConfig, error) {
	if !common.IsHexAddress(w.Address) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: watch.address %q", errno.ErrConfig, w.Address)
	}
	if len(w.Args) != len(w.Inputs) {
		return tracer.TraceConfig{}, fmt.Errorf("%w: %d args for %d inputs", errno.ErrConfig, len(w.Args), len(w.Inputs))
	}

	args := make([]interface{}, 0, len(w.Args))
	for i, raw := range w.Args {
		v, err := chain.ParseArg(w.Inputs[i], raw)
		if err != nil {
			return tracer.TraceConfig{}, err
		}
		args = append(args, v)
	}

	return tracer.TraceConfig{
		Address: common.HexToAddress(w.Address),
		Method: chain.MethodSpec{
			Name:    w.Method,
			Inputs:  w.Inputs,
			Returns: w.Returns,
		},
		Args:   args,
		Events: w.Events,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
