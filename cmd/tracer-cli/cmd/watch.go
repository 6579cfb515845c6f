package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"state-tracer/internal/chain"
	"state-tracer/internal/service"
	"state-tracer/internal/service/mq"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/logger"
)

var (
	flagMinDelta     string
	flagMaxRetries   int
	flagMQ           string
	flagTopic        string
	flagKafkaBrokers []string
	flagRedisAddr    string
)

// watchCmd 对应实时监听模式
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "实时监听变量变化，Ctrl+C 退出",
	Long: `通过 WebSocket 订阅目标合约的事件日志，每条日志处重新读取变量值，
与最近一次确认值不同时打印变化。读取失败自动重试，订阅断开自动重连。
指定 --mq 时，每个变化同时作为 ValueChangedEvent 发布到消息队列
(kafka = Kafka topic, redis = Redis Stream)。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromFlags()
		if err != nil {
			return err
		}
		logger.Init("development")
		defer logger.Sync()

		client, err := chain.Dial(flagWs)
		if err != nil {
			return fmt.Errorf("连接 WebSocket 节点失败: %w", err)
		}
		defer client.Close()

		var producer mq.Producer
		switch flagMQ {
		case "":
			// 不发布, 只打印
		case "kafka":
			kp := mq.NewKafkaProducer(flagKafkaBrokers, flagTopic)
			defer kp.Close()
			producer = kp
		case "redis":
			producer = mq.NewRedisProducer(redis.NewClient(&redis.Options{Addr: flagRedisAddr}))
		default:
			return fmt.Errorf("未知的 --mq 类型 %q (kafka / redis)", flagMQ)
		}

		opts := tracer.WatchOptions{
			MaxRetries: flagMaxRetries,
			OnError: func(err error) {
				fmt.Printf("[error] %v\n", err)
			},
			OnReconnect: func() {
				fmt.Println("[reconnected]")
			},
		}
		if flagMinDelta != "" {
			min, err := decimal.NewFromString(flagMinDelta)
			if err != nil {
				return fmt.Errorf("无法解析 --min-delta %q: %w", flagMinDelta, err)
			}
			opts.Filter = tracer.MinDeltaFilter(min)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc := service.NewWatchService(client, producer, flagTopic)
		handle, err := svc.Start(ctx, cfg, func(prev, curr *tracer.SampleResult) {
			if prev == nil {
				fmt.Printf("block %s: %s\n", curr.Block, curr.Value)
				return
			}
			fmt.Printf("block %s: %s -> %s\n", curr.Block, prev.Value, curr.Value)
		}, opts)
		if err != nil {
			return err
		}

		fmt.Printf("监听 %s.%s 中，Ctrl+C 退出\n", cfg.Address.Hex(), cfg.Method.Name)
		<-ctx.Done()
		handle.Stop()
		<-handle.Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagMinDelta, "min-delta", "", "显著性阈值: 与上一确认值差的绝对值小于该值时不打印")
	watchCmd.Flags().IntVar(&flagMaxRetries, "retries", 0, "单次取值的最大尝试次数 (0 = 默认 3)")
	watchCmd.Flags().StringVar(&flagMQ, "mq", "", "变化事件发布目标: kafka / redis, 空 = 不发布")
	watchCmd.Flags().StringVar(&flagTopic, "topic", "tracer_events_change", "变化事件主题 / Stream 名")
	watchCmd.Flags().StringSliceVar(&flagKafkaBrokers, "kafka-brokers", []string{"localhost:9092"}, "Kafka 节点列表")
	watchCmd.Flags().StringVar(&flagRedisAddr, "redis-addr", "localhost:6379", "Redis 地址 (--mq=redis 时使用)")
	rootCmd.AddCommand(watchCmd)
}
