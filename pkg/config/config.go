package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Chain ChainConfig `mapstructure:"chain"`
	Trace TraceConfig `mapstructure:"trace"`
	Watch WatchConfig `mapstructure:"watch"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
}

type ChainConfig struct {
	RpcUrl string `mapstructure:"rpc_url"` // HTTP endpoint，用于 getLogs / eth_call
	WsUrl  string `mapstructure:"ws_url"`  // WebSocket endpoint，用于实时订阅
}

type TraceConfig struct {
	LogQuerySpan  uint64 `mapstructure:"log_query_span"`  // 每次 getLogs 的最大区块跨度
	ReadBatchSize int    `mapstructure:"read_batch_size"` // 并发状态读取的批大小
	CacheTTLMin   int    `mapstructure:"cache_ttl_min"`   // 区块扫描结果缓存时长 (分钟), 0 = 不缓存
}

// WatchConfig 描述 watcher 守护进程的监听目标 (tracer-watcher 用)
type WatchConfig struct {
	Address    string   `mapstructure:"address"`
	Method     string   `mapstructure:"method"`
	Inputs     []string `mapstructure:"inputs"`
	Returns    string   `mapstructure:"returns"`
	Args       []string `mapstructure:"args"`
	Events     []string `mapstructure:"events"`
	MinDelta   string   `mapstructure:"min_delta"`   // 空 = 不过滤
	MaxRetries int      `mapstructure:"max_retries"` // 0 = 默认 3
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	MQType   string `mapstructure:"mq_type"` // "redis" or "kafka"
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	// 环境变量设置
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			// Config file was found but another error was produced
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")

	viper.SetDefault("chain.rpc_url", "http://localhost:8545")
	viper.SetDefault("chain.ws_url", "ws://localhost:8546")

	viper.SetDefault("trace.log_query_span", 500)
	viper.SetDefault("trace.read_batch_size", 10)
	viper.SetDefault("trace.cache_ttl_min", 0)

	viper.SetDefault("watch.returns", "uint256")

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.mq_type", "redis")

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "tracer_events_change")
}
