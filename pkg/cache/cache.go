package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMiss 表示键不存在或已过期, 各实现统一返回该值
var ErrMiss = errors.New("cache miss")

// Cache 定义通用缓存接口
type Cache interface {
	// Set 设置缓存
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get 获取缓存，并将结果 Unmarshal 到 target 中
	Get(ctx context.Context, key string, target interface{}) error
	// Delete 删除缓存
	Delete(ctx context.Context, key string) error
}

// ScanKey 为一次区块扫描生成缓存键。
// 同样的 (地址, 事件集合, 区间, 步长) 必然产出同样的区块号集合，
// 缓存命中时可跳过扫描阶段，直接用不同读取参数重采样。
func ScanKey(address string, events []string, fromBlock, toBlock, span uint64) string {
	h := sha256.Sum256([]byte(strings.Join(events, "|")))
	return fmt.Sprintf("tracer:scan:%s:%s:%d:%d:%d",
		strings.ToLower(address), hex.EncodeToString(h[:8]), fromBlock, toBlock, span)
}
