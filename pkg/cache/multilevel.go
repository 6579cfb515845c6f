package cache

import (
	"context"
	"time"
)

// L1 的 TTL 压到 L2 的一半, 回写时再短一些, 控制本地过期数据的窗口
const (
	localTTLDivisor = 2
	backfillTTL     = time.Minute
)

// MultiLevelCache 两级缓存: L1 进程内存, L2 Redis。
// 扫描结果是不可变数据 (区间内的历史区块不会再变),
// 所以不需要失效广播, 靠 TTL 自然过期即可。
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{local: local, remote: remote}
}

// Set 写穿两级。L1 失败不影响结果, L2 的错误向上传。
func (m *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	_ = m.local.Set(ctx, key, value, ttl/localTTLDivisor)
	return m.remote.Set(ctx, key, value, ttl)
}

// Get 先查 L1, 未命中查 L2 并回写 L1。
func (m *MultiLevelCache) Get(ctx context.Context, key string, target interface{}) error {
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}

	if err := m.remote.Get(ctx, key, target); err != nil {
		return err
	}
	_ = m.local.Set(ctx, key, target, backfillTTL)
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	return m.remote.Delete(ctx, key)
}
