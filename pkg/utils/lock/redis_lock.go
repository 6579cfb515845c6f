package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistributedLock 定义分布式锁接口
// 多实例部署时用来选主: 同一个 (合约, 方法) 只允许一个实例持有 watch。
type DistributedLock interface {
	// Acquire 尝试获取锁
	// key: 锁的唯一标识
	// ttl: 锁的过期时间
	// 返回: (是否成功, error)
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Refresh 续期持有中的锁, 归属校验通过才延长 TTL
	Refresh(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release 释放锁, 只删除属于自己的 Key
	Release(ctx context.Context, key string) error
}

// 归属校验必须和写入原子完成, 用 Lua 实现
var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// RedisLock 基于 Redis SETNX 的实现
type RedisLock struct {
	client *redis.Client
	owner  string // 实例标识, 防止误删/误续他人的锁
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{
		client: client,
		owner:  uuid.NewString(),
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	// SET key owner NX PX ttl
	return l.client.SetNX(ctx, "lock:"+key, l.owner, ttl).Result()
}

func (l *RedisLock) Refresh(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client, []string{"lock:" + key}, l.owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, l.client, []string{"lock:" + key}, l.owner).Err()
}
