package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/internal/event"
	"state-tracer/internal/service/mq"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/errno"
	"state-tracer/pkg/logger"
	"state-tracer/pkg/utils/lock"
)

// 选主锁的 TTL, 续期间隔取其一半
const watchLockTTL = 30 * time.Second

// WatchService 把 watcher 的变化通知接到消息队列上：
// 每次确认的值变化发布一条 ValueChangedEvent (按合约地址分区保序)。
// 配置了分布式锁时先选主，同一 (合约, 方法) 全局只有一个实例在 watch。
type WatchService struct {
	watcher  *tracer.Watcher
	producer mq.Producer          // nil = 只回调不发布
	lock     lock.DistributedLock // nil = 单实例，不选主
	topic    string
}

func NewWatchService(reader chain.Reader, producer mq.Producer, topic string) *WatchService {
	return &WatchService{
		watcher:  tracer.NewWatcher(reader, logger.Log),
		producer: producer,
		topic:    topic,
	}
}

// WithLock 启用多实例选主
func (s *WatchService) WithLock(l lock.DistributedLock) *WatchService {
	s.lock = l
	return s
}

// Start 启动一次 watch。onChange 可以为 nil (只发布 MQ)。
func (s *WatchService) Start(ctx context.Context, cfg tracer.TraceConfig, onChange tracer.ChangeFunc, opts tracer.WatchOptions) (*tracer.Watch, error) {
	lockKey := fmt.Sprintf("watch:%s:%s", cfg.Address.Hex(), cfg.Method.Name)
	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx, lockKey, watchLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire watch lock %s: %w", lockKey, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", errno.ErrLockHeld, lockKey)
		}
	}

	wrapped := func(prev, curr *tracer.SampleResult) {
		if s.producer != nil {
			s.publish(ctx, cfg, prev, curr)
		}
		if onChange != nil {
			onChange(prev, curr)
		}
	}

	handle, err := s.watcher.Watch(ctx, cfg, wrapped, opts)
	if err != nil {
		if s.lock != nil {
			_ = s.lock.Release(context.Background(), lockKey)
		}
		return nil, err
	}
	if s.lock != nil {
		go s.keepLock(ctx, handle, lockKey)
	}
	return handle, nil
}

// keepLock 周期续期选主锁，watch 结束后释放。
// 续期失败说明锁已易主，此时主动停掉本实例的 watch。
func (s *WatchService) keepLock(ctx context.Context, handle *tracer.Watch, key string) {
	t := time.NewTicker(watchLockTTL / 2)
	defer t.Stop()
	for {
		select {
		case <-handle.Done():
			_ = s.lock.Release(context.Background(), key)
			return
		case <-t.C:
			ok, err := s.lock.Refresh(ctx, key, watchLockTTL)
			if err != nil {
				logger.Warn("watch lock refresh failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if !ok {
				logger.Error("watch lock lost, stopping watcher", zap.String("key", key))
				handle.Stop()
			}
		}
	}
}

func (s *WatchService) publish(ctx context.Context, cfg tracer.TraceConfig, prev, curr *tracer.SampleResult) {
	e := event.ValueChangedEvent{
		Address: cfg.Address.Hex(),
		Method:  cfg.Method.Name,
		Block:   curr.Block,
		Value:   curr.Value,
	}
	if prev != nil {
		e.PrevBlock = prev.Block
		e.PrevValue = prev.Value
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error("marshal change event failed", zap.Error(err))
		return
	}

	// 发布失败只记日志：MQ 故障不能影响 watcher 存活
	if err := s.producer.Publish(ctx, s.topic, e.Address, payload); err != nil {
		logger.Error("publish change event failed",
			zap.String("topic", s.topic),
			zap.String("address", e.Address),
			zap.Error(err))
	}
}
