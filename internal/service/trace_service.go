package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/cache"
	"state-tracer/pkg/logger"
)

// TraceService 在核心 Tracer 之上加了一层区块扫描缓存：
// 同参数的扫描结果可复用，重采样时直接跳到 TraceBlocks。
type TraceService struct {
	tracer *tracer.Tracer
	cache  cache.Cache // nil = 不缓存
	ttl    time.Duration
}

func NewTraceService(reader chain.Reader, c cache.Cache, ttl time.Duration) *TraceService {
	return &TraceService{
		tracer: tracer.New(reader, logger.Log),
		cache:  c,
		ttl:    ttl,
	}
}

// Trace 产出完整历史轨迹，扫描阶段尽量走缓存
func (s *TraceService) Trace(ctx context.Context, cfg tracer.TraceConfig, onProgress tracer.ProgressFunc) ([]tracer.SampleResult, error) {
	blocks, err := s.Blocks(ctx, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	return s.tracer.TraceBlocks(ctx, cfg, blocks, onProgress)
}

// Blocks 返回候选区块号序列 (缓存命中时不触发任何 getLogs)
func (s *TraceService) Blocks(ctx context.Context, cfg tracer.TraceConfig, onProgress tracer.ProgressFunc) ([]uint64, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	key := cache.ScanKey(cfg.Address.Hex(), cfg.Events, cfg.FromBlock, cfg.ToBlock, cfg.LogQuerySpan)

	if s.cache != nil {
		var cached []uint64
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			logger.Debug("block scan cache hit", zap.String("key", key), zap.Int("blocks", len(cached)))
			return cached, nil
		}
	}

	blocks, err := s.tracer.CollectBlockNumbers(ctx, cfg, onProgress)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, blocks, s.ttl); err != nil {
			logger.Warn("block scan cache write failed", zap.Error(err))
		}
	}
	return blocks, nil
}
