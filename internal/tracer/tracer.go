package tracer

import (
	"context"

	"go.uber.org/zap"

	"state-tracer/internal/chain"
)

// Tracer 组合 Scanner 和 Sampler，产出完整的历史变化轨迹。
type Tracer struct {
	scanner *Scanner
	sampler *Sampler
}

func New(reader chain.Reader, log *zap.Logger) *Tracer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracer{
		scanner: NewScanner(reader, log),
		sampler: NewSampler(reader, log),
	}
}

// Trace scans the configured range for candidate blocks, then samples them.
func (t *Tracer) Trace(ctx context.Context, cfg TraceConfig, onProgress ProgressFunc) ([]SampleResult, error) {
	blocks, err := t.scanner.CollectBlockNumbers(ctx, cfg, onProgress)
	if err != nil {
		return nil, err
	}
	return t.sampler.Sample(ctx, cfg, blocks, onProgress)
}

// TraceBlocks samples a pre-computed block set, skipping the scan stage.
// 用于拿不同的读取参数重采样一组已经发现过的区块。
func (t *Tracer) TraceBlocks(ctx context.Context, cfg TraceConfig, blocks []uint64, onProgress ProgressFunc) ([]SampleResult, error) {
	return t.sampler.Sample(ctx, cfg, blocks, onProgress)
}

// CollectBlockNumbers exposes the scan stage on its own.
func (t *Tracer) CollectBlockNumbers(ctx context.Context, cfg TraceConfig, onProgress ProgressFunc) ([]uint64, error) {
	return t.scanner.CollectBlockNumbers(ctx, cfg, onProgress)
}
