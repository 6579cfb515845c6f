package tracer

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/pkg/monitor"
)

// Scanner 在 [fromBlock, toBlock) 上分段驱动 getLogs，
// 把命中的区块号去重后按数值升序返回。
type Scanner struct {
	reader chain.Reader
	log    *zap.Logger
}

func NewScanner(reader chain.Reader, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{reader: reader, log: log}
}

// CollectBlockNumbers walks the configured range in LogQuerySpan strides and
// collects the block numbers of every matching log.
// 子查询失败直接向上传播，不在这一层做部分重试 (重试策略属于 Reader 或调用方)。
func (s *Scanner) CollectBlockNumbers(ctx context.Context, cfg TraceConfig, onProgress ProgressFunc) ([]uint64, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.validateRange(); err != nil {
		return nil, err
	}

	start := time.Now()
	topics := chain.EventTopics(cfg.Events)
	total := cfg.ToBlock - cfg.FromBlock
	seen := make(map[uint64]struct{})

	for cursor := cfg.FromBlock; cursor < cfg.ToBlock; cursor += cfg.LogQuerySpan {
		upper := cursor + cfg.LogQuerySpan
		if upper > cfg.ToBlock {
			upper = cfg.ToBlock
		}

		onProgress.emit(ProgressEvent{
			Stage:       StageScan,
			Description: "scanning event logs",
			Current:     cursor - cfg.FromBlock,
			Total:       total,
		})

		// getLogs 是闭区间查询，上界取 upper-1 保持整体半开语义
		q := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(cursor),
			ToBlock:   new(big.Int).SetUint64(upper - 1),
			Addresses: []common.Address{cfg.Address},
			Topics:    [][]common.Hash{topics},
		}

		logs, err := s.reader.FilterLogs(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("getLogs [%d,%d): %w", cursor, upper, err)
		}
		if monitor.Tracer != nil {
			monitor.Tracer.LogQueriesTotal.Inc()
		}

		// 同一区块多个事件会产生重复区块号，集合去重
		for _, lg := range logs {
			seen[lg.BlockNumber] = struct{}{}
		}
	}

	blocks := make([]uint64, 0, len(seen))
	for bn := range seen {
		blocks = append(blocks, bn)
	}
	slices.Sort(blocks)

	onProgress.emit(ProgressEvent{
		Stage:       StageScan,
		Description: "scanning event logs",
		Current:     total,
		Total:       total,
	})

	if monitor.Tracer != nil {
		monitor.Tracer.ScanDuration.Observe(time.Since(start).Seconds())
	}
	s.log.Debug("block scan complete",
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("candidates", len(blocks)))

	return blocks, nil
}
