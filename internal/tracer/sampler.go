package tracer

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"state-tracer/internal/chain"
	"state-tracer/pkg/chunk"
	"state-tracer/pkg/compact"
	"state-tracer/pkg/monitor"
)

// Sampler 对一串候选区块发起分批并发的状态读取。
// 批内并发、批间严格串行：第 i+1 批必须等第 i 批全部结束才开始，
// 这样既限制了对节点的突发压力，又保证结果天然按区块升序。
type Sampler struct {
	reader chain.Reader
	log    *zap.Logger
}

func NewSampler(reader chain.Reader, log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sampler{reader: reader, log: log}
}

// Sample reads the variable at every candidate block and compacts the result.
// 单个区块读取失败只会丢掉那一行 (带告警日志)，绝不影响同批其他读取。
func (s *Sampler) Sample(ctx context.Context, cfg TraceConfig, blocks []uint64, onProgress ProgressFunc) ([]SampleResult, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	// 方法描述符解析一次，失败在任何读取发生前就返回
	method, err := cfg.Method.Resolve()
	if err != nil {
		return nil, err
	}
	callData, err := method.Pack(cfg.Args...)
	if err != nil {
		return nil, err
	}

	batches, err := chunk.Split(blocks, cfg.ReadBatchSize)
	if err != nil {
		return nil, err
	}

	total := uint64(len(blocks))
	results := make([]SampleResult, 0, len(blocks))

	for bi, batch := range batches {
		onProgress.emit(ProgressEvent{
			Stage:       StageSample,
			Description: "sampling state",
			Current:     uint64(bi * cfg.ReadBatchSize),
			Total:       total,
		})

		batchResults := make([]SampleResult, len(batch))
		var wg sync.WaitGroup
		for i, bn := range batch {
			wg.Add(1)
			go func(i int, bn uint64) {
				defer wg.Done()
				batchResults[i] = s.readAt(ctx, cfg.Address, method, callData, bn)
			}(i, bn)
		}
		wg.Wait()

		results = append(results, batchResults...)
	}

	onProgress.emit(ProgressEvent{
		Stage:       StageSample,
		Description: "sampling state",
		Current:     total,
		Total:       total,
	})

	// 哨兵行在返回前过滤，调用方永远看不到 "ERROR"
	kept := make([]SampleResult, 0, len(results))
	for _, r := range results {
		if r.Value != errValue {
			kept = append(kept, r)
		}
	}

	if cfg.DisableDedupe {
		return kept, nil
	}
	return compact.Dedupe(kept, func(a, b SampleResult) bool { return a.Value == b.Value }), nil
}

func (s *Sampler) readAt(ctx context.Context, addr common.Address, method *chain.Method, callData []byte, bn uint64) SampleResult {
	block := strconv.FormatUint(bn, 10)

	out, err := s.reader.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: callData}, new(big.Int).SetUint64(bn))
	if err == nil {
		var v *big.Int
		if v, err = method.UnpackValue(out); err == nil {
			if monitor.Tracer != nil {
				monitor.Tracer.StateReadsTotal.WithLabelValues("ok").Inc()
			}
			return SampleResult{Block: block, Value: decimal.NewFromBigInt(v, 0).String()}
		}
	}

	if monitor.Tracer != nil {
		monitor.Tracer.StateReadsTotal.WithLabelValues("error").Inc()
	}
	s.log.Warn("state read failed, dropping block",
		zap.Uint64("block", bn),
		zap.Error(err))
	return SampleResult{Block: block, Value: errValue}
}
