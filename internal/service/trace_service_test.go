package service

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"state-tracer/internal/chain"
	"state-tracer/internal/tracer"
	"state-tracer/pkg/cache"
)

// stubReader 只覆盖 TraceService 用到的查询路径
type stubReader struct {
	mu          sync.Mutex
	logBlocks   []uint64
	values      map[uint64]int64
	filterCalls int
}

func (r *stubReader) BlockNumber(ctx context.Context) (uint64, error) { return 0, nil }

func (r *stubReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filterCalls++

	var logs []types.Log
	for _, bn := range r.logBlocks {
		if bn >= q.FromBlock.Uint64() && bn <= q.ToBlock.Uint64() {
			logs = append(logs, types.Log{BlockNumber: bn})
		}
	}
	return logs, nil
}

func (r *stubReader) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	panic("not used")
}

func (r *stubReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return common.LeftPadBytes(big.NewInt(r.values[blockNumber.Uint64()]).Bytes(), 32), nil
}

func stubConfig() tracer.TraceConfig {
	return tracer.TraceConfig{
		Address:   common.HexToAddress("0x40ceeEdE9fA9ee09e594aFFb63CFc4994aF5B14e"),
		Method:    chain.MethodSpec{Name: "totalSupply", Returns: "uint256"},
		Events:    []string{"Transfer(address,address,uint256)"},
		FromBlock: 0,
		ToBlock:   100,
	}
}

func TestTraceService_ScanCache(t *testing.T) {
	reader := &stubReader{
		logBlocks: []uint64{10, 20},
		values:    map[uint64]int64{10: 1, 20: 2},
	}
	svc := NewTraceService(reader, cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	rows, err := svc.Trace(context.Background(), stubConfig(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, reader.filterCalls)

	// 第二次同参数追踪：扫描阶段命中缓存，不再发起 getLogs
	rows, err = svc.Trace(context.Background(), stubConfig(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, reader.filterCalls)
}

func TestTraceService_NoCache(t *testing.T) {
	reader := &stubReader{
		logBlocks: []uint64{10},
		values:    map[uint64]int64{10: 1},
	}
	svc := NewTraceService(reader, nil, 0)

	_, err := svc.Trace(context.Background(), stubConfig(), nil)
	require.NoError(t, err)
	_, err = svc.Trace(context.Background(), stubConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.filterCalls)
}
