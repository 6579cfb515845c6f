package tracer

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"state-tracer/internal/chain"
)

var errRead = errors.New("read failed")

func testMethod() chain.MethodSpec {
	return chain.MethodSpec{Name: "totalSupply", Returns: "uint256"}
}

// fakeReader 实现 chain.Reader，在内存中模拟日志查询、状态读取和订阅
type fakeReader struct {
	mu sync.Mutex

	head      uint64
	logBlocks []uint64         // 含匹配日志的区块号 (允许重复，模拟同块多事件)
	values    map[uint64]int64 // 区块号 → 变量值
	failReads map[uint64]int   // 区块号 → 成功前还要失败几次 (-1 = 永远失败)
	readCount map[uint64]int   // 区块号 → 实际读取次数

	filterErr error       // FilterLogs 固定返回的错误
	queries   [][2]uint64 // 记录每次 FilterLogs 的 [from, to]

	subErrs []error       // 依次消耗的 SubscribeFilterLogs 建立错误
	subCh   chan *fakeSub // 每建立一个订阅就送出句柄
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		values:    make(map[uint64]int64),
		failReads: make(map[uint64]int),
		readCount: make(map[uint64]int),
		subCh:     make(chan *fakeSub, 8),
	}
}

func (f *fakeReader) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.head, nil
}

func (f *fakeReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.filterErr != nil {
		return nil, f.filterErr
	}

	from := q.FromBlock.Uint64()
	to := q.ToBlock.Uint64()
	f.queries = append(f.queries, [2]uint64{from, to})

	var logs []types.Log
	for _, bn := range f.logBlocks {
		if bn >= from && bn <= to {
			logs = append(logs, types.Log{BlockNumber: bn})
		}
	}
	return logs, nil
}

func (f *fakeReader) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bn := blockNumber.Uint64()
	f.readCount[bn]++

	if left, ok := f.failReads[bn]; ok {
		if left < 0 {
			return nil, errRead
		}
		if left > 0 {
			f.failReads[bn] = left - 1
			return nil, errRead
		}
	}

	return common.LeftPadBytes(big.NewInt(f.values[bn]).Bytes(), 32), nil
}

func (f *fakeReader) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	if len(f.subErrs) > 0 {
		err := f.subErrs[0]
		f.subErrs = f.subErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	f.mu.Unlock()

	sub := &fakeSub{sink: ch, errCh: make(chan error, 1)}
	f.subCh <- sub
	return sub, nil
}

func (f *fakeReader) reads(bn uint64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCount[bn]
}

// fakeSub 实现 ethereum.Subscription
type fakeSub struct {
	sink  chan<- types.Log
	errCh chan error

	once sync.Once
}

func (s *fakeSub) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *fakeSub) Err() <-chan error { return s.errCh }

func (s *fakeSub) push(blocks ...uint64) {
	for _, bn := range blocks {
		s.sink <- types.Log{BlockNumber: bn}
	}
}

func (s *fakeSub) fail(err error) { s.errCh <- err }
