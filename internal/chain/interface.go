// Package chain defines the minimal RPC surface the tracer consumes.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader 是追踪器依赖的链上读取能力
// *ethclient.Client 直接满足该接口；测试中可注入 fake 实现。
// 注意: 链上数值禁止用 float，边界处统一用 string / big.Int。
type Reader interface {
	// BlockNumber returns the current head block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs fetches logs matching the query over an inclusive block range.
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)

	// SubscribeFilterLogs establishes a push-based subscription for new logs.
	// Delivery order is not guaranteed; callers sort by block number.
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)

	// CallContract executes a read-only call pinned to the given block
	// (nil = latest).
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Dial 连接一个以太坊节点 (HTTP 或 WebSocket URL)
func Dial(rawURL string) (*ethclient.Client, error) {
	return ethclient.Dial(rawURL)
}
