// Package tracer determines the value of one contract state variable at the
// blocks where it could plausibly have changed, either retrospectively over
// a block range or live via a log subscription.
package tracer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"state-tracer/internal/chain"
	"state-tracer/pkg/errno"
)

const (
	// DefaultLogQuerySpan 每次 getLogs 子查询的最大区块跨度
	DefaultLogQuerySpan = 500
	// DefaultReadBatchSize 每批并发状态读取的上限
	DefaultReadBatchSize = 10
)

// TraceConfig 描述一次追踪任务，创建后不再修改。
// 区块范围是半开区间 [FromBlock, ToBlock)。
type TraceConfig struct {
	Address common.Address
	Method  chain.MethodSpec
	Args    []interface{}
	Events  []string // 可能触发变化的事件签名集合

	FromBlock uint64
	ToBlock   uint64

	LogQuerySpan  uint64 // 0 = DefaultLogQuerySpan
	ReadBatchSize int    // 0 = DefaultReadBatchSize
	DisableDedupe bool   // 默认开启相邻去重
}

// Normalize applies defaults and validates the non-range fields.
// Range validation is separate because watch mode has no range.
func (c *TraceConfig) Normalize() error {
	if c.Address == (common.Address{}) {
		return fmt.Errorf("%w: missing target address", errno.ErrConfig)
	}
	if c.Method.Name == "" {
		return fmt.Errorf("%w: missing read method", errno.ErrConfig)
	}
	if len(c.Events) == 0 {
		return fmt.Errorf("%w: at least one event signature is required", errno.ErrConfig)
	}

	if c.LogQuerySpan == 0 {
		c.LogQuerySpan = DefaultLogQuerySpan
	}
	if c.ReadBatchSize == 0 {
		c.ReadBatchSize = DefaultReadBatchSize
	}
	if c.ReadBatchSize < 0 {
		return fmt.Errorf("%w: read batch size must be positive", errno.ErrConfig)
	}
	return nil
}

// validateRange 历史模式要求 fromBlock < toBlock，在第一次查询前校验
func (c *TraceConfig) validateRange() error {
	if c.FromBlock >= c.ToBlock {
		return fmt.Errorf("%w: fromBlock %d must be below toBlock %d", errno.ErrConfig, c.FromBlock, c.ToBlock)
	}
	return nil
}

// SampleResult 是一对十进制字符串 (区块号, 变量值)。
// 数值可能超出原生整型精度，所以边界处统一用字符串。
type SampleResult struct {
	Block string `json:"block"`
	Value string `json:"value"`
}

// errValue marks a failed read. Sentinel rows are filtered before any
// result leaves this package.
const errValue = "ERROR"
