package tracer

import (
	"github.com/shopspring/decimal"
)

// MinDeltaFilter 返回一个显著性过滤器：只有与上一个确认值的差的绝对值
// 达到 min 时才触发回调。prev 为 nil (无起始值) 时放行。
func MinDeltaFilter(min decimal.Decimal) func(prev, curr *SampleResult) bool {
	return func(prev, curr *SampleResult) bool {
		if prev == nil {
			return true
		}
		p, err := decimal.NewFromString(prev.Value)
		if err != nil {
			return true
		}
		c, err := decimal.NewFromString(curr.Value)
		if err != nil {
			return true
		}
		return c.Sub(p).Abs().GreaterThanOrEqual(min)
	}
}
