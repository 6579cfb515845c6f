package chunk

import (
	"state-tracer/pkg/errno"
)

// Split 把一个切片按固定大小 k 切分成若干组
// 除最后一组外每组长度都是 k，最后一组保留余数 (长度在 [1,k] 之间)。
// 所有分组按原顺序拼接可无损还原输入。
func Split[T any](items []T, k int) ([][]T, error) {
	if k <= 0 {
		return nil, errno.ErrInvalidArgument
	}

	chunks := make([][]T, 0, (len(items)+k-1)/k)
	for start := 0; start < len(items); start += k {
		end := start + k
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks, nil
}
