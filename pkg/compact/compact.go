// Package compact collapses runs of equal elements in an ordered sequence.
package compact

// Dedupe returns a new slice that keeps the first element and then every
// element the predicate reports as NOT equal to its immediate predecessor
// in the INPUT. 比较对象是输入序列里的前一个元素，不是输出里保留的那一个；
// 所以只有在输入中紧邻的重复才会被折叠，非相邻的重复会保留。
// The input is never mutated.
func Dedupe[T any](items []T, eq func(a, b T) bool) []T {
	out := make([]T, 0, len(items))
	if len(items) == 0 {
		return out
	}

	out = append(out, items[0])
	for i := 1; i < len(items); i++ {
		if !eq(items[i-1], items[i]) {
			out = append(out, items[i])
		}
	}
	return out
}
