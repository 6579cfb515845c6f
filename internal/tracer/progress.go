package tracer

// ProgressEvent 是一次阶段进度快照:
// 阶段开始时发一次，中间步骤可选，Current == Total 时恰好再发一次表示完成。
type ProgressEvent struct {
	Stage       string
	Description string
	Current     uint64
	Total       uint64
}

// ProgressFunc receives progress snapshots. A nil callback disables reporting.
type ProgressFunc func(ProgressEvent)

// Stage keys.
const (
	StageScan   = "scan"
	StageSample = "sample"
)

func (f ProgressFunc) emit(e ProgressEvent) {
	if f != nil {
		f(e)
	}
}
