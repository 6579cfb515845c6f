package request

// MethodSpecRequest 只读方法描述符
type MethodSpecRequest struct {
	Name    string   `json:"name" binding:"required"`
	Inputs  []string `json:"inputs"`
	Returns string   `json:"returns" binding:"required"`
}

// TraceRequest 历史追踪请求
// 区块范围是半开区间 [from_block, to_block)
type TraceRequest struct {
	Address string            `json:"address" binding:"required"`
	Method  MethodSpecRequest `json:"method" binding:"required"`
	Args    []string          `json:"args"` // 按 method.inputs 顺序的字符串参数
	Events  []string          `json:"events" binding:"required"`

	FromBlock uint64 `json:"from_block"`
	ToBlock   uint64 `json:"to_block" binding:"required"`

	LogQuerySpan  uint64 `json:"log_query_span"`  // 0 = 默认 500
	ReadBatchSize int    `json:"read_batch_size"` // 0 = 默认 10
	DisableDedupe bool   `json:"disable_dedupe"`
}
