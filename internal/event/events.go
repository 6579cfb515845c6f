package event

// ValueChangedEvent 变量值变化事件
// Topic: tracer_events_change
type ValueChangedEvent struct {
	Address   string `json:"address"`
	Method    string `json:"method"`
	Block     string `json:"block"`      // Decimal string
	Value     string `json:"value"`      // Decimal string
	PrevBlock string `json:"prev_block"` // 空 = 无起始值
	PrevValue string `json:"prev_value"`
}
