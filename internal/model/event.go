package model

// 流式回答事件类型。complete / error 为终止事件，每条流恰好出现一次且位于末尾
const (
	EventStatus   = "status"
	EventContent  = "content"
	EventChart    = "chart"
	EventError    = "error"
	EventComplete = "complete"
)

// StreamEvent 流式回答的单个事件；Data 为纯文本或 JSON 文本（chart 事件）
type StreamEvent struct {
	Type string `json:"type"`
	Data string `json:"data"`
}
