package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	QuestionPending   = "pending"
	QuestionCompleted = "completed"
)

// ChatMessage 会话中的一条消息，一旦创建不再修改
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// PendingQuestion 已提交、等待生成回答的问题
type PendingQuestion struct {
	ID         string        `json:"message_id"`
	Question   string        `json:"question"`
	History    []ChatMessage `json:"conversation_history"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"timestamp"`
	Answer     string        `json:"answer,omitempty"`
	AnsweredAt time.Time     `json:"answer_timestamp,omitempty"`
}
