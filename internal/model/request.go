package model

type ChatQuestionRequest struct {
	Message             string        `json:"message" binding:"required"`
	ConversationHistory []ChatMessage `json:"conversation_history"`
}

type ChatAnswerRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

type WebSearchRequest struct {
	Input string `json:"input" binding:"required"`
}
