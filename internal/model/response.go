package model

import "time"

type ChatQuestionResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type ChatAnswerResponse struct {
	MessageID string    `json:"message_id"`
	Answer    string    `json:"answer"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
