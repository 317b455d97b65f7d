package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mica-backend/internal/model"
	"mica-backend/internal/service"
	"mica-backend/internal/storage"
	"mica-backend/internal/utils"
	"mica-backend/pkg/logger"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// SubmitQuestion 登记问题，返回用于取答案的消息 ID
func (h *ChatHandler) SubmitQuestion(c *gin.Context) {
	var req model.ChatQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	messageID, err := h.chatService.ProcessQuestion(req.Message, req.ConversationHistory)
	if err != nil {
		logger.Errorf("Failed to process question: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ChatQuestionResponse{
		MessageID: messageID,
		Status:    "received",
		Message:   "Question received successfully",
	})
}

// GetAnswer 为已登记的问题生成完整答案
func (h *ChatHandler) GetAnswer(c *gin.Context) {
	var req model.ChatAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.chatService.GenerateAnswer(c.Request.Context(), req.MessageID)
	if err != nil {
		if errors.Is(err, storage.ErrQuestionNotFound) {
			logger.Warnf("Answer requested for unknown question: %s", req.MessageID)
		} else {
			logger.Errorf("Failed to generate answer for %s: %v", req.MessageID, err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.ChatAnswerResponse{
		MessageID: req.MessageID,
		Answer:    answer,
		Status:    "completed",
		Timestamp: time.Now(),
	})
}

// StreamAnswer SSE 推送流式答案，末帧固定为 end 标记
func (h *ChatHandler) StreamAnswer(c *gin.Context) {
	var req model.ChatAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sseWriter := utils.NewSSEWriter(c.Writer)

	events, err := h.chatService.GenerateAnswerStream(c.Request.Context(), req.MessageID)
	if err != nil {
		logger.Errorf("Failed to start answer stream for %s: %v", req.MessageID, err)
		data, _ := json.Marshal(model.StreamEvent{Type: model.EventError, Data: err.Error()})
		sseWriter.Write(string(data))
		sseWriter.Close()
		return
	}

	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("Failed to marshal stream event: %v", err)
			continue
		}

		if err := sseWriter.Write(string(data)); err != nil {
			logger.Warnf("SSE write failed, client likely disconnected: %v", err)
			return
		}
	}

	sseWriter.Close()
}

// Health 健康检查
func (h *ChatHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{
		Status:  "healthy",
		Service: "chat-api",
	})
}
