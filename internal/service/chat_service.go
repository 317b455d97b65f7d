package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mica-backend/internal/model"
	"mica-backend/internal/storage"
	"mica-backend/pkg/logger"
)

// ChatService 问答编排：登记问题、调用补全、落库答案
type ChatService struct {
	store      storage.QuestionStore
	completion *CompletionClient
	demuxer    *StreamDemuxer

	ttl             time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
}

func NewChatService(store storage.QuestionStore, completion *CompletionClient, demuxer *StreamDemuxer, ttl, cleanupInterval time.Duration) *ChatService {
	s := &ChatService{
		store:           store,
		completion:      completion,
		demuxer:         demuxer,
		ttl:             ttl,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if ttl > 0 && cleanupInterval > 0 {
		go s.cleanupExpiredQuestions()
	}

	return s
}

// Close 停止后台清理并关闭存储
func (s *ChatService) Close() error {
	close(s.stopCleanup)
	return s.store.Close()
}

// ProcessQuestion 登记问题及其会话历史，返回查询用的消息 ID
func (s *ChatService) ProcessQuestion(message string, history []model.ChatMessage) (string, error) {
	id, err := s.store.Create(message, history)
	if err != nil {
		return "", fmt.Errorf("failed to store question: %w", err)
	}

	logger.Infof("Question registered: %s", id)
	return id, nil
}

// buildMessages 会话历史加上作为末条用户消息的原问题
func buildMessages(q *model.PendingQuestion) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(q.History)+1)
	messages = append(messages, q.History...)
	messages = append(messages, model.ChatMessage{Role: model.RoleUser, Content: q.Question})
	return messages
}

// GenerateAnswer 单次生成答案并落库
func (s *ChatService) GenerateAnswer(ctx context.Context, id string) (string, error) {
	question, err := s.store.Get(id)
	if err != nil {
		return "", err
	}

	answer, err := s.completion.Complete(ctx, buildMessages(question))
	if err != nil {
		return "", err
	}

	if err := s.store.Finalize(id, answer); err != nil {
		return "", fmt.Errorf("failed to finalize answer: %w", err)
	}

	logger.Infof("Answer generated for question %s (%d bytes)", id, len(answer))
	return answer, nil
}

// GenerateAnswerStream 流式生成答案。内容事件边转发边累积，
// 收到 complete 才落库；出错时问题保持 pending。
func (s *ChatService) GenerateAnswerStream(ctx context.Context, id string) (<-chan model.StreamEvent, error) {
	question, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	stream, err := s.completion.Stream(ctx, buildMessages(question))
	if err != nil {
		return nil, err
	}

	events := s.demuxer.Demux(ctx, NewTokenStream(stream))
	out := make(chan model.StreamEvent)

	go func() {
		defer close(out)

		var answer strings.Builder
		for ev := range events {
			switch ev.Type {
			case model.EventContent:
				answer.WriteString(ev.Data)
			case model.EventComplete:
				if err := s.store.Finalize(id, answer.String()); err != nil {
					logger.Errorf("Failed to finalize streamed answer %s: %v", id, err)
				} else {
					logger.Infof("Streamed answer finalized for question %s (%d bytes)", id, answer.Len())
				}
			case model.EventError:
				logger.Errorf("Stream for question %s ended with error: %s", id, ev.Data)
			}

			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *ChatService) cleanupExpiredQuestions() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-s.ttl)
			if n := s.store.DeleteExpired(cutoff); n > 0 {
				logger.Infof("Cleaned up %d expired questions", n)
			}
		case <-s.stopCleanup:
			return
		}
	}
}
