package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"mica-backend/internal/model"
	"mica-backend/pkg/logger"
)

const (
	completionMaxTries        = 5
	completionInitialInterval = 1 * time.Second
	completionMaxInterval     = 5 * time.Second
)

// CompletionClient 封装底层 ChatModel，负责拼装提示词与重试
type CompletionClient struct {
	chatModel einoModel.BaseChatModel
	retriever ContextRetriever
}

func NewCompletionClient(chatModel einoModel.BaseChatModel, retriever ContextRetriever) *CompletionClient {
	return &CompletionClient{chatModel: chatModel, retriever: retriever}
}

// prepareMessages 组装系统提示词（含数据上下文）与会话消息
func (c *CompletionClient) prepareMessages(messages []model.ChatMessage) []*schema.Message {
	system := systemPrompt

	// 末条用户消息决定注入的数据上下文
	if len(messages) > 0 && messages[len(messages)-1].Role == model.RoleUser && c.retriever != nil {
		dataContext := c.retriever.BuildDataContext(messages[len(messages)-1].Content)
		system += "\n\n## Current Data Context:\n" + dataContext
	}

	full := make([]*schema.Message, 0, len(messages)+1)
	full = append(full, schema.SystemMessage(system))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleAssistant:
			full = append(full, schema.AssistantMessage(msg.Content, nil))
		case model.RoleSystem:
			full = append(full, schema.SystemMessage(msg.Content))
		default:
			full = append(full, schema.UserMessage(msg.Content))
		}
	}

	return full
}

// Complete 单次补全，指数退避重试，最终错误包装为 ErrCompletion
func (c *CompletionClient) Complete(ctx context.Context, messages []model.ChatMessage) (string, error) {
	prepared := c.prepareMessages(messages)

	operation := func() (string, error) {
		resp, err := c.chatModel.Generate(ctx, prepared)
		if err != nil {
			logger.Warnf("Chat completion attempt failed: %v", err)
			return "", err
		}
		return resp.Content, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = completionInitialInterval
	bo.MaxInterval = completionMaxInterval

	answer, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(completionMaxTries),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}

	return answer, nil
}

// Stream 建立流式补全。返回的流不可重放，由调用方关闭。
func (c *CompletionClient) Stream(ctx context.Context, messages []model.ChatMessage) (*schema.StreamReader[*schema.Message], error) {
	prepared := c.prepareMessages(messages)

	stream, err := c.chatModel.Stream(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStream, err)
	}

	return stream, nil
}
