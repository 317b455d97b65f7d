package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica-backend/internal/model"
	"mica-backend/internal/storage"
)

// stubChatModel 固定应答的对话模型
type stubChatModel struct {
	response  string
	fragments []string
	streamErr error

	lastInput []*schema.Message
}

func (m *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	m.lastInput = input
	return schema.AssistantMessage(m.response, nil), nil
}

func (m *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	m.lastInput = input

	if m.streamErr != nil {
		sr, sw := schema.Pipe[*schema.Message](1)
		sw.Send(nil, m.streamErr)
		sw.Close()
		return sr, nil
	}

	msgs := make([]*schema.Message, len(m.fragments))
	for i, frag := range m.fragments {
		msgs[i] = schema.AssistantMessage(frag, nil)
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type stubRetriever struct {
	context string
}

func (r *stubRetriever) BuildDataContext(string) string {
	return r.context
}

func newTestService(m *stubChatModel) (*ChatService, *storage.MemoryQuestionStore) {
	store := storage.NewMemoryQuestionStore()
	completion := NewCompletionClient(m, &stubRetriever{context: "CTX"})
	return NewChatService(store, completion, NewStreamDemuxer(0), 0, 0), store
}

func TestProcessQuestionAndGenerateAnswer(t *testing.T) {
	chatModel := &stubChatModel{response: "The market is growing."}
	svc, store := newTestService(chatModel)
	defer svc.Close()

	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
	}

	id, err := svc.ProcessQuestion("How big is the fridge market?", history)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	answer, err := svc.GenerateAnswer(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "The market is growing.", answer)

	stored, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionCompleted, stored.Status)
	assert.Equal(t, "The market is growing.", stored.Answer)
	assert.False(t, stored.AnsweredAt.Before(stored.CreatedAt))

	// 发给模型的消息：系统提示词 + 历史 + 问题作为末条用户消息
	require.Len(t, chatModel.lastInput, 4)
	assert.Equal(t, schema.System, chatModel.lastInput[0].Role)
	assert.Equal(t, "How big is the fridge market?", chatModel.lastInput[3].Content)
}

func TestGenerateAnswerUnknownID(t *testing.T) {
	svc, _ := newTestService(&stubChatModel{response: "x"})
	defer svc.Close()

	_, err := svc.GenerateAnswer(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrQuestionNotFound)
}

func TestProcessQuestionRejectsBlank(t *testing.T) {
	svc, _ := newTestService(&stubChatModel{})
	defer svc.Close()

	_, err := svc.ProcessQuestion("   ", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuestion)
}

func TestGenerateAnswerStreamFinalizes(t *testing.T) {
	chatModel := &stubChatModel{fragments: []string{"Hello ", "world"}}
	svc, store := newTestService(chatModel)
	defer svc.Close()

	id, err := svc.ProcessQuestion("question", nil)
	require.NoError(t, err)

	events, err := svc.GenerateAnswerStream(context.Background(), id)
	require.NoError(t, err)

	var collected []model.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	require.NotEmpty(t, collected)
	assert.Equal(t, model.EventComplete, collected[len(collected)-1].Type)
	assert.Equal(t, "Hello world", contentOf(collected))

	stored, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionCompleted, stored.Status)
	assert.Equal(t, "Hello world", stored.Answer)
}

func TestGenerateAnswerStreamErrorLeavesPending(t *testing.T) {
	chatModel := &stubChatModel{streamErr: errors.New("provider down")}
	svc, store := newTestService(chatModel)
	defer svc.Close()

	id, err := svc.ProcessQuestion("question", nil)
	require.NoError(t, err)

	events, err := svc.GenerateAnswerStream(context.Background(), id)
	require.NoError(t, err)

	var collected []model.StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	require.NotEmpty(t, collected)
	last := collected[len(collected)-1]
	assert.Equal(t, model.EventError, last.Type)
	assert.Contains(t, last.Data, "provider down")

	// 出错不落库，问题保持待答
	stored, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionPending, stored.Status)
	assert.Empty(t, stored.Answer)
}

func TestGenerateAnswerStreamUnknownID(t *testing.T) {
	svc, _ := newTestService(&stubChatModel{})
	defer svc.Close()

	_, err := svc.GenerateAnswerStream(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrQuestionNotFound)
}

func TestPrepareMessagesInjectsContext(t *testing.T) {
	client := NewCompletionClient(&stubChatModel{}, &stubRetriever{context: "CTX"})

	messages := []model.ChatMessage{
		{Role: model.RoleUser, Content: "older"},
		{Role: model.RoleAssistant, Content: "reply"},
		{Role: model.RoleUser, Content: "latest question"},
	}

	prepared := client.prepareMessages(messages)
	require.Len(t, prepared, 4)

	system := prepared[0]
	assert.Equal(t, schema.System, system.Role)
	assert.Contains(t, system.Content, "## Current Data Context:")
	assert.Contains(t, system.Content, "CTX")
	assert.True(t, strings.Contains(system.Content, "chartConfig"))

	assert.Equal(t, schema.User, prepared[1].Role)
	assert.Equal(t, schema.Assistant, prepared[2].Role)
	assert.Equal(t, "latest question", prepared[3].Content)
}

func TestPrepareMessagesSkipsContextWithoutUserTail(t *testing.T) {
	client := NewCompletionClient(&stubChatModel{}, &stubRetriever{context: "CTX"})

	prepared := client.prepareMessages([]model.ChatMessage{
		{Role: model.RoleAssistant, Content: "reply"},
	})
	require.Len(t, prepared, 2)
	assert.NotContains(t, prepared[0].Content, "Current Data Context")
}
