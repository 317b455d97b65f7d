package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica-backend/internal/model"
	"mica-backend/internal/service"
	"mica-backend/internal/storage"
)

type echoChatModel struct {
	response  string
	fragments []string
}

func (m *echoChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.response, nil), nil
}

func (m *echoChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msgs := make([]*schema.Message, len(m.fragments))
	for i, frag := range m.fragments {
		msgs[i] = schema.AssistantMessage(frag, nil)
	}
	return schema.StreamReaderFromArray(msgs), nil
}

type noopRetriever struct{}

func (noopRetriever) BuildDataContext(string) string { return "" }

func newTestRouter(t *testing.T, chatModel *echoChatModel) (*gin.Engine, *service.ChatService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	completion := service.NewCompletionClient(chatModel, noopRetriever{})
	svc := service.NewChatService(storage.NewMemoryQuestionStore(), completion, service.NewStreamDemuxer(0), 0, 0)
	t.Cleanup(func() { svc.Close() })

	h := NewChatHandler(svc)
	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/question", h.SubmitQuestion)
	router.POST("/answer", h.GetAnswer)
	router.POST("/answer/stream", h.StreamAnswer)
	return router, svc
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &echoChatModel{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "chat-api", resp.Service)
}

func TestSubmitQuestion(t *testing.T) {
	router, _ := newTestRouter(t, &echoChatModel{})

	body := `{"message": "How big is the market?", "conversation_history": []}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/question", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ChatQuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.MessageID)
	assert.Equal(t, "received", resp.Status)
}

func TestSubmitQuestionMissingMessage(t *testing.T) {
	router, _ := newTestRouter(t, &echoChatModel{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/question", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnswer(t *testing.T) {
	router, svc := newTestRouter(t, &echoChatModel{response: "Growing steadily."})

	id, err := svc.ProcessQuestion("demand outlook?", nil)
	require.NoError(t, err)

	body := `{"message_id": "` + id + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ChatAnswerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Growing steadily.", resp.Answer)
	assert.Equal(t, "completed", resp.Status)
}

func TestGetAnswerUnknownID(t *testing.T) {
	router, _ := newTestRouter(t, &echoChatModel{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/answer", strings.NewReader(`{"message_id": "missing"}`)))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "question not found")
}

func TestStreamAnswerSSE(t *testing.T) {
	router, svc := newTestRouter(t, &echoChatModel{fragments: []string{"Hello ", "world"}})

	id, err := svc.ProcessQuestion("stream it", nil)
	require.NoError(t, err)

	body := `{"message_id": "` + id + `"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/answer/stream", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := strings.Split(strings.TrimSpace(w.Body.String()), "\n\n")
	require.NotEmpty(t, frames)

	var events []model.StreamEvent
	for _, frame := range frames {
		require.True(t, strings.HasPrefix(frame, "data: "), frame)
		var ev model.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		events = append(events, ev)
	}

	// 事件序列以 complete 收尾，传输层补上 end 帧
	require.GreaterOrEqual(t, len(events), 4)
	assert.Equal(t, model.EventStatus, events[0].Type)
	assert.Equal(t, model.EventComplete, events[len(events)-2].Type)
	assert.Equal(t, "end", events[len(events)-1].Type)

	var content string
	for _, ev := range events {
		if ev.Type == model.EventContent {
			content += ev.Data
		}
	}
	assert.Equal(t, "Hello world", content)
}
