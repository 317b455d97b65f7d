package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mica-backend/internal/model"
)

func TestCreateAndGet(t *testing.T) {
	store := NewMemoryQuestionStore()

	history := []model.ChatMessage{{Role: model.RoleUser, Content: "earlier"}}
	id, err := store.Create("what is the market size?", history)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	q, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, q.ID)
	assert.Equal(t, "what is the market size?", q.Question)
	assert.Equal(t, model.QuestionPending, q.Status)
	assert.Equal(t, history, q.History)
	assert.False(t, q.CreatedAt.IsZero())
}

func TestCreateRejectsBlankQuestion(t *testing.T) {
	store := NewMemoryQuestionStore()

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := store.Create(q, nil)
		assert.ErrorIs(t, err, ErrInvalidQuestion)
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	store := NewMemoryQuestionStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := store.Create("q", nil)
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestGetUnknownID(t *testing.T) {
	store := NewMemoryQuestionStore()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	store := NewMemoryQuestionStore()

	id, err := store.Create("q", []model.ChatMessage{{Role: model.RoleUser, Content: "original"}})
	require.NoError(t, err)

	q, err := store.Get(id)
	require.NoError(t, err)
	q.Question = "mutated"
	q.History[0].Content = "mutated"

	fresh, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "q", fresh.Question)
	assert.Equal(t, "original", fresh.History[0].Content)
}

func TestFinalize(t *testing.T) {
	store := NewMemoryQuestionStore()

	id, err := store.Create("q", nil)
	require.NoError(t, err)

	require.NoError(t, store.Finalize(id, "the answer"))

	q, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, model.QuestionCompleted, q.Status)
	assert.Equal(t, "the answer", q.Answer)
	assert.False(t, q.AnsweredAt.Before(q.CreatedAt))
}

func TestFinalizeUnknownID(t *testing.T) {
	store := NewMemoryQuestionStore()
	assert.ErrorIs(t, store.Finalize("missing", "a"), ErrQuestionNotFound)
}

func TestFinalizeTwiceLastWriteWins(t *testing.T) {
	store := NewMemoryQuestionStore()

	id, err := store.Create("q", nil)
	require.NoError(t, err)

	require.NoError(t, store.Finalize(id, "first"))
	require.NoError(t, store.Finalize(id, "second"))

	q, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "second", q.Answer)
	assert.Equal(t, model.QuestionCompleted, q.Status)
}

func TestConcurrentCreates(t *testing.T) {
	store := NewMemoryQuestionStore()

	const n = 50
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := store.Create("q", nil)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestDeleteExpired(t *testing.T) {
	store := NewMemoryQuestionStore()

	oldID, err := store.Create("old", nil)
	require.NoError(t, err)
	freshID, err := store.Create("fresh", nil)
	require.NoError(t, err)

	// 过期判定以最后一次活动时间为准
	time.Sleep(10 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Finalize(freshID, "answered after cutoff"))

	// freshID 的 AnsweredAt 在 cutoff 之后，不应被清理
	deleted := store.DeleteExpired(cutoff)
	assert.Equal(t, 1, deleted)

	_, err = store.Get(oldID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	_, err = store.Get(freshID)
	assert.NoError(t, err)
}
