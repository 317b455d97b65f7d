package storage

import (
	"strings"
	"sync"
	"time"

	"mica-backend/internal/model"

	"github.com/google/uuid"
)

// MemoryQuestionStore 进程内的待答问题表，互斥锁保护的 map 实现
type MemoryQuestionStore struct {
	questions map[string]*model.PendingQuestion
	mu        sync.RWMutex
}

func NewMemoryQuestionStore() *MemoryQuestionStore {
	return &MemoryQuestionStore{
		questions: make(map[string]*model.PendingQuestion),
	}
}

func (m *MemoryQuestionStore) Create(question string, history []model.ChatMessage) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrInvalidQuestion
	}

	id := uuid.New().String()

	// 拷贝历史，避免调用方后续修改影响存储内容
	h := make([]model.ChatMessage, len(history))
	copy(h, history)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.questions[id] = &model.PendingQuestion{
		ID:        id,
		Question:  question,
		History:   h,
		Status:    model.QuestionPending,
		CreatedAt: time.Now(),
	}

	return id, nil
}

func (m *MemoryQuestionStore) Get(id string) (*model.PendingQuestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, exists := m.questions[id]
	if !exists {
		return nil, ErrQuestionNotFound
	}

	// 返回副本，条目本体只允许经 Finalize 修改
	cp := *q
	cp.History = make([]model.ChatMessage, len(q.History))
	copy(cp.History, q.History)

	return &cp, nil
}

func (m *MemoryQuestionStore) Finalize(id, answer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, exists := m.questions[id]
	if !exists {
		return ErrQuestionNotFound
	}

	// 重复 Finalize 不报错，后写覆盖先写
	q.Answer = answer
	q.Status = model.QuestionCompleted
	q.AnsweredAt = time.Now()

	return nil
}

func (m *MemoryQuestionStore) DeleteExpired(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for id, q := range m.questions {
		last := q.CreatedAt
		if q.AnsweredAt.After(last) {
			last = q.AnsweredAt
		}
		if last.Before(cutoff) {
			delete(m.questions, id)
			deleted++
		}
	}

	return deleted
}

func (m *MemoryQuestionStore) Close() error {
	return nil
}
