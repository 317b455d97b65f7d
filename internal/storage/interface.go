package storage

import (
	"time"

	"mica-backend/internal/model"
)

// QuestionStore 待答问题表。Create 生成的 ID 保证唯一；Get / Finalize
// 对不存在的 ID 返回 ErrQuestionNotFound。实现必须支持并发调用。
type QuestionStore interface {
	Create(question string, history []model.ChatMessage) (string, error)
	Get(id string) (*model.PendingQuestion, error)
	Finalize(id, answer string) error

	// DeleteExpired 删除指定时刻之前最后活跃的条目，返回删除数量
	DeleteExpired(cutoff time.Time) int

	Close() error
}
