package service

import "errors"

var (
	// ErrCompletion 模型补全最终失败（重试耗尽）
	ErrCompletion = errors.New("completion failed")
	// ErrStream 流式调用建立失败
	ErrStream = errors.New("stream failed")
)
