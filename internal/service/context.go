package service

import (
	"fmt"
	"strings"

	"mica-backend/internal/dataset"
)

// ContextRetriever 根据用户消息生成注入提示词的数据上下文
type ContextRetriever interface {
	BuildDataContext(userMessage string) string
}

// ContextBuilder 基于市场数据语料构建上下文
type ContextBuilder struct {
	store       *dataset.Store
	searchLimit int
}

func NewContextBuilder(store *dataset.Store, searchLimit int) *ContextBuilder {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &ContextBuilder{store: store, searchLimit: searchLimit}
}

// BuildDataContext 生成 "Available Data Options / Relevant Data Found" 上下文块。
// 任何一步失败都降级为错误说明文本，不中断对话。
func (b *ContextBuilder) BuildDataContext(userMessage string) string {
	context, err := b.buildContext(userMessage)
	if err != nil {
		return fmt.Sprintf("Data context preparation error: %v", err)
	}
	return context
}

func (b *ContextBuilder) buildContext(userMessage string) (string, error) {
	regions, err := b.store.Regions()
	if err != nil {
		return "", err
	}
	categories, err := b.store.Categories()
	if err != nil {
		return "", err
	}

	results, err := b.store.Search(userMessage, b.searchLimit)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Available Data Options:\n")
	sb.WriteString(fmt.Sprintf("**Regions**: %s\n", truncateList(regions, 10)))
	sb.WriteString(fmt.Sprintf("**Product Categories**: %s\n", truncateList(categories, 10)))
	sb.WriteString("\n## Relevant Data Found:\n")

	for _, name := range []string{"market_intelligence", "market_trend", "timeseries"} {
		excerpt, ok := results[name]
		if !ok || excerpt == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n**%s**:\n%s\n", titleize(name), excerpt))
	}

	return sb.String(), nil
}

// truncateList 最多列出 max 项，超出加省略号
func truncateList(items []string, max int) string {
	if len(items) <= max {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:max], ", ") + "..."
}

// titleize market_trend -> Market Trend
func titleize(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
