package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"mica-backend/internal/model"
	"mica-backend/pkg/logger"
)

const (
	chartMarker = "```json"
	chartKey    = "chartConfig"
	codeFence   = "```"

	statusConnecting = "connecting"
	statusCompleted  = "completed"
)

// TokenStream 有序的文本片段来源，耗尽时 Recv 返回 io.EOF
type TokenStream interface {
	Recv() (string, error)
	Close()
}

type einoTokenStream struct {
	sr *schema.StreamReader[*schema.Message]
}

func NewTokenStream(sr *schema.StreamReader[*schema.Message]) TokenStream {
	return &einoTokenStream{sr: sr}
}

func (s *einoTokenStream) Recv() (string, error) {
	msg, err := s.sr.Recv()
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (s *einoTokenStream) Close() {
	s.sr.Close()
}

// StreamDemuxer 把原始 token 流拆分为 status/content/chart 事件。
// 两种状态：直通转发、遇到 ```json 围栏后缓冲，待围栏闭合时
// 提取 chartConfig 载荷单独发出。
type StreamDemuxer struct {
	contentDelay time.Duration // 相邻 content 事件间的平滑间隔，可为 0
}

func NewStreamDemuxer(contentDelay time.Duration) *StreamDemuxer {
	return &StreamDemuxer{contentDelay: contentDelay}
}

// Demux 消费 stream 并产出事件序列。通道无缓冲，消费速度决定拉取节奏。
// ctx 取消时关闭来源流并停止。终止事件（complete 或 error）最多一个且必为最后一个。
func (d *StreamDemuxer) Demux(ctx context.Context, stream TokenStream) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent)

	go func() {
		defer close(events)
		defer stream.Close()

		send := func(ev model.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		emitContent := func(text string) bool {
			if text == "" {
				return true
			}
			if !send(model.StreamEvent{Type: model.EventContent, Data: text}) {
				return false
			}
			if d.contentDelay > 0 {
				select {
				case <-time.After(d.contentDelay):
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		if !send(model.StreamEvent{Type: model.EventStatus, Data: statusConnecting}) {
			return
		}

		var (
			carry     string // 直通态末尾可能是 ```json 前缀的部分
			buf       string
			buffering bool
		)

		for {
			fragment, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					if buffering {
						// 未闭合的围栏块整体丢弃
						logger.Warnf("Stream ended inside unterminated fenced block, %d bytes discarded", len(buf))
					} else if !emitContent(carry) {
						return
					}
					if !send(model.StreamEvent{Type: model.EventStatus, Data: statusCompleted}) {
						return
					}
					send(model.StreamEvent{Type: model.EventComplete})
					return
				}

				logger.Errorf("Stream receive failed: %v", err)
				send(model.StreamEvent{Type: model.EventError, Data: err.Error()})
				return
			}

			text := fragment
			for text != "" {
				if buffering {
					buf += text
					text = ""

					// 在开围栏之后找闭围栏
					j := strings.Index(buf[len(chartMarker):], codeFence)
					if j < 0 {
						continue
					}
					end := len(chartMarker) + j + len(codeFence)
					block, rest := buf[:end], buf[end:]
					buf = ""
					buffering = false

					if !d.emitBlock(block, send, emitContent) {
						return
					}
					text = rest
					continue
				}

				data := carry + text
				carry = ""
				text = ""

				if i := strings.Index(data, chartMarker); i >= 0 {
					// 围栏前的文本照常转发，围栏起进入缓冲
					if !emitContent(data[:i]) {
						return
					}
					buffering = true
					text = data[i:]
					continue
				}

				hold := partialMarkerLen(data)
				if !emitContent(data[:len(data)-hold]) {
					return
				}
				carry = data[len(data)-hold:]
			}
		}
	}()

	return events
}

// emitBlock 处理一个完整的围栏块：含 chartConfig 时提取载荷发 chart 事件，
// 提取失败静默丢弃；普通代码块原样作为 content 放行。
func (d *StreamDemuxer) emitBlock(block string, send func(model.StreamEvent) bool, emitContent func(string) bool) bool {
	keyIdx := strings.Index(block, chartKey)
	if keyIdx < 0 {
		return emitContent(block)
	}

	start := strings.LastIndex(block[:keyIdx], "{")
	closeFence := strings.LastIndex(block, codeFence)
	end := -1
	if closeFence > 0 {
		end = strings.LastIndex(block[:closeFence], "}")
	}
	if start < 0 || end < start {
		logger.Warnf("Malformed chart block dropped (%d bytes)", len(block))
		return true
	}

	payload := block[start : end+1]
	if !json.Valid([]byte(payload)) {
		logger.Warnf("Invalid chart payload dropped (%d bytes)", len(payload))
		return true
	}

	return send(model.StreamEvent{Type: model.EventChart, Data: payload})
}

// partialMarkerLen 末尾与 ```json 前缀重叠的长度，这部分要留到下个片段再判断
func partialMarkerLen(data string) int {
	max := len(chartMarker) - 1
	if len(data) < max {
		max = len(data)
	}
	for l := max; l >= 1; l-- {
		if strings.HasSuffix(data, chartMarker[:l]) {
			return l
		}
	}
	return 0
}
