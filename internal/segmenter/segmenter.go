// internal/segmenter/segmenter.go
package segmenter

import (
	"encoding/json"
	"strings"

	"github.com/Corphon/SlideCraftMCP/internal/models"
)

// PageSeparator 页面之间的分隔符，两个连续换行
const PageSeparator = "\n\n"

// Segmenter 将任意粒度的文本片段流重新切分为完整的页面单元
// 每收到一个片段做一次同步状态转移，分隔符可以跨越片段边界
type Segmenter struct {
	phase  models.PagePhase
	buffer strings.Builder
}

// New 创建指定阶段的切分器，每个生成调用使用独立实例
func New(phase models.PagePhase) *Segmenter {
	return &Segmenter{phase: phase}
}

// Push 追加一个片段，返回由此产生的完整页面（可能为空）
// 页面文本带有结尾分隔符，按序拼接所有页面可精确还原输入
func (s *Segmenter) Push(fragment string) []models.Page {
	if fragment == "" {
		return nil
	}

	s.buffer.WriteString(fragment)
	buf := s.buffer.String()

	var pages []models.Page
	for {
		idx := strings.Index(buf, PageSeparator)
		if idx < 0 {
			break
		}

		candidate := buf[:idx]
		buf = buf[idx+len(PageSeparator):]

		// 连续分隔符之间的空白内容直接丢弃
		if strings.TrimSpace(candidate) != "" {
			pages = append(pages, models.Page{
				Phase:   s.phase,
				RawText: candidate + PageSeparator,
			})
		}
	}

	s.buffer.Reset()
	s.buffer.WriteString(buf)
	return pages
}

// Flush 在片段流耗尽后刷出缓冲区中残留的未终止内容
// 残留内容没有源分隔符，补一个分隔符保持页面框架完整
func (s *Segmenter) Flush() (models.Page, bool) {
	buf := s.buffer.String()
	s.buffer.Reset()

	if strings.TrimSpace(buf) == "" {
		return models.Page{}, false
	}

	return models.Page{
		Phase:   s.phase,
		RawText: buf + PageSeparator,
	}, true
}

// errorPayload 错误页的结构化负载
type errorPayload struct {
	Error string `json:"error"`
}

// ErrorPage 将上游生成失败转换为单个终止错误页
// 缓冲中的部分内容被放弃，外层流的框架保持完整
func (s *Segmenter) ErrorPage(message string) models.Page {
	s.buffer.Reset()

	data, err := json.Marshal(errorPayload{Error: message})
	if err != nil {
		data = []byte(`{"error": "internal error"}`)
	}

	return models.Page{
		Phase:   models.PhaseError,
		RawText: string(data),
	}
}
