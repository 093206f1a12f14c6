// internal/segmenter/segmenter_test.go
package segmenter

import (
	"strings"
	"testing"

	"github.com/Corphon/SlideCraftMCP/internal/models"
)

// collect 依次推入所有片段并收集产生的页面
func collect(s *Segmenter, fragments []string) []models.Page {
	var pages []models.Page
	for _, fragment := range fragments {
		pages = append(pages, s.Push(fragment)...)
	}
	return pages
}

// TestSeparatorAcrossFragments 分隔符跨越片段边界
func TestSeparatorAcrossFragments(t *testing.T) {
	s := New(models.PhaseCoverContents)

	fragments := []string{`{"a":1}`, "\n", "\n" + `{"b":2}`}
	pages := collect(s, fragments)

	if len(pages) != 1 {
		t.Fatalf("流结束前应产生1页, 实际 %d", len(pages))
	}
	if pages[0].RawText != "{\"a\":1}\n\n" {
		t.Errorf("第一页内容错误: %q", pages[0].RawText)
	}

	last, ok := s.Flush()
	if !ok {
		t.Fatal("流结束后应刷出最后一页")
	}
	if last.RawText != "{\"b\":2}\n\n" {
		t.Errorf("最后一页内容错误: %q", last.RawText)
	}
}

// TestConcatenationLaw 页面拼接精确还原输入
func TestConcatenationLaw(t *testing.T) {
	inputs := [][]string{
		{"第一页内容\n\n第二页内容\n\n第三页"},
		{"a", "b", "c\n", "\nd"},
		{"页面一\n", "\n页", "面二\n\n", "页面三"},
		{"单独一页没有分隔符"},
	}

	for _, fragments := range inputs {
		s := New(models.PhaseChapter)
		pages := collect(s, fragments)
		if last, ok := s.Flush(); ok {
			pages = append(pages, last)
		}

		var sb strings.Builder
		for _, page := range pages {
			sb.WriteString(page.RawText)
		}

		source := strings.Join(fragments, "")
		got := sb.String()

		// 最后一页的合成分隔符是唯一允许的差异
		if got != source && got != source+PageSeparator {
			t.Errorf("拼接结果与输入不一致:\n输入: %q\n拼接: %q", source, got)
		}
	}
}

// TestNoEmptyPages 连续分隔符不产生空页
func TestNoEmptyPages(t *testing.T) {
	s := New(models.PhaseChapter)

	pages := collect(s, []string{"a\n\n\n\n\n\nb\n\n", "\n\n  \n\n"})
	if last, ok := s.Flush(); ok {
		pages = append(pages, last)
	}

	if len(pages) != 2 {
		t.Fatalf("期望2页, 实际 %d", len(pages))
	}
	for _, page := range pages {
		if strings.TrimSpace(page.RawText) == "" {
			t.Errorf("出现了空白页: %q", page.RawText)
		}
	}
}

// TestSingleFragmentMultiplePages 一个片段包含多个完整页面
func TestSingleFragmentMultiplePages(t *testing.T) {
	s := New(models.PhaseCoverContents)

	pages := s.Push("封面\n\n目录\n\n第一章")

	if len(pages) != 2 {
		t.Fatalf("期望2页, 实际 %d", len(pages))
	}
	if pages[0].RawText != "封面\n\n" || pages[1].RawText != "目录\n\n" {
		t.Errorf("页面内容错误: %q, %q", pages[0].RawText, pages[1].RawText)
	}

	last, ok := s.Flush()
	if !ok || last.RawText != "第一章\n\n" {
		t.Errorf("残留内容刷出错误: %v %q", ok, last.RawText)
	}
}

// TestFlushEmptyBuffer 空缓冲不产生最后一页
func TestFlushEmptyBuffer(t *testing.T) {
	s := New(models.PhaseChapter)

	s.Push("内容\n\n")
	if _, ok := s.Flush(); ok {
		t.Error("缓冲为空时不应刷出页面")
	}

	// 只有空白的缓冲同样不产生页面
	s2 := New(models.PhaseChapter)
	s2.Push("  \n ")
	if _, ok := s2.Flush(); ok {
		t.Error("空白缓冲不应刷出页面")
	}
}

// TestPushCharByChar 逐字符推入与整体推入结果一致
func TestPushCharByChar(t *testing.T) {
	input := "页面一的内容\n\n页面二的内容\n\n页面三"

	whole := New(models.PhaseChapter)
	wholePages := whole.Push(input)
	if last, ok := whole.Flush(); ok {
		wholePages = append(wholePages, last)
	}

	char := New(models.PhaseChapter)
	var charPages []models.Page
	for _, r := range input {
		charPages = append(charPages, char.Push(string(r))...)
	}
	if last, ok := char.Flush(); ok {
		charPages = append(charPages, last)
	}

	if len(wholePages) != len(charPages) {
		t.Fatalf("页数不一致: %d vs %d", len(wholePages), len(charPages))
	}
	for i := range wholePages {
		if wholePages[i].RawText != charPages[i].RawText {
			t.Errorf("第 %d 页不一致: %q vs %q", i, wholePages[i].RawText, charPages[i].RawText)
		}
	}
}

// TestErrorPage 上游失败转换为错误页并清空缓冲
func TestErrorPage(t *testing.T) {
	s := New(models.PhaseChapter)

	s.Push("未完成的内容")
	page := s.ErrorPage("生成过程中出错: connection reset")

	if page.Phase != models.PhaseError {
		t.Errorf("错误页阶段错误: %s", page.Phase)
	}
	if !strings.Contains(page.RawText, "connection reset") {
		t.Errorf("错误页应包含失败原因: %q", page.RawText)
	}
	if !strings.HasPrefix(page.RawText, `{"error":`) {
		t.Errorf("错误页应为JSON负载: %q", page.RawText)
	}

	// 部分缓冲内容被放弃
	if _, ok := s.Flush(); ok {
		t.Error("错误页之后缓冲应已清空")
	}
}

// TestPhaseTag 页面携带所属阶段
func TestPhaseTag(t *testing.T) {
	s := New(models.PhaseCoverContents)
	pages := s.Push("封面\n\n")

	if len(pages) != 1 || pages[0].Phase != models.PhaseCoverContents {
		t.Errorf("页面阶段标记错误: %+v", pages)
	}
}
