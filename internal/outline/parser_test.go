// internal/outline/parser_test.go
package outline

import (
	"testing"
)

// TestParseBasicOutline 测试基本大纲解析
func TestParseBasicOutline(t *testing.T) {
	doc := Parse("# T\n## C1\n### S1\n- a\n- b")

	if doc.Title != "T" {
		t.Fatalf("标题解析错误: 期望 %q, 实际 %q", "T", doc.Title)
	}

	if len(doc.Chapters) != 1 {
		t.Fatalf("章节数量错误: 期望 1, 实际 %d", len(doc.Chapters))
	}

	chapter := doc.Chapters[0]
	if chapter.Title != "C1" {
		t.Errorf("章节标题错误: 期望 %q, 实际 %q", "C1", chapter.Title)
	}

	if len(chapter.Sections) != 1 {
		t.Fatalf("小节数量错误: 期望 1, 实际 %d", len(chapter.Sections))
	}

	section := chapter.Sections[0]
	if section.Title != "S1" {
		t.Errorf("小节标题错误: 期望 %q, 实际 %q", "S1", section.Title)
	}

	if len(section.Items) != 2 || section.Items[0] != "a" || section.Items[1] != "b" {
		t.Errorf("内容项解析错误: %v", section.Items)
	}
}

// TestParseEmptyInput 测试空输入
func TestParseEmptyInput(t *testing.T) {
	doc := Parse("")

	if doc.Title != "" {
		t.Errorf("空输入应产生空标题, 实际 %q", doc.Title)
	}
	if len(doc.Chapters) != 0 {
		t.Errorf("空输入应产生空章节列表, 实际 %d 个章节", len(doc.Chapters))
	}
}

// TestParseMultipleTitles 多个总标题时后者覆盖前者
func TestParseMultipleTitles(t *testing.T) {
	doc := Parse("# First\n# Second")

	if doc.Title != "Second" {
		t.Errorf("应保留最后一个标题, 实际 %q", doc.Title)
	}
}

// TestParseDanglingLines 没有容器时的行被静默丢弃
func TestParseDanglingLines(t *testing.T) {
	// 小节出现在任何章节之前
	doc := Parse("### orphan\n- item\n## C1\n- item2")

	if len(doc.Chapters) != 1 {
		t.Fatalf("章节数量错误: %d", len(doc.Chapters))
	}
	if len(doc.Chapters[0].Sections) != 0 {
		t.Errorf("孤立小节不应被保留: %v", doc.Chapters[0].Sections)
	}
}

// TestParseNewChapterResetsSection 新章节使前一个小节指针失效
func TestParseNewChapterResetsSection(t *testing.T) {
	doc := Parse("## C1\n### S1\n## C2\n- dangling")

	if len(doc.Chapters) != 2 {
		t.Fatalf("章节数量错误: %d", len(doc.Chapters))
	}

	// C2之后的内容项没有打开的小节，应被丢弃
	if len(doc.Chapters[0].Sections[0].Items) != 0 {
		t.Errorf("内容项不应落入前一章节的小节: %v", doc.Chapters[0].Sections[0].Items)
	}
	if len(doc.Chapters[1].Sections) != 0 {
		t.Errorf("C2不应有小节: %v", doc.Chapters[1].Sections)
	}
}

// TestParseUnrecognizedLines 无法识别的行被跳过
func TestParseUnrecognizedLines(t *testing.T) {
	doc := Parse("random text\n#### four hashes is not a heading prefix\n# T")

	if doc.Title != "T" {
		t.Errorf("标题解析错误: %q", doc.Title)
	}
	if len(doc.Chapters) != 0 {
		t.Errorf("不应产生章节: %d", len(doc.Chapters))
	}
}

// TestParseTrimsWhitespace 标记文本去除周围空白
func TestParseTrimsWhitespace(t *testing.T) {
	doc := Parse("  ## C1  \n  ###  S1  \n  -  item  ")

	if doc.Chapters[0].Title != "C1" {
		t.Errorf("章节标题应去除空白: %q", doc.Chapters[0].Title)
	}
	if doc.Chapters[0].Sections[0].Title != "S1" {
		t.Errorf("小节标题应去除空白: %q", doc.Chapters[0].Sections[0].Title)
	}
	if doc.Chapters[0].Sections[0].Items[0] != "item" {
		t.Errorf("内容项应去除空白: %q", doc.Chapters[0].Sections[0].Items[0])
	}
}

// TestSerializeRoundTrip 序列化后再解析应得到相同的结构
func TestSerializeRoundTrip(t *testing.T) {
	input := "# 人工智能教育应用\n## 概述\n### 定义与意义\n- AI技术在教育中的应用\n- 提升教学效果\n### 发展历程\n- 早期探索\n## 应用场景\n### 个性化学习\n- 智能推荐"

	doc := Parse(input)
	serialized := Serialize(doc)
	reparsed := Parse(serialized)

	if reparsed.Title != doc.Title {
		t.Errorf("往返解析标题不一致: %q vs %q", reparsed.Title, doc.Title)
	}
	if len(reparsed.Chapters) != len(doc.Chapters) {
		t.Fatalf("往返解析章节数不一致: %d vs %d", len(reparsed.Chapters), len(doc.Chapters))
	}

	for i, chapter := range doc.Chapters {
		rc := reparsed.Chapters[i]
		if rc.Title != chapter.Title {
			t.Errorf("章节 %d 标题不一致: %q vs %q", i, rc.Title, chapter.Title)
		}
		if len(rc.Sections) != len(chapter.Sections) {
			t.Fatalf("章节 %d 小节数不一致", i)
		}
		for j, section := range chapter.Sections {
			rs := rc.Sections[j]
			if rs.Title != section.Title {
				t.Errorf("小节 %d.%d 标题不一致: %q vs %q", i, j, rs.Title, section.Title)
			}
			if len(rs.Items) != len(section.Items) {
				t.Fatalf("小节 %d.%d 内容项数不一致", i, j)
			}
			for k, item := range section.Items {
				if rs.Items[k] != item {
					t.Errorf("内容项 %d.%d.%d 不一致: %q vs %q", i, j, k, rs.Items[k], item)
				}
			}
		}
	}
}

// TestSerializeChapter 章节序列化格式
func TestSerializeChapter(t *testing.T) {
	doc := Parse("## C1\n### S1\n- a\n- b")
	got := SerializeChapter(doc.Chapters[0])

	want := "## C1\n### S1\n- a\n- b\n"
	if got != want {
		t.Errorf("章节序列化错误:\n期望: %q\n实际: %q", want, got)
	}
}
