// internal/outline/parser.go
package outline

import (
	"strings"

	"github.com/Corphon/SlideCraftMCP/internal/models"
)

// 大纲标记的行前缀，按特异性从高到低匹配
const (
	prefixSection = "### "
	prefixChapter = "## "
	prefixTitle   = "# "
	prefixItem    = "- "
)

// Parse 将大纲标记文本解析为层级文档结构
// 解析是尽力而为的：无法识别的行直接跳过，任何输入都不会返回错误
func Parse(text string) *models.OutlineDocument {
	doc := &models.OutlineDocument{
		Chapters: []*models.Chapter{},
	}

	var currentChapter *models.Chapter
	var currentSection *models.Section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, prefixSection):
			// 小节标题：没有打开的章节时忽略
			if currentChapter != nil {
				currentSection = &models.Section{
					Title: strings.TrimSpace(strings.TrimPrefix(line, prefixSection)),
					Items: []string{},
				}
				currentChapter.Sections = append(currentChapter.Sections, currentSection)
			}
		case strings.HasPrefix(line, prefixChapter):
			// 新章节结束前一个章节的累积，小节指针随之失效
			if currentChapter != nil {
				doc.Chapters = append(doc.Chapters, currentChapter)
			}
			currentChapter = &models.Chapter{
				Title:    strings.TrimSpace(strings.TrimPrefix(line, prefixChapter)),
				Sections: []*models.Section{},
			}
			currentSection = nil
		case strings.HasPrefix(line, prefixTitle):
			// 多个总标题时后者覆盖前者
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, prefixTitle))
		case strings.HasPrefix(line, prefixItem):
			// 内容项：没有打开的小节时忽略
			if currentSection != nil {
				currentSection.Items = append(currentSection.Items,
					strings.TrimSpace(strings.TrimPrefix(line, prefixItem)))
			}
		}
	}

	if currentChapter != nil {
		doc.Chapters = append(doc.Chapters, currentChapter)
	}

	return doc
}

// SerializeChapter 将章节还原为大纲标记文本，供章节子提示词使用
// 输出与 Parse 消费的格式对称，可以往返解析
func SerializeChapter(chapter *models.Chapter) string {
	var sb strings.Builder

	sb.WriteString(prefixChapter)
	sb.WriteString(chapter.Title)
	sb.WriteString("\n")

	for _, section := range chapter.Sections {
		sb.WriteString(prefixSection)
		sb.WriteString(section.Title)
		sb.WriteString("\n")
		for _, item := range section.Items {
			sb.WriteString(prefixItem)
			sb.WriteString(item)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Serialize 将整个文档还原为大纲标记文本
func Serialize(doc *models.OutlineDocument) string {
	var sb strings.Builder

	if doc.Title != "" {
		sb.WriteString(prefixTitle)
		sb.WriteString(doc.Title)
		sb.WriteString("\n")
	}

	for _, chapter := range doc.Chapters {
		sb.WriteString(SerializeChapter(chapter))
	}

	return sb.String()
}
