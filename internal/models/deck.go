// internal/models/deck.go
package models

// PagePhase 标识页面所属的生成阶段
type PagePhase string

const (
	PhaseCoverContents PagePhase = "cover_contents" // 封面和目录页
	PhaseChapter       PagePhase = "chapter"        // 章节内容页
	PhaseEnd           PagePhase = "end"            // 结束哨兵页
	PhaseError         PagePhase = "error"          // 错误页
)

// Page 表示流式输出中的一个完整页面单元
type Page struct {
	Seq     int       `json:"seq"`      // 全局页码，从1开始连续递增
	Phase   PagePhase `json:"phase"`    // 生成阶段
	RawText string    `json:"raw_text"` // 页面原始文本，含结尾分隔符
}

// OutlineDocument 表示解析后的PPT大纲结构
type OutlineDocument struct {
	Title    string     `json:"title"`
	Chapters []*Chapter `json:"chapters"`
}

// Chapter 章节
type Chapter struct {
	Title    string     `json:"title"`
	Sections []*Section `json:"sections"`
}

// Section 小节
type Section struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// OutlineRequest 大纲生成请求
type OutlineRequest struct {
	Model    string `json:"model"`
	Language string `json:"language" binding:"required"`
	Content  string `json:"content" binding:"required,max=50"`
	Stream   bool   `json:"stream"`
}

// DeckRequest PPT内容生成请求，Content为大纲标记文本
type DeckRequest struct {
	Model    string `json:"model"`
	Language string `json:"language" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Stream   bool   `json:"stream"`
}
