// internal/services/prompt_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/Corphon/SlideCraftMCP/internal/errors"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
)

// newTestPromptStorage 准备带全部模板的存储
func newTestPromptStorage(t *testing.T, templates map[string]string) *storage.FileStorage {
	t.Helper()

	dir := t.TempDir()
	for name, body := range templates {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("写入模板失败: %v", err)
		}
	}

	fs, err := storage.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	return fs
}

func allTemplates() map[string]string {
	return map[string]string{
		TemplateOutline:        "请为《{content}》生成大纲，语言：{language}",
		TemplateCoverContents:  "封面：{content}（{language}）",
		TemplateSectionContent: "章节《{section_title}》：{section_content}",
	}
}

func TestPromptServiceRender(t *testing.T) {
	fs := newTestPromptStorage(t, allTemplates())
	service, err := NewPromptService(fs)
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	result, err := service.Render(TemplateOutline, map[string]string{
		"content":  "人工智能",
		"language": "中文",
	})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}

	want := "请为《人工智能》生成大纲，语言：中文"
	if result != want {
		t.Errorf("渲染结果错误:\n期望: %q\n实际: %q", want, result)
	}
}

// TestPromptServiceRenderRepeatedPlaceholder 同一占位符出现多次时全部替换
func TestPromptServiceRenderRepeatedPlaceholder(t *testing.T) {
	templates := allTemplates()
	templates[TemplateCoverContents] = "{content} / {content}"

	fs := newTestPromptStorage(t, templates)
	service, err := NewPromptService(fs)
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	result, err := service.Render(TemplateCoverContents, map[string]string{"content": "X"})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if result != "X / X" {
		t.Errorf("重复占位符未全部替换: %q", result)
	}
}

// TestPromptServiceRenderUnknownPlaceholder 未提供的占位符原样保留
func TestPromptServiceRenderUnknownPlaceholder(t *testing.T) {
	fs := newTestPromptStorage(t, allTemplates())
	service, err := NewPromptService(fs)
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	result, err := service.Render(TemplateSectionContent, map[string]string{
		"section_title": "导论",
	})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if result != "章节《导论》：{section_content}" {
		t.Errorf("未知占位符处理错误: %q", result)
	}
}

// TestPromptServiceMissingTemplate 缺少任一模板文件视为配置错误
func TestPromptServiceMissingTemplate(t *testing.T) {
	templates := allTemplates()
	delete(templates, TemplateSectionContent)

	fs := newTestPromptStorage(t, templates)
	_, err := NewPromptService(fs)
	if err == nil {
		t.Fatal("缺少模板时应返回错误")
	}
	if !apperrors.IsConfigurationError(err) {
		t.Errorf("错误类型应为配置错误: %v", err)
	}
}

func TestPromptServiceRenderUnknownTemplate(t *testing.T) {
	fs := newTestPromptStorage(t, allTemplates())
	service, err := NewPromptService(fs)
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	_, err = service.Render("nonexistent.txt", nil)
	if err == nil {
		t.Fatal("未加载的模板应返回错误")
	}
	if !apperrors.IsConfigurationError(err) {
		t.Errorf("错误类型应为配置错误: %v", err)
	}
}

func TestPromptServiceReload(t *testing.T) {
	dir := t.TempDir()
	for name, body := range allTemplates() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("写入模板失败: %v", err)
		}
	}

	fs, err := storage.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("创建存储失败: %v", err)
	}
	service, err := NewPromptService(fs)
	if err != nil {
		t.Fatalf("创建服务失败: %v", err)
	}

	// 通过存储层更新，保证读缓存失效
	if err := fs.SaveTextFile("", TemplateOutline, []byte("新模板 {content}")); err != nil {
		t.Fatalf("更新模板失败: %v", err)
	}
	if err := service.Reload(); err != nil {
		t.Fatalf("重新加载失败: %v", err)
	}

	result, err := service.Render(TemplateOutline, map[string]string{"content": "Y"})
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if result != "新模板 Y" {
		t.Errorf("重新加载后渲染结果错误: %q", result)
	}
}
