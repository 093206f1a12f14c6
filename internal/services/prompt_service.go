// internal/services/prompt_service.go
package services

import (
	"fmt"
	"strings"
	"sync"

	apperrors "github.com/Corphon/SlideCraftMCP/internal/errors"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
)

// 三个生成阶段的模板文件名
const (
	TemplateOutline        = "outline.txt"
	TemplateCoverContents  = "cover_contents.txt"
	TemplateSectionContent = "section_content.txt"
)

// PromptService 管理提示词模板的加载与渲染
// 模板在启动时全部加载，缺失任何一个都视为配置错误
type PromptService struct {
	storage   *storage.FileStorage
	templates map[string]string
	mutex     sync.RWMutex
}

// NewPromptService 创建提示词服务并加载全部阶段模板
func NewPromptService(fs *storage.FileStorage) (*PromptService, error) {
	service := &PromptService{
		storage:   fs,
		templates: make(map[string]string),
	}

	for _, name := range []string{TemplateOutline, TemplateCoverContents, TemplateSectionContent} {
		if err := service.loadTemplate(name); err != nil {
			return nil, err
		}
	}

	return service, nil
}

// loadTemplate 从存储加载单个模板
func (s *PromptService) loadTemplate(name string) error {
	data, err := s.storage.LoadTextFile("", name)
	if err != nil {
		return apperrors.NewConfigurationError(
			fmt.Sprintf("提示词模板文件不存在: %s", name), err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.templates[name] = string(data)
	return nil
}

// Render 渲染模板，将 {name} 形式的占位符替换为给定值
func (s *PromptService) Render(name string, vars map[string]string) (string, error) {
	s.mutex.RLock()
	template, exists := s.templates[name]
	s.mutex.RUnlock()

	if !exists {
		return "", apperrors.NewConfigurationError(
			fmt.Sprintf("提示词模板未加载: %s", name), nil)
	}

	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}

	return result, nil
}

// Reload 重新加载全部模板（模板文件更新后调用）
func (s *PromptService) Reload() error {
	for _, name := range []string{TemplateOutline, TemplateCoverContents, TemplateSectionContent} {
		if err := s.loadTemplate(name); err != nil {
			return err
		}
	}
	return nil
}
