// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Corphon/SlideCraftMCP/internal/config"
	"github.com/Corphon/SlideCraftMCP/internal/llm"
	"github.com/Corphon/SlideCraftMCP/internal/utils"
)

var ErrLLMNotReady = errors.New("llm service not ready")

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex sync.RWMutex
	provider      llm.Provider
	providerName  string
	isReady       bool
	readyState    string
}

// NewLLMService 根据当前配置创建LLM服务
// 密钥未配置不是致命错误，服务保持未就绪状态等待设置接口补齐
func NewLLMService() *LLMService {
	service := &LLMService{
		readyState: "未初始化",
	}

	cfg := config.GetCurrentConfig()
	if err := service.configureProvider(cfg.LLMProvider, cfg.LLMConfig); err != nil {
		utils.GetLogger().Warnf("LLM提供者初始化失败: %v", err)
	}

	return service
}

// NewLLMServiceWithProvider 使用现成的提供者实例创建服务
// 主要供测试与嵌入场景使用，不触碰全局配置
func NewLLMServiceWithProvider(name string, provider llm.Provider) *LLMService {
	return &LLMService{
		provider:     provider,
		providerName: name,
		isReady:      true,
		readyState:   "就绪",
	}
}

// configureProvider 创建并切换到指定提供者
func (s *LLMService) configureProvider(name string, providerConfig map[string]string) error {
	if providerConfig == nil || providerConfig["api_key"] == "" {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = "API密钥未配置"
		s.providerMutex.Unlock()
		return fmt.Errorf("API密钥未配置")
	}

	provider, err := llm.GetProvider(name, providerConfig)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("提供者创建失败: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	s.provider = provider
	s.providerName = name
	s.isReady = true
	s.readyState = "就绪"
	s.providerMutex.Unlock()

	utils.GetLogger().Infof("LLM提供者已就绪: %s", provider.GetName())
	return nil
}

// UpdateProvider 更新提供者配置（设置接口调用）
func (s *LLMService) UpdateProvider(name string, providerConfig map[string]string) error {
	if err := s.configureProvider(name, providerConfig); err != nil {
		return err
	}
	return config.UpdateLLMConfig(name, providerConfig)
}

// IsReady 返回服务是否可以发起生成调用
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.isReady
}

// Status 返回提供者名称与就绪状态描述
func (s *LLMService) Status() (string, string, bool) {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName, s.readyState, s.isReady
}

// SupportedModels 返回当前提供者支持的模型列表
func (s *LLMService) SupportedModels() []string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider == nil {
		return []string{}
	}
	return s.provider.GetSupportedModels()
}

// RefreshModels 请求提供者从远端拉取真实模型列表（提供者支持时）
func (s *LLMService) RefreshModels(ctx context.Context) error {
	s.providerMutex.RLock()
	provider := s.provider
	s.providerMutex.RUnlock()

	if provider == nil {
		return ErrLLMNotReady
	}

	lister, ok := provider.(llm.ModelLister)
	if !ok {
		return nil
	}
	return lister.FetchAvailableModels(ctx)
}

// Stream 发起一次流式生成调用
func (s *LLMService) Stream(ctx context.Context, prompt, model string, temperature float64) (<-chan llm.StreamResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return nil, ErrLLMNotReady
	}

	return provider.StreamCompletion(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       model,
		Temperature: float32(temperature),
		Stream:      true,
	})
}

// Complete 发起一次非流式生成调用
func (s *LLMService) Complete(ctx context.Context, prompt, model string, temperature float64) (*llm.CompletionResponse, error) {
	s.providerMutex.RLock()
	provider := s.provider
	ready := s.isReady
	s.providerMutex.RUnlock()

	if !ready || provider == nil {
		return nil, ErrLLMNotReady
	}

	return provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Model:       model,
		Temperature: float32(temperature),
	})
}
