// internal/app/app.go
package app

import (
	"fmt"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/config"
	"github.com/Corphon/SlideCraftMCP/internal/di"
	"github.com/Corphon/SlideCraftMCP/internal/services"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
)

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	container := di.GetContainer()
	cfg := config.GetCurrentConfig()

	// 1. 数据存储（模板JSON等）
	dataStorage, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("初始化数据存储失败: %w", err)
	}
	container.Register("storage", dataStorage)

	// 2. 提示词存储与服务
	promptStorage, err := storage.NewFileStorage(cfg.PromptsDir)
	if err != nil {
		return fmt.Errorf("初始化提示词存储失败: %w", err)
	}

	promptService, err := services.NewPromptService(promptStorage)
	if err != nil {
		// 模板缺失是配置错误，启动即失败
		return fmt.Errorf("初始化提示词服务失败: %w", err)
	}
	container.Register("prompt", promptService)

	// 3. LLM服务（密钥未配置时保持未就绪，不阻塞启动）
	llmService := services.NewLLMService()
	container.Register("llm", llmService)

	// 4. 进度服务，附带定期清理
	progressService := services.NewProgressService()
	container.Register("progress", progressService)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			progressService.CleanupCompletedTasks(time.Hour)
		}
	}()

	// 5. 生成编排服务
	deckService := services.NewDeckService(llmService, promptService)
	container.Register("deck", deckService)

	return nil
}
