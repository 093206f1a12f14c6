// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/di"
	"github.com/Corphon/SlideCraftMCP/internal/services"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
// 只从依赖注入容器获取服务，不创建新实例
func SetupRouter() (*gin.Engine, error) {
	container := di.GetContainer()

	deckService, ok := container.Get("deck").(*services.DeckService)
	if !ok {
		return nil, fmt.Errorf("生成编排服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	promptService, ok := container.Get("prompt").(*services.PromptService)
	if !ok {
		return nil, fmt.Errorf("提示词服务未正确初始化")
	}

	progressService, ok := container.Get("progress").(*services.ProgressService)
	if !ok {
		return nil, fmt.Errorf("进度服务未正确初始化")
	}

	dataStorage, ok := container.Get("storage").(*storage.FileStorage)
	if !ok {
		return nil, fmt.Errorf("数据存储服务未正确初始化")
	}

	handler := NewHandler(deckService, llmService, promptService, progressService, dataStorage)

	r := gin.Default()

	// 启用CORS
	r.Use(corsMiddleware(debugModeFromConfig()))

	// ===============================
	// 生成端点（流式），限流保护
	// ===============================
	tools := r.Group("/tools")
	tools.Use(RateLimitMiddleware(30, time.Minute))
	{
		tools.POST("/aippt_outline", handler.GenerateOutlineStream)
		tools.POST("/aippt", handler.GenerateDeckStream)
	}

	// WebSocket 页面推送
	r.GET("/ws/aippt", handler.DeckWebSocket)

	// 基础端点
	r.GET("/", handler.Root)
	r.GET("/health", handler.HealthCheck)
	r.GET("/data/:filename", handler.GetDataFile)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		// 设置相关路由
		settingsGroup := api.Group("/settings")
		{
			settingsGroup.GET("", handler.GetSettings)
			settingsGroup.POST("", handler.SaveSettings)
		}

		// LLM配置相关路由
		llmGroup := api.Group("/llm")
		{
			llmGroup.GET("/status", handler.GetLLMStatus)
			llmGroup.GET("/models", handler.GetLLMModels)
			llmGroup.PUT("/config", handler.UpdateLLMConfig)
		}

		// 配置健康与指标
		configGroup := api.Group("/config")
		{
			configGroup.GET("/health", handler.GetConfigHealth)
			configGroup.GET("/metrics", handler.GetConfigMetrics)
		}

		// 生成进度订阅
		api.GET("/progress/:taskID", handler.SubscribeProgress)
	}

	return r, nil
}
