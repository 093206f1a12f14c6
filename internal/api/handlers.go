// internal/api/handlers.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/config"
	"github.com/Corphon/SlideCraftMCP/internal/models"
	"github.com/Corphon/SlideCraftMCP/internal/services"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
	"github.com/Corphon/SlideCraftMCP/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler 持有所有API处理器依赖的服务
type Handler struct {
	DeckService     *services.DeckService
	LLMService      *services.LLMService
	PromptService   *services.PromptService
	ProgressService *services.ProgressService
	DataStorage     *storage.FileStorage
	Response        *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(
	deckService *services.DeckService,
	llmService *services.LLMService,
	promptService *services.PromptService,
	progressService *services.ProgressService,
	dataStorage *storage.FileStorage,
) *Handler {
	return &Handler{
		DeckService:     deckService,
		LLMService:      llmService,
		PromptService:   promptService,
		ProgressService: progressService,
		DataStorage:     dataStorage,
		Response:        NewResponseHelper(),
	}
}

// requestHelp 参数校验失败时返回的帮助信息
var requestHelp = gin.H{
	"/tools/aippt_outline": "必填参数: model, language, content（不超过50字符）",
	"/tools/aippt":         "必填参数: model, language, content",
}

// GenerateOutlineStream 生成PPT大纲（流式响应）
func (h *Handler) GenerateOutlineStream(c *gin.Context) {
	var req models.OutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GetLogger().Warnf("大纲请求参数校验失败: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail":  err.Error(),
			"message": "请求参数验证失败",
			"help":    requestHelp,
		})
		return
	}

	utils.GetLogger().Infof("收到大纲生成请求: model=%s, language=%s, content=%s",
		req.Model, req.Language, req.Content)

	stream, err := h.DeckService.GenerateOutline(c.Request.Context(), req)
	if err != nil {
		utils.GetLogger().Errorf("构建大纲生成链失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "OpenAI API Key not configured"})
		return
	}

	setStreamHeaders(c)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case chunk, ok := <-stream:
			if !ok {
				return
			}
			fmt.Fprint(c.Writer, chunk)
			c.Writer.Flush()
		}
	}
}

// GenerateDeckStream 生成PPT内容（分步流式响应）
// 页面按原始文本顺序写出，拼接结果与模型输出逐字节一致
func (h *Handler) GenerateDeckStream(c *gin.Context) {
	var req models.DeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GetLogger().Warnf("内容请求参数校验失败: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"detail":  err.Error(),
			"message": "请求参数验证失败",
			"help":    requestHelp,
		})
		return
	}

	utils.GetLogger().Infof("收到内容生成请求: model=%s, language=%s, 大纲长度=%d",
		req.Model, req.Language, len(req.Content))

	// 为本次生成建立进度跟踪器，供 /api/progress/:taskID 订阅
	taskID := uuid.NewString()
	tracker := h.ProgressService.CreateTracker(taskID)
	c.Header("X-Task-ID", taskID)

	pages, err := h.DeckService.GenerateDeck(c.Request.Context(), req, tracker)
	if err != nil {
		tracker.Fail(err.Error())
		utils.GetLogger().Errorf("构建内容生成链失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "OpenAI API Key not configured"})
		return
	}

	setStreamHeaders(c)

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			tracker.Fail("客户端中断了连接")
			return
		case page, ok := <-pages:
			if !ok {
				return
			}
			fmt.Fprint(c.Writer, page.RawText)
			c.Writer.Flush()
		}
	}
}

// setStreamHeaders 设置流式响应头
func setStreamHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")
}

// SubscribeProgress 订阅生成任务进度的SSE端点
func (h *Handler) SubscribeProgress(c *gin.Context) {
	taskID := c.Param("taskID")

	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
		return
	}

	setStreamHeaders(c)

	clientGone := c.Request.Context().Done()

	updateChan := tracker.Subscribe()
	defer tracker.Unsubscribe(updateChan)

	// 发送心跳保持连接
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"message\":\"连接已建立\"}\n\n")
	c.Writer.Flush()

	for {
		select {
		case <-clientGone:
			return
		case update, ok := <-updateChan:
			if !ok {
				return
			}
			data, _ := json.Marshal(update)
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", string(data))
			c.Writer.Flush()

			if update.Status == "completed" || update.Status == "failed" {
				return
			}
		case <-ticker.C:
			fmt.Fprintf(c.Writer, "event: heartbeat\ndata: {\"time\":%d}\n\n", time.Now().Unix())
			c.Writer.Flush()
		}
	}
}

// HealthCheck 健康检查端点
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "SlideCraft AI Backend is running",
	})
}

// Root 根路径信息
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to SlideCraft AI Backend",
		"version": "0.1.0",
		"endpoints": gin.H{
			"outline":  "/tools/aippt_outline",
			"content":  "/tools/aippt",
			"ws":       "/ws/aippt",
			"health":   "/health",
			"data":     "/data/{filename}.json",
			"settings": "/api/settings",
		},
	})
}

// GetDataFile 读取模板目录中的JSON文件
func (h *Handler) GetDataFile(c *gin.Context) {
	// 路由形如 /data/default.json，参数带扩展名
	filename := strings.TrimSuffix(c.Param("filename"), ".json")

	if !h.DataStorage.FileExists("template", filename+".json") {
		utils.GetLogger().Warnf("模板文件不存在: %s.json", filename)
		h.Response.NotFound(c, fmt.Sprintf("文件 %s.json", filename))
		return
	}

	var data interface{}
	if err := h.DataStorage.LoadJSONFile("template", filename+".json", &data); err != nil {
		utils.GetLogger().Errorf("读取模板文件失败: %s.json - %v", filename, err)
		h.Response.BadRequest(c, fmt.Sprintf("文件 %s.json 格式错误", filename))
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetSettings 获取当前设置（密钥脱敏）
func (h *Handler) GetSettings(c *gin.Context) {
	cfg := config.GetCurrentConfig()

	llmConfig := make(map[string]string, len(cfg.LLMConfig))
	for key, value := range cfg.LLMConfig {
		if key == "api_key" && value != "" {
			llmConfig[key] = "sk-****"
			continue
		}
		llmConfig[key] = value
	}

	h.Response.Success(c, gin.H{
		"llm_provider":        cfg.LLMProvider,
		"llm_config":          llmConfig,
		"default_model":       cfg.DefaultModel,
		"default_temperature": cfg.DefaultTemperature,
		"debug_mode":          cfg.DebugMode,
	})
}

// SaveSettings 更新LLM提供者设置
func (h *Handler) SaveSettings(c *gin.Context) {
	var req struct {
		Provider string            `json:"provider" binding:"required"`
		Config   map[string]string `json:"config" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		h.Response.BadRequest(c, "无效的请求参数", err.Error())
		return
	}

	if err := h.LLMService.UpdateProvider(req.Provider, req.Config); err != nil {
		h.Response.InternalError(c, "更新LLM配置失败", err.Error())
		return
	}

	h.Response.Success(c, nil, "设置已保存")
}

// GetLLMStatus 获取LLM服务状态
func (h *Handler) GetLLMStatus(c *gin.Context) {
	provider, state, ready := h.LLMService.Status()

	h.Response.Success(c, gin.H{
		"provider": provider,
		"state":    state,
		"ready":    ready,
	})
}

// GetLLMModels 获取可用模型列表
// refresh=true 时先尝试从提供者远端拉取真实列表
func (h *Handler) GetLLMModels(c *gin.Context) {
	if c.Query("refresh") == "true" {
		if err := h.LLMService.RefreshModels(c.Request.Context()); err != nil {
			utils.GetLogger().Warnf("刷新模型列表失败: %v", err)
		}
	}

	h.Response.Success(c, gin.H{
		"models": h.LLMService.SupportedModels(),
	})
}

// UpdateLLMConfig 更新LLM配置（与SaveSettings相同的载荷）
func (h *Handler) UpdateLLMConfig(c *gin.Context) {
	h.SaveSettings(c)
}

// GetConfigHealth 配置健康状态
func (h *Handler) GetConfigHealth(c *gin.Context) {
	_, state, ready := h.LLMService.Status()

	status := "healthy"
	if !ready {
		status = "degraded"
	}

	h.Response.Success(c, gin.H{
		"status":    status,
		"llm_state": state,
	})
}

// GetConfigMetrics 指标快照
func (h *Handler) GetConfigMetrics(c *gin.Context) {
	h.Response.Success(c, utils.GetMetricsCollector().Snapshot())
}
