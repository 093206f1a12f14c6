// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/api"
	"github.com/Corphon/SlideCraftMCP/internal/app"
	"github.com/Corphon/SlideCraftMCP/internal/config"
	"github.com/Corphon/SlideCraftMCP/internal/di"
	"github.com/Corphon/SlideCraftMCP/internal/utils"
	"github.com/gin-gonic/gin"

	// 注册LLM提供者
	_ "github.com/Corphon/SlideCraftMCP/internal/llm/providers/openai"
	_ "github.com/Corphon/SlideCraftMCP/internal/llm/providers/openrouter"
)

func main() {
	log.Println("🚀 启动 SlideCraft AI Backend...")

	// 1. 首先加载基础配置
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("✅ 基础配置加载完成，端口: %s", baseConfig.Port)

	// 2. 创建必要的目录
	createDirectories(baseConfig)
	log.Println("✅ 目录结构创建完成")

	// 3. 初始化配置系统
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("初始化配置系统失败: %v", err)
	}
	log.Println("✅ 配置系统初始化完成")

	// 4. 初始化日志
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "server.log")); err != nil {
		log.Printf("⚠️ 初始化日志文件失败: %v", err)
	}
	if baseConfig.DebugMode {
		utils.GetLogger().SetLogLevel(utils.DEBUG)
	}

	// 5. 初始化所有服务（按依赖顺序）
	if err := app.InitServices(); err != nil {
		log.Fatalf("初始化服务失败: %v", err)
	}
	log.Println("✅ 所有服务初始化完成")

	// 6. 服务健康检查
	if err := performHealthCheck(); err != nil {
		log.Fatalf("❌ 服务健康检查失败: %v", err)
	}

	if !baseConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := api.SetupRouter()
	if err != nil {
		log.Fatalf("❌ 设置路由失败: %v", err)
	}
	log.Println("✅ 路由设置完成")

	// 7. 启动服务器
	log.Printf("🌐 服务器启动在 %s:%s", baseConfig.Host, baseConfig.Port)
	log.Printf("🔗 大纲端点: POST http://localhost:%s/tools/aippt_outline", baseConfig.Port)
	log.Printf("🔗 内容端点: POST http://localhost:%s/tools/aippt", baseConfig.Port)

	setupGracefulShutdown(router, baseConfig.Host, baseConfig.Port)
}

// performHealthCheck 检查关键服务是否已注册
func performHealthCheck() error {
	container := di.GetContainer()

	criticalServices := []string{"llm", "deck", "prompt", "progress", "storage"}

	for _, serviceName := range criticalServices {
		if service := container.Get(serviceName); service == nil {
			return fmt.Errorf("关键服务未注册: %s", serviceName)
		}
	}

	log.Println("✅ 服务健康检查通过")
	return nil
}

// setupGracefulShutdown 启动服务器并等待信号优雅关闭
func setupGracefulShutdown(router *gin.Engine, host, port string) {
	srv := &http.Server{
		Addr:    host + ":" + port,
		Handler: router,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ 服务器强制关闭: %v", err)
	}

	log.Println("✅ 服务器优雅关闭完成")
}

// createDirectories 创建应用所需的目录结构
func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, "template"),
		cfg.PromptsDir,
		cfg.LogDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("创建目录失败 %s: %v", dir, err)
		}
	}
}
