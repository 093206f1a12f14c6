// internal/api/websocket.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/models"
	"github.com/Corphon/SlideCraftMCP/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该进行更严格的检查
		return true
	},
}

const wsWriteTimeout = 10 * time.Second

// wsGenerateRequest WebSocket上的生成请求帧
type wsGenerateRequest struct {
	Model    string `json:"model"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// DeckWebSocket 通过WebSocket推送完整页面记录的单向生成通道
// 客户端发送一帧JSON请求，服务端按序推送页面帧，end页之后关闭连接
func (h *Handler) DeckWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Errorf("WebSocket升级失败: %v", err)
		return
	}
	defer conn.Close()

	var req wsGenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		utils.GetLogger().Warnf("WebSocket请求帧解析失败: %v", err)
		writeWSError(conn, "无效的请求帧")
		return
	}

	if req.Language == "" || req.Content == "" {
		writeWSError(conn, "缺少必填参数: language, content")
		return
	}

	// 升级后的连接不再随请求生命周期取消，显式持有取消函数
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pages, err := h.DeckService.GenerateDeck(ctx, models.DeckRequest{
		Model:    req.Model,
		Language: req.Language,
		Content:  req.Content,
	}, nil)
	if err != nil {
		writeWSError(conn, "OpenAI API Key not configured")
		return
	}

	for page := range pages {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(page); err != nil {
			// 客户端断开，依赖请求上下文取消上游生成
			utils.GetLogger().Warnf("WebSocket写入失败: %v", err)
			return
		}
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "生成完成"))
}

// writeWSError 发送一帧错误消息
func writeWSError(conn *websocket.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	conn.WriteJSON(map[string]string{"error": message})
}
