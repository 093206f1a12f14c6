// internal/api/handlers_test.go
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SlideCraftMCP/internal/config"
	"github.com/Corphon/SlideCraftMCP/internal/llm"
	"github.com/Corphon/SlideCraftMCP/internal/services"
	"github.com/Corphon/SlideCraftMCP/internal/storage"
)

// scriptedStream 一次流式调用的预设输出
type scriptedStream struct {
	fragments []string
	err       string
}

type stubProvider struct {
	mu      sync.Mutex
	scripts []scriptedStream
	calls   int
}

func (p *stubProvider) Initialize(config map[string]string) error { return nil }

func (p *stubProvider) GetName() string { return "Stub" }

func (p *stubProvider) GetSupportedModels() []string { return []string{"stub-model"} }

func (p *stubProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Text: "ok", ProviderName: "Stub"}, nil
}

func (p *stubProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	p.mu.Lock()
	var script scriptedStream
	if p.calls < len(p.scripts) {
		script = p.scripts[p.calls]
	}
	p.calls++
	p.mu.Unlock()

	ch := make(chan llm.StreamResponse)
	go func() {
		defer close(ch)
		for _, fragment := range script.fragments {
			select {
			case ch <- llm.StreamResponse{Text: fragment}:
			case <-ctx.Done():
				return
			}
		}
		if script.err != "" {
			ch <- llm.StreamResponse{Done: true, FinishReason: "error", Err: script.err}
			return
		}
		ch <- llm.StreamResponse{Done: true, FinishReason: "stop"}
	}()

	return ch, nil
}

// newTestHandler 构建依赖全部就位的处理器与路由
func newTestHandler(t *testing.T, scripts []scriptedStream) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tempDir := t.TempDir()
	dataDir := filepath.Join(tempDir, "data")
	promptsDir := filepath.Join(tempDir, "prompts")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("PROMPTS_DIR", promptsDir)
	t.Setenv("LOG_DIR", filepath.Join(tempDir, "logs"))
	t.Setenv("OPENAI_API_KEY", "")

	if err := config.InitConfig(dataDir); err != nil {
		t.Fatalf("初始化配置失败: %v", err)
	}

	templates := map[string]string{
		services.TemplateOutline:        "outline: {content} / {language}",
		services.TemplateCoverContents:  "cover: {content} / {language}",
		services.TemplateSectionContent: "section: {section_title} / {section_content}",
	}
	if err := os.MkdirAll(promptsDir, 0755); err != nil {
		t.Fatalf("创建模板目录失败: %v", err)
	}
	for name, body := range templates {
		if err := os.WriteFile(filepath.Join(promptsDir, name), []byte(body), 0644); err != nil {
			t.Fatalf("写入模板失败: %v", err)
		}
	}

	promptStorage, err := storage.NewFileStorage(promptsDir)
	if err != nil {
		t.Fatalf("创建提示词存储失败: %v", err)
	}
	promptService, err := services.NewPromptService(promptStorage)
	if err != nil {
		t.Fatalf("创建提示词服务失败: %v", err)
	}

	dataStorage, err := storage.NewFileStorage(dataDir)
	if err != nil {
		t.Fatalf("创建数据存储失败: %v", err)
	}

	llmService := services.NewLLMServiceWithProvider("stub", &stubProvider{scripts: scripts})
	deckService := services.NewDeckService(llmService, promptService)
	progressService := services.NewProgressService()

	handler := NewHandler(deckService, llmService, promptService, progressService, dataStorage)

	router := gin.New()
	router.GET("/", handler.Root)
	router.GET("/health", handler.HealthCheck)
	router.GET("/data/:filename", handler.GetDataFile)
	router.POST("/tools/aippt_outline", handler.GenerateOutlineStream)
	router.POST("/tools/aippt", handler.GenerateDeckStream)

	return handler, router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestHandler(t, nil)

	w := doRequest(router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("响应体错误: %s", w.Body.String())
	}
}

func TestRoot(t *testing.T) {
	_, router := newTestHandler(t, nil)

	w := doRequest(router, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/tools/aippt_outline") {
		t.Errorf("根路径应列出端点: %s", w.Body.String())
	}
}

func TestGetDataFile(t *testing.T) {
	handler, router := newTestHandler(t, nil)

	if err := handler.DataStorage.SaveTextFile("template", "default.json",
		[]byte(`{"theme": "default"}`)); err != nil {
		t.Fatalf("写入模板文件失败: %v", err)
	}

	w := doRequest(router, http.MethodGet, "/data/default.json", "")
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "default") {
		t.Errorf("响应体错误: %s", w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/data/missing.json", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("不存在的文件应返回404: %d", w.Code)
	}
}

// TestOutlineValidation 缺失参数或超长内容返回422
func TestOutlineValidation(t *testing.T) {
	_, router := newTestHandler(t, nil)

	// 缺失content
	w := doRequest(router, http.MethodPost, "/tools/aippt_outline",
		`{"language": "Chinese"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("缺失content应返回422: %d", w.Code)
	}

	// content超过50字符
	long := strings.Repeat("很", 51)
	w = doRequest(router, http.MethodPost, "/tools/aippt_outline",
		`{"language": "Chinese", "content": "`+long+`"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("超长content应返回422: %d", w.Code)
	}
}

func TestOutlineStream(t *testing.T) {
	_, router := newTestHandler(t, []scriptedStream{
		{fragments: []string{"# 大纲标题\n", "## 第一章\n"}},
	})

	w := doRequest(router, http.MethodPost, "/tools/aippt_outline",
		`{"language": "Chinese", "content": "人工智能"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d, body=%s", w.Code, w.Body.String())
	}

	want := "# 大纲标题\n## 第一章\n"
	if w.Body.String() != want {
		t.Errorf("流式输出错误:\n期望: %q\n实际: %q", want, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type错误: %s", ct)
	}
}

// TestDeckStream 分步流输出与模型原始文本逐字节一致，末尾为结束标记
func TestDeckStream(t *testing.T) {
	_, router := newTestHandler(t, []scriptedStream{
		{fragments: []string{"封面\n\n目录\n\n"}},
		{fragments: []string{"章节内容\n\n"}},
	})

	body := `{"language": "Chinese", "content": "# 标题\n## 第一章\n### 小节\n- 要点"}`
	w := doRequest(router, http.MethodPost, "/tools/aippt", body)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码错误: %d, body=%s", w.Code, w.Body.String())
	}

	got := w.Body.String()
	want := "封面\n\n目录\n\n章节内容\n\n" + `{"type": "end"}`
	if got != want {
		t.Errorf("流式输出错误:\n期望: %q\n实际: %q", want, got)
	}

	if w.Header().Get("X-Task-ID") == "" {
		t.Error("应返回X-Task-ID响应头")
	}
}

// TestDeckStreamNotConfigured LLM未就绪时返回500
func TestDeckStreamNotConfigured(t *testing.T) {
	handler, router := newTestHandler(t, nil)

	// 换成未就绪的服务
	handler.DeckService = services.NewDeckService(
		services.NewLLMService(), handler.PromptService)

	w := doRequest(router, http.MethodPost, "/tools/aippt",
		`{"language": "Chinese", "content": "# 标题"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("未配置时应返回500: %d, body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Errorf("响应体错误: %s", w.Body.String())
	}
}
