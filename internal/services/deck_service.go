// internal/services/deck_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Corphon/SlideCraftMCP/internal/config"
	apperrors "github.com/Corphon/SlideCraftMCP/internal/errors"
	"github.com/Corphon/SlideCraftMCP/internal/llm"
	"github.com/Corphon/SlideCraftMCP/internal/models"
	"github.com/Corphon/SlideCraftMCP/internal/outline"
	"github.com/Corphon/SlideCraftMCP/internal/segmenter"
	"github.com/Corphon/SlideCraftMCP/internal/utils"
)

// EndSentinel 页面序列的固定结束标记
const EndSentinel = `{"type": "end"}`

// DeckService 编排三个生成阶段，把模型输出重组为有序页面流
type DeckService struct {
	llm     *LLMService
	prompts *PromptService
}

// NewDeckService 创建生成编排服务
func NewDeckService(llmService *LLMService, promptService *PromptService) *DeckService {
	return &DeckService{
		llm:     llmService,
		prompts: promptService,
	}
}

// temperature 返回配置的默认采样温度
func (s *DeckService) temperature() float64 {
	return config.GetCurrentConfig().DefaultTemperature
}

// resolveModel 请求未指定模型时回落到配置默认值
func (s *DeckService) resolveModel(model string) string {
	if model != "" {
		return model
	}
	return config.GetCurrentConfig().DefaultModel
}

// GenerateOutline 生成PPT大纲，原样透传模型的片段流（不做分页切分）
// 流开始前的失败（模板缺失、提供者未就绪）作为配置错误返回
func (s *DeckService) GenerateOutline(ctx context.Context, req models.OutlineRequest) (<-chan string, error) {
	prompt, err := s.prompts.Render(TemplateOutline, map[string]string{
		"content":  req.Content,
		"language": req.Language,
	})
	if err != nil {
		return nil, err
	}

	stream, err := s.llm.Stream(ctx, prompt, s.resolveModel(req.Model), s.temperature())
	if err != nil {
		return nil, apperrors.NewConfigurationError("无法发起大纲生成调用", err)
	}

	metrics := utils.GetMetricsCollector()
	metrics.IncrementCounter(utils.MetricOutlineRequests)
	metrics.AddGauge(utils.MetricActiveStreams, 1)

	out := make(chan string)

	go func() {
		defer close(out)
		defer metrics.AddGauge(utils.MetricActiveStreams, -1)

		for resp := range stream {
			if resp.FinishReason == "error" {
				// 中途失败：输出一条错误文本后结束，保持流的完整性
				metrics.IncrementCounter(utils.MetricGenerationError)
				utils.GetLogger().Errorf("大纲生成中途失败: %s", resp.Err)
				select {
				case out <- fmt.Sprintf("Error: 生成过程中出错: %s", resp.Err):
				case <-ctx.Done():
				}
				return
			}

			if resp.Text == "" {
				continue
			}

			select {
			case out <- resp.Text:
			case <-ctx.Done():
				// 消费方已放弃，丢弃剩余事件让上游协程退出
				go drainStream(stream)
				return
			}
		}
	}()

	return out, nil
}

// GenerateDeck 生成完整PPT内容页面流：
// 封面目录阶段、逐章节内容阶段，最后无条件追加结束哨兵页
// 页码全局连续，阶段间严格顺序执行，单个阶段失败不影响后续阶段
func (s *DeckService) GenerateDeck(ctx context.Context, req models.DeckRequest, tracker *ProgressTracker) (<-chan models.Page, error) {
	if !s.llm.IsReady() {
		return nil, apperrors.NewConfigurationError("OpenAI API密钥未配置", nil)
	}

	// 大纲解析永不失败，结构为空的结果也会继续走生成管线
	doc := outline.Parse(req.Content)

	coverPrompt, err := s.prompts.Render(TemplateCoverContents, map[string]string{
		"language": req.Language,
		"content":  req.Content,
	})
	if err != nil {
		return nil, err
	}

	model := s.resolveModel(req.Model)
	temperature := s.temperature()

	metrics := utils.GetMetricsCollector()
	metrics.IncrementCounter(utils.MetricDeckRequests)

	out := make(chan models.Page)

	go func() {
		defer close(out)

		logger := utils.GetLogger()
		totalPhases := len(doc.Chapters) + 1
		seq := 0

		// emit 赋予全局页码后发送，返回false表示消费方已取消
		emit := func(page models.Page) bool {
			seq++
			page.Seq = seq
			select {
			case out <- page:
				metrics.IncrementCounter(utils.MetricPagesEmitted)
				return true
			case <-ctx.Done():
				return false
			}
		}

		// 第一步：封面页和目录页
		logger.Infof("开始生成封面和目录页: title=%s, chapters=%d", doc.Title, len(doc.Chapters))
		if tracker != nil {
			tracker.UpdateProgress(0, "正在生成封面和目录页...")
		}
		if !s.runPhase(ctx, coverPrompt, model, temperature, models.PhaseCoverContents, emit) {
			return
		}

		// 第二步：逐章节生成过渡页和内容页
		for idx, chapter := range doc.Chapters {
			logger.Infof("开始生成第 %d 章: %s", idx+1, chapter.Title)
			if tracker != nil {
				progress := (idx + 1) * 100 / totalPhases
				tracker.UpdateProgress(progress, fmt.Sprintf("正在生成第 %d/%d 章: %s", idx+1, len(doc.Chapters), chapter.Title))
			}

			// 章节子提示词使用与解析格式对称的大纲标记
			sectionPrompt, err := s.prompts.Render(TemplateSectionContent, map[string]string{
				"language":        req.Language,
				"section_title":   chapter.Title,
				"section_content": outline.SerializeChapter(chapter),
			})
			if err != nil {
				// 模板在启动时已加载，这里的失败按阶段错误处理而非中断整个流
				seg := segmenter.New(models.PhaseChapter)
				if !emit(seg.ErrorPage(fmt.Sprintf("生成过程中出错: %v", err))) {
					return
				}
				continue
			}

			if !s.runPhase(ctx, sectionPrompt, model, temperature, models.PhaseChapter, emit) {
				return
			}
		}

		// 第三步：结束哨兵页，无论前面是否出错都追加
		if emit(models.Page{Phase: models.PhaseEnd, RawText: EndSentinel}) {
			metrics.IncrementCounter(utils.MetricDecksCompleted)
			logger.Infof("PPT内容生成完成，共 %d 页", seq)
			if tracker != nil {
				tracker.Complete(fmt.Sprintf("生成完成，共 %d 页", seq))
			}
		}
	}()

	return out, nil
}

// runPhase 执行一个生成阶段：发起一次流式调用并把片段切分为页面
// 返回false表示消费方已取消，整个管线应当停止
// 阶段内的生成失败被吸收为单个错误页，不向外传播
func (s *DeckService) runPhase(ctx context.Context, prompt, model string, temperature float64, phase models.PagePhase, emit func(models.Page) bool) bool {
	metrics := utils.GetMetricsCollector()
	start := time.Now()
	defer metrics.ObserveDuration(utils.MetricPhaseDuration, start)

	seg := segmenter.New(phase)

	stream, err := s.llm.Stream(ctx, prompt, model, temperature)
	if err != nil {
		// 调用未能建立也算本阶段的生成失败
		metrics.IncrementCounter(utils.MetricGenerationError)
		utils.GetLogger().Errorf("生成调用失败 (%s): %v", phase, err)
		return emit(seg.ErrorPage(fmt.Sprintf("生成过程中出错: %v", err)))
	}

	for resp := range stream {
		if resp.FinishReason == "error" {
			// 丢弃缓冲中的不完整内容，以单个错误页终止本阶段
			metrics.IncrementCounter(utils.MetricGenerationError)
			utils.GetLogger().Errorf("生成中途失败 (%s): %s", phase, resp.Err)
			ok := emit(seg.ErrorPage(fmt.Sprintf("生成过程中出错: %s", resp.Err)))
			go drainStream(stream)
			return ok
		}

		if resp.Text == "" {
			continue
		}

		for _, page := range seg.Push(resp.Text) {
			if !emit(page) {
				go drainStream(stream)
				return false
			}
		}
	}

	// 刷出最后一页未终止的内容
	if page, ok := seg.Flush(); ok {
		return emit(page)
	}

	return true
}

// drainStream 丢弃剩余事件，确保提供者协程能够退出
// 底层连接已随上下文取消关闭，这里只是清空通道
func drainStream(stream <-chan llm.StreamResponse) {
	for range stream {
	}
}
