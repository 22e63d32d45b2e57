package builder

import (
	"context"
	"strings"
	"time"

	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	"base-builder-api/internal/infrastructure/llm"
	apperrors "base-builder-api/pkg/errors"
	"base-builder-api/pkg/logger"
	"base-builder-api/pkg/metrics"
	"base-builder-api/pkg/retry"
)

// ContentGenerator 生成端点的抽象，便于测试替换
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req *llm.GenerateRequest) (string, error)
	Model() string
}

// Generator 表结构生成器。
// 每次尝试依次经历：发送请求 -> 提取文本 -> 多策略解析 -> 结构校验，
// 任一环节失败都作为本次尝试的失败，指数退避后重试。
type Generator struct {
	client      ContentGenerator
	apiKey      string
	maxAttempts int
	baseBackoff time.Duration
	limits      schema.Limits
	sleep       retry.SleepFunc
}

// NewGenerator 创建生成器
func NewGenerator(cfg *config.GeminiConfig, limits schema.Limits, client ContentGenerator) *Generator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseBackoff := cfg.InitialBackoff
	if baseBackoff <= 0 {
		baseBackoff = time.Second
	}

	return &Generator{
		client:      client,
		apiKey:      cfg.APIKey,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		limits:      limits,
		sleep:       retry.Sleep,
	}
}

// Generate 从自由文本需求生成并校验表结构
func (g *Generator) Generate(ctx context.Context, prompt string) (*schema.Schema, error) {
	// 缺失 API Key 属于配置错误，直接失败，永不重试
	if strings.TrimSpace(g.apiKey) == "" {
		return nil, apperrors.New(apperrors.CodeConfigMissing, "generation api key not configured")
	}

	req := &llm.GenerateRequest{
		SystemInstruction: systemInstruction,
		Prompt:            buildUserPrompt(prompt),
		ResponseSchema:    responseSchema(),
	}

	model := g.client.Model()
	start := time.Now()

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 {
			// 每次重试的等待严格长于上一次
			if err := g.sleep(ctx, retry.Exponential(g.baseBackoff, attempt-1)); err != nil {
				break
			}
		}

		result, err := g.attempt(ctx, req)
		if err != nil {
			lastErr = err
			logger.Warn(ctx, "schema generation attempt failed",
				"attempt", attempt+1,
				"max_attempts", g.maxAttempts,
				"error", err.Error(),
			)
			continue
		}

		metrics.SchemaGenerationTotal.WithLabelValues(model, "success").Inc()
		metrics.SchemaGenerationDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
		metrics.SchemaGenerationAttempts.WithLabelValues(model).Observe(float64(attempt + 1))
		return result, nil
	}

	metrics.SchemaGenerationTotal.WithLabelValues(model, "error").Inc()
	metrics.SchemaGenerationDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	return nil, apperrors.Wrap(lastErr, apperrors.CodeSchemaGenFailed,
		"schema generation failed after all attempts")
}

// attempt 执行单次生成尝试
func (g *Generator) attempt(ctx context.Context, req *llm.GenerateRequest) (*schema.Schema, error) {
	text, err := g.client.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}

	s, err := ParseSchema(text)
	if err != nil {
		return nil, err
	}

	// 裁剪到策略边界后再做结构校验
	s.Clamp(g.limits)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
