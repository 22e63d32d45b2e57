package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	"base-builder-api/internal/infrastructure/llm"
	apperrors "base-builder-api/pkg/errors"
)

// fakeLLM 按预设脚本逐次返回响应
type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeLLM) GenerateContent(ctx context.Context, req *llm.GenerateRequest) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func (f *fakeLLM) Model() string { return "test-model" }

func newTestGenerator(client ContentGenerator, maxAttempts int) (*Generator, *[]time.Duration) {
	cfg := &config.GeminiConfig{
		APIKey:         "test-key",
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Second,
	}
	g := NewGenerator(cfg, schema.DefaultLimits(), client)

	var waits []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return g, &waits
}

func TestGenerate_SucceedsFirstAttempt(t *testing.T) {
	client := &fakeLLM{responses: []string{validSchemaJSON}}
	g, waits := newTestGenerator(client, 5)

	s, err := g.Generate(context.Background(), "書籍を管理したい")
	require.NoError(t, err)
	assert.Equal(t, "書籍管理", s.BaseName)
	assert.Equal(t, 1, client.calls)
	assert.Empty(t, *waits)
}

func TestGenerate_RetriesOnGarbageThenSucceeds(t *testing.T) {
	client := &fakeLLM{responses: []string{"not json at all", "```json\n" + validSchemaJSON + "\n```"}}
	g, waits := newTestGenerator(client, 5)

	s, err := g.Generate(context.Background(), "書籍を管理したい")
	require.NoError(t, err)
	assert.Equal(t, "書籍管理", s.BaseName)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestGenerate_AttemptCeiling(t *testing.T) {
	client := &fakeLLM{errs: []error{
		errors.New("e1"), errors.New("e2"), errors.New("e3"),
		errors.New("e4"), errors.New("e5"), errors.New("e6"),
	}}
	g, waits := newTestGenerator(client, 5)

	s, err := g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Nil(t, s)
	// 恰好 maxAttempts 次调用，不多不少
	assert.Equal(t, 5, client.calls)

	// 退避等待严格递增
	require.Len(t, *waits, 4)
	for i := 1; i < len(*waits); i++ {
		assert.Greater(t, (*waits)[i], (*waits)[i-1])
	}
	assert.Equal(t, time.Second, (*waits)[0])
	assert.Equal(t, 8*time.Second, (*waits)[3])

	assert.True(t, apperrors.IsCode(err, apperrors.CodeSchemaGenFailed))
}

func TestGenerate_MissingAPIKeyFailsFast(t *testing.T) {
	client := &fakeLLM{responses: []string{validSchemaJSON}}
	cfg := &config.GeminiConfig{APIKey: "  "}
	g := NewGenerator(cfg, schema.DefaultLimits(), client)

	s, err := g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfigMissing))
	// 配置错误不触发任何远端调用
	assert.Equal(t, 0, client.calls)
}

func TestGenerate_ValidationFailureCountsAsAttempt(t *testing.T) {
	// 解析成功但结构非法（无表）也要重试
	invalid := `{"baseName": "x", "tables": []}`
	client := &fakeLLM{responses: []string{invalid, validSchemaJSON}}
	g, _ := newTestGenerator(client, 5)

	s, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "書籍管理", s.BaseName)
}

func TestGenerate_ClampsOversizedSchema(t *testing.T) {
	oversized := `{"baseName": "big", "tables": [
		{"name": "t1", "sampleDataCount": 999, "fields": [{"name": "f", "type": "text"}]}
	]}`
	client := &fakeLLM{responses: []string{oversized}}
	g, _ := newTestGenerator(client, 5)

	s, err := g.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, schema.DefaultLimits().MaxSampleRows, s.Tables[0].SampleDataCount)
}

func TestGenerate_CanceledContextStopsRetrying(t *testing.T) {
	client := &fakeLLM{errs: []error{errors.New("e1"), errors.New("e2")}}
	g, _ := newTestGenerator(client, 5)
	g.sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	_, err := g.Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, 1, client.calls)
}
