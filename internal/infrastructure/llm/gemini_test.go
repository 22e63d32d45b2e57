package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"base-builder-api/internal/config"
)

func newTestGemini(serverURL string) *GeminiClient {
	return NewGeminiClient(&config.GeminiConfig{
		BaseURL: serverURL,
		APIKey:  "test-key",
		Model:   "gemini-2.0-flash",
	})
}

func TestGenerateContent(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": `{"baseName":"x"}`}}}},
			},
		})
	}))
	defer srv.Close()

	c := newTestGemini(srv.URL)
	text, err := c.GenerateContent(context.Background(), &GenerateRequest{
		SystemInstruction: "系统指令",
		Prompt:            "蔵書を管理したい",
		ResponseSchema:    map[string]any{"type": "OBJECT"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"baseName":"x"}`, text)

	// 请求体携带系统指令与输出形状约束
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "系统指令", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMIMEType)
	assert.NotNil(t, got.GenerationConfig.ResponseSchema)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
}

func TestGenerateContent_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid"},
		})
	}))
	defer srv.Close()

	c := newTestGemini(srv.URL)
	_, err := c.GenerateContent(context.Background(), &GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestGenerateContent_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	c := newTestGemini(srv.URL)
	_, err := c.GenerateContent(context.Background(), &GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}

func TestGenerateContent_EmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": ""}}}},
			},
		})
	}))
	defer srv.Close()

	c := newTestGemini(srv.URL)
	_, err := c.GenerateContent(context.Background(), &GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text")
}
