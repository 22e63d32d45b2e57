package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"base-builder-api/internal/application/provision"
	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	apperrors "base-builder-api/pkg/errors"
)

type fakeGenerator struct {
	schema *schema.Schema
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*schema.Schema, error) {
	return f.schema, f.err
}

type fakeProvisioner struct {
	result *provision.Result
	err    error
	called bool
}

func (f *fakeProvisioner) Provision(ctx context.Context, s *schema.Schema) (*provision.Result, error) {
	f.called = true
	return f.result, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.Limits.MaxPromptChars = 100
	return cfg
}

func performCreate(t *testing.T, h *BaseBuilderHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.POST("/api/create", h.CreateBase)

	req := httptest.NewRequest(http.MethodPost, "/api/create", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCreateBase_Success(t *testing.T) {
	gen := &fakeGenerator{schema: &schema.Schema{BaseName: "蔵書管理", Tables: []schema.Table{{Name: "本"}}}}
	prov := &fakeProvisioner{result: &provision.Result{
		BaseName: "蔵書管理",
		BaseURL:  "https://example.feishu.cn/base/bascn1",
		Summary:  provision.Summary{TotalTables: 1, SuccessfulTables: 1},
		Tables: []provision.TableResult{
			{TableName: "本", Status: provision.TableStatusSuccess, TableID: "tbl1", FieldsCreated: 2, RecordsAdded: 3},
		},
	}}
	h := NewBaseBuilderHandler(testConfig(), gen, prov)

	w := performCreate(t, h, `{"prompt": "蔵書を管理したい"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "蔵書管理", resp["baseName"])
	assert.Equal(t, "https://example.feishu.cn/base/bascn1", resp["baseUrl"])
	assert.True(t, prov.called)
}

func TestCreateBase_EmptyPrompt(t *testing.T) {
	prov := &fakeProvisioner{}
	h := NewBaseBuilderHandler(testConfig(), &fakeGenerator{}, prov)

	for _, body := range []string{`{}`, `{"prompt": "   "}`, `not json`} {
		w := performCreate(t, h, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, false, resp["success"])
		assert.NotEmpty(t, resp["error"])
		assert.NotEmpty(t, resp["timestamp"])
	}
	assert.False(t, prov.called)
}

func TestCreateBase_PromptTooLong(t *testing.T) {
	h := NewBaseBuilderHandler(testConfig(), &fakeGenerator{}, &fakeProvisioner{})

	long := make([]byte, 0, 200)
	for i := 0; i < 150; i++ {
		long = append(long, 'a')
	}
	w := performCreate(t, h, `{"prompt": "`+string(long)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBase_GenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: apperrors.New(apperrors.CodeSchemaGenFailed, "exhausted")}
	prov := &fakeProvisioner{}
	h := NewBaseBuilderHandler(testConfig(), gen, prov)

	w := performCreate(t, h, `{"prompt": "x"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, prov.called)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	// 对外文案稳定，不透出内部细节
	assert.NotContains(t, resp["error"], "exhausted")
}

func TestCreateBase_MissingCredentials(t *testing.T) {
	gen := &fakeGenerator{err: apperrors.New(apperrors.CodeConfigMissing, "generation api key not configured")}
	h := NewBaseBuilderHandler(testConfig(), gen, &fakeProvisioner{})

	w := performCreate(t, h, `{"prompt": "x"}`)
	// 配置缺失映射到该错误码既定的 HTTP 状态
	assert.Equal(t, apperrors.New(apperrors.CodeConfigMissing, "").HTTPStatus, w.Code)
}

func TestCreateBase_ProvisioningFailure(t *testing.T) {
	gen := &fakeGenerator{schema: &schema.Schema{BaseName: "x", Tables: []schema.Table{{Name: "t"}}}}
	prov := &fakeProvisioner{err: apperrors.New(apperrors.CodeBaseCreateFailed, "remote rejected")}
	h := NewBaseBuilderHandler(testConfig(), gen, prov)

	w := performCreate(t, h, `{"prompt": "x"}`)
	assert.Equal(t, apperrors.New(apperrors.CodeBaseCreateFailed, "").HTTPStatus, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
}
