package bitable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"base-builder-api/internal/config"
)

// newTestClient 指向测试服务器，退避等待替换为记录器
func newTestClient(serverURL string, waits *[]time.Duration) *Client {
	c := NewClient(&config.BitableConfig{
		BaseURL:    serverURL,
		MaxRetries: 3,
		Timeout:    5 * time.Second,
	})
	c.retryOpts.Sleep = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
	return c
}

func TestCreateApp(t *testing.T) {
	var waits []time.Duration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bitable/v1/apps", r.URL.Path)
		assert.Equal(t, "Bearer t-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "プロジェクト管理", body["name"])

		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"msg":  "success",
			"data": map[string]any{
				"app": map[string]string{
					"app_token": "bascn123",
					"url":       "https://example.feishu.cn/base/bascn123",
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	app, err := c.CreateApp(context.Background(), "t-token", "プロジェクト管理")
	require.NoError(t, err)
	assert.Equal(t, "bascn123", app.AppToken)
	assert.Equal(t, "https://example.feishu.cn/base/bascn123", app.URL)
	assert.Empty(t, waits)
}

func TestCall_ApplicationCodeFailureOnHTTP200(t *testing.T) {
	var waits []time.Duration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 但应用级 code 非 0，仍是失败
		json.NewEncoder(w).Encode(map[string]any{"code": 1254001, "msg": "invalid app token"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	_, err := c.CreateTable(context.Background(), "t", "bad-token", "表")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.HTTPStatus)
	assert.Equal(t, 1254001, apiErr.Code)
	// 非限流失败按临时故障线性退避重试
	assert.Len(t, waits, 3)
}

func TestCall_RateLimitRetriesExponentially(t *testing.T) {
	var waits []time.Duration
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{"code": 99991400, "msg": "rate limited"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]string{"table_id": "tbl001"},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	tableID, err := c.CreateTable(context.Background(), "t", "bascn123", "タスク")
	require.NoError(t, err)
	assert.Equal(t, "tbl001", tableID)
	assert.Equal(t, 3, calls)

	// 限流退避逐次翻倍
	require.Len(t, waits, 2)
	assert.Equal(t, 2*waits[0], waits[1])
}

func TestCall_BitableRateLimitCode(t *testing.T) {
	err := &APIError{HTTPStatus: http.StatusOK, Code: 1254290}
	assert.True(t, err.RateLimited())
	assert.True(t, (&APIError{HTTPStatus: 429}).RateLimited())
	assert.False(t, (&APIError{HTTPStatus: 500, Code: 1254001}).RateLimited())
}

func TestCreateField(t *testing.T) {
	var waits []time.Duration
	var got createFieldRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitable/v1/apps/bascn123/tables/tbl001/fields", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{"code": 0})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	err := c.CreateField(context.Background(), "t", "bascn123", "tbl001", "ランク", 3,
		map[string]any{"options": []map[string]any{{"name": "S"}}})
	require.NoError(t, err)
	assert.Equal(t, "ランク", got.FieldName)
	assert.Equal(t, 3, got.Type)
	assert.NotNil(t, got.Property)
}

func TestBatchCreateRecords(t *testing.T) {
	var waits []time.Duration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bitable/v1/apps/bascn123/tables/tbl001/records/batch_create", r.URL.Path)

		var req batchCreateRecordsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Records, 2)

		json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{
				"records": []map[string]string{
					{"record_id": "rec1"},
					{"record_id": "rec2"},
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	n, err := c.BatchCreateRecords(context.Background(), "t", "bascn123", "tbl001", []map[string]any{
		{"タイトル": "Sample text 1"},
		{"タイトル": "Sample text 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCall_UnparseableBody(t *testing.T) {
	var waits []time.Duration
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, &waits)
	_, err := c.CreateApp(context.Background(), "t", "x")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Msg, "unparseable")
}
