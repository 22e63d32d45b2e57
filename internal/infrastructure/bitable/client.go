package bitable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"base-builder-api/internal/config"
	"base-builder-api/pkg/logger"
	"base-builder-api/pkg/metrics"
	"base-builder-api/pkg/retry"
)

var tracer = otel.Tracer("bitable")

// Client 多维表格 API 客户端。
// 所有调用携带 Bearer 凭证与 JSON 体，失败时按分类退避重试：
// 限流走指数退避，其余临时故障走线性退避。
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryOpts  retry.Options
}

// NewClient 创建 API 客户端，基础地址来自配置而非包级常量
func NewClient(cfg *config.BitableConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := retry.DefaultOptions()
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryOpts:  opts,
	}
}

// classify 将调用错误映射为重试分类
func classify(err error) retry.Class {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.RateLimited() {
			return retry.RateLimited
		}
		return retry.Transient
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Fatal
	}
	// 网络层错误视为临时故障
	return retry.Transient
}

// call 执行一次带重试的 API 调用，out 非 nil 时解析 data 字段。
// 注意：创建类调用并非幂等，失败后的重试存在重复建表/建字段的风险，
// 这里按名称键控的创建操作接受该风险。
func (c *Client) call(ctx context.Context, token, method, path string, body any, out any) error {
	ctx, span := tracer.Start(ctx, "bitable.call",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("bitable.path", path),
		))
	defer span.End()

	start := time.Now()
	err := retry.Do(ctx, c.retryOpts, classify, func(ctx context.Context) error {
		callErr := c.doOnce(ctx, token, method, path, body, out)
		if callErr != nil {
			reason := "transient"
			var apiErr *APIError
			if errors.As(callErr, &apiErr) && apiErr.RateLimited() {
				reason = "rate_limited"
			}
			metrics.BitableRetriesTotal.WithLabelValues(path, reason).Inc()
			logger.Warn(ctx, "bitable call failed", "path", path, "error", callErr.Error())
		}
		return callErr
	})

	metrics.BitableCallDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BitableCallTotal.WithLabelValues(path, "error").Inc()
		span.RecordError(err)
		return err
	}
	metrics.BitableCallTotal.WithLabelValues(path, "success").Inc()
	return nil
}

// doOnce 执行单次 HTTP 调用并检查应用级错误码
func (c *Client) doOnce(ctx context.Context, token, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope apiResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr != nil {
		return &APIError{Path: path, HTTPStatus: resp.StatusCode, Msg: "unparseable response body"}
	}

	// 应用级 code 与 HTTP 状态独立，HTTP 200 也可能携带失败码
	if resp.StatusCode != http.StatusOK || envelope.Code != codeOK {
		return &APIError{
			Path:       path,
			HTTPStatus: resp.StatusCode,
			Code:       envelope.Code,
			Msg:        envelope.Msg,
		}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &APIError{Path: path, HTTPStatus: resp.StatusCode, Msg: "unparseable data payload"}
		}
	}
	return nil
}

// CreateApp 创建 Base 容器
func (c *Client) CreateApp(ctx context.Context, token, name string) (*AppInfo, error) {
	var data createAppData
	err := c.call(ctx, token, http.MethodPost, "/bitable/v1/apps", createAppRequest{Name: name}, &data)
	if err != nil {
		return nil, err
	}
	return &data.App, nil
}

// CreateTable 在 Base 下创建数据表，返回表 ID
func (c *Client) CreateTable(ctx context.Context, token, appToken, name string) (string, error) {
	var data createTableData
	path := fmt.Sprintf("/bitable/v1/apps/%s/tables", appToken)
	err := c.call(ctx, token, http.MethodPost, path, createTableRequest{Name: name}, &data)
	if err != nil {
		return "", err
	}
	return data.TableID, nil
}

// CreateField 在数据表下创建字段
func (c *Client) CreateField(ctx context.Context, token, appToken, tableID, fieldName string, typeCode int, property map[string]any) error {
	path := fmt.Sprintf("/bitable/v1/apps/%s/tables/%s/fields", appToken, tableID)
	return c.call(ctx, token, http.MethodPost, path, createFieldRequest{
		FieldName: fieldName,
		Type:      typeCode,
		Property:  property,
	}, nil)
}

// BatchCreateRecords 批量插入记录，返回成功插入的行数
func (c *Client) BatchCreateRecords(ctx context.Context, token, appToken, tableID string, rows []map[string]any) (int, error) {
	records := make([]recordPayload, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordPayload{Fields: row})
	}

	var data batchCreateRecordsData
	path := fmt.Sprintf("/bitable/v1/apps/%s/tables/%s/records/batch_create", appToken, tableID)
	err := c.call(ctx, token, http.MethodPost, path, batchCreateRecordsRequest{Records: records}, &data)
	if err != nil {
		return 0, err
	}
	return len(data.Records), nil
}
