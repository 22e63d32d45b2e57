// Package bitable 封装多维表格开放 API 的调用
package bitable

import (
	"encoding/json"
	"fmt"
)

// 远端应用级错误码
const (
	codeOK int = 0

	// 限流相关的应用级错误码，与 HTTP 429 同等对待
	codeTooManyRequests        int = 99991400
	codeBitableTooManyRequests int = 1254290
)

// apiResponse 远端响应的公共外壳。
// code 为应用级结果，与 HTTP 状态无关，0 才是成功。
type apiResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// APIError 远端调用失败，携带应用错误码与请求路径
type APIError struct {
	Path       string
	HTTPStatus int
	Code       int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitable api %s failed: http=%d code=%d msg=%s", e.Path, e.HTTPStatus, e.Code, e.Msg)
}

// RateLimited 判断该错误是否属于限流
func (e *APIError) RateLimited() bool {
	return e.HTTPStatus == 429 || e.Code == codeTooManyRequests || e.Code == codeBitableTooManyRequests
}

// AppInfo 新建 Base 的标识信息
type AppInfo struct {
	AppToken string `json:"app_token"`
	URL      string `json:"url"`
}

type createAppRequest struct {
	Name string `json:"name"`
}

type createAppData struct {
	App AppInfo `json:"app"`
}

type createTableRequest struct {
	Name string `json:"name"`
}

type createTableData struct {
	TableID string `json:"table_id"`
}

type createFieldRequest struct {
	FieldName string         `json:"field_name"`
	Type      int            `json:"type"`
	Property  map[string]any `json:"property,omitempty"`
}

type batchCreateRecordsRequest struct {
	Records []recordPayload `json:"records"`
}

type recordPayload struct {
	Fields map[string]any `json:"fields"`
}

type batchCreateRecordsData struct {
	Records []struct {
		RecordID string `json:"record_id"`
	} `json:"records"`
}

type tenantTokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type tenantTokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}
