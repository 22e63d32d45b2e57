package dto

import (
	"time"

	"github.com/gin-gonic/gin"

	"base-builder-api/internal/application/provision"
)

// CreateBaseResponse 创建成功的响应体。
// Base 创建成功整体即为成功，单表失败只体现在 summary/details 中。
type CreateBaseResponse struct {
	Success  bool                    `json:"success"`
	BaseName string                  `json:"baseName"`
	BaseURL  string                  `json:"baseUrl"`
	Summary  provision.Summary       `json:"summary"`
	Details  []provision.TableResult `json:"details"`
	TraceID  string                  `json:"trace_id,omitempty"`
}

// FailureResponse 失败响应体
type FailureResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Provisioned 返回搭建结果
func Provisioned(c *gin.Context, result *provision.Result) {
	c.JSON(200, CreateBaseResponse{
		Success:  true,
		BaseName: result.BaseName,
		BaseURL:  result.BaseURL,
		Summary:  result.Summary,
		Details:  result.Tables,
		TraceID:  c.GetString("trace_id"),
	})
}

// Failure 返回失败响应
func Failure(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, FailureResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   c.GetString("trace_id"),
	})
}
