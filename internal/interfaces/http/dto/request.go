// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"
	"unicode/utf8"

	apperrors "base-builder-api/pkg/errors"
)

// CreateBaseRequest 创建 Base 的请求体
type CreateBaseRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ValidatePrompt 校验提示文本：非空、不超过字符上限
func (r *CreateBaseRequest) ValidatePrompt(maxChars int) error {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		return apperrors.New(apperrors.CodeInvalidParam, "prompt must not be empty")
	}
	if maxChars > 0 && utf8.RuneCountInString(prompt) > maxChars {
		return apperrors.New(apperrors.CodeInvalidParam, "prompt too long")
	}
	return nil
}
