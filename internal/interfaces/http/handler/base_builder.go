// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"base-builder-api/internal/application/provision"
	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	"base-builder-api/internal/interfaces/http/dto"
	apperrors "base-builder-api/pkg/errors"
	"base-builder-api/pkg/logger"
)

// SchemaGenerator 表结构生成的抽象
type SchemaGenerator interface {
	Generate(ctx context.Context, prompt string) (*schema.Schema, error)
}

// Provisioner 搭建编排的抽象
type Provisioner interface {
	Provision(ctx context.Context, s *schema.Schema) (*provision.Result, error)
}

// BaseBuilderHandler 从自由文本到 Base 搭建的入口处理器
type BaseBuilderHandler struct {
	cfg         *config.Config
	generator   SchemaGenerator
	provisioner Provisioner
}

// NewBaseBuilderHandler 创建处理器
func NewBaseBuilderHandler(cfg *config.Config, generator SchemaGenerator, provisioner Provisioner) *BaseBuilderHandler {
	return &BaseBuilderHandler{
		cfg:         cfg,
		generator:   generator,
		provisioner: provisioner,
	}
}

// CreateBase 从自由文本需求创建多表 Base
// @Summary 从自然语言创建 Base
// @Description 调用生成模型设计表结构，并在远端多维表格中搭建表/字段/示例数据
// @Tags Base
// @Accept json
// @Produce json
// @Param body body dto.CreateBaseRequest true "创建请求"
// @Success 200 {object} dto.CreateBaseResponse
// @Failure 400 {object} dto.FailureResponse
// @Failure 500 {object} dto.FailureResponse
// @Router /api/create [post]
func (h *BaseBuilderHandler) CreateBase(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateBaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.Failure(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := req.ValidatePrompt(h.cfg.Security.Limits.MaxPromptChars); err != nil {
		dto.Failure(c, http.StatusBadRequest, userMessage(err))
		return
	}

	logger.Info(ctx, "schema generation started", "prompt_chars", len(req.Prompt))

	s, err := h.generator.Generate(ctx, req.Prompt)
	if err != nil {
		logger.Error(ctx, "schema generation failed", err)
		h.fail(c, err)
		return
	}

	logger.Info(ctx, "schema generated", "base_name", s.BaseName, "tables", len(s.Tables))

	result, err := h.provisioner.Provision(ctx, s)
	if err != nil {
		logger.Error(ctx, "provisioning failed", err)
		h.fail(c, err)
		return
	}

	logger.Info(ctx, "provisioning finished",
		"base_name", result.BaseName,
		"successful_tables", result.Summary.SuccessfulTables,
		"failed_tables", result.Summary.FailedTables,
	)
	dto.Provisioned(c, result)
}

// fail 将应用错误映射为稳定的对外消息与 HTTP 状态
func (h *BaseBuilderHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if appErr, ok := err.(*apperrors.AppError); ok && appErr.HTTPStatus > 0 {
		status = appErr.HTTPStatus
	}
	dto.Failure(c, status, userMessage(err))
}

// userMessage 返回面向用户的稳定文案，内部诊断细节只进日志
func userMessage(err error) string {
	appErr := apperrors.AsAppError(err)
	switch appErr.Code {
	case apperrors.CodeConfigMissing:
		return "service credentials are not configured"
	case apperrors.CodeInvalidParam:
		return appErr.Message
	case apperrors.CodeAuthFailed:
		return "workspace authentication failed, check app credentials"
	case apperrors.CodeSchemaGenFailed:
		return "could not generate a schema from the request, try rephrasing"
	case apperrors.CodeBaseCreateFailed:
		return "failed to create the base in the workspace"
	case apperrors.CodeTooManyRequests:
		return "too many requests, slow down"
	default:
		return "unexpected error, try again later"
	}
}
