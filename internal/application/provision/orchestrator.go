package provision

import (
	"context"
	"time"

	"base-builder-api/internal/config"
	"base-builder-api/internal/domain/schema"
	"base-builder-api/internal/infrastructure/bitable"
	apperrors "base-builder-api/pkg/errors"
	"base-builder-api/pkg/logger"
	"base-builder-api/pkg/metrics"
	"base-builder-api/pkg/retry"
)

// WorkspaceClient 远端多维表格 API 的抽象，便于测试替换
type WorkspaceClient interface {
	CreateApp(ctx context.Context, token, name string) (*bitable.AppInfo, error)
	CreateTable(ctx context.Context, token, appToken, name string) (string, error)
	CreateField(ctx context.Context, token, appToken, tableID, fieldName string, typeCode int, property map[string]any) error
	BatchCreateRecords(ctx context.Context, token, appToken, tableID string, rows []map[string]any) (int, error)
}

// TokenSource 租户凭证的抽象
type TokenSource interface {
	TenantAccessToken(ctx context.Context) (string, error)
}

// Orchestrator 搭建编排器。
// 同一 Base 内的写入不支持并发，表与字段严格顺序创建，
// 并在调用间插入停顿以尊重远端的每秒限额。
type Orchestrator struct {
	client WorkspaceClient
	tokens TokenSource

	tablePause time.Duration
	fieldPause time.Duration
	batchPause time.Duration
	batchSize  int

	sleep retry.SleepFunc
}

// NewOrchestrator 创建编排器，节奏参数来自配置
func NewOrchestrator(cfg *config.BitableConfig, client WorkspaceClient, tokens TokenSource) *Orchestrator {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	return &Orchestrator{
		client:     client,
		tokens:     tokens,
		tablePause: cfg.TablePause,
		fieldPause: cfg.FieldPause,
		batchPause: cfg.BatchPause,
		batchSize:  batchSize,
		sleep:      retry.Sleep,
	}
}

// Provision 将校验过的表结构落地为远端 Base。
// 凭证获取与 Base 创建失败对整次运行致命；
// 单表失败只记录结果，不影响其余表。
func (o *Orchestrator) Provision(ctx context.Context, s *schema.Schema) (*Result, error) {
	start := time.Now()

	result, err := o.provision(ctx, s)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ProvisionRunsTotal.WithLabelValues(status).Inc()
	metrics.ProvisionRunDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) provision(ctx context.Context, s *schema.Schema) (*Result, error) {
	ctx = logger.WithContext(ctx, logger.BaseNameKey, s.BaseName)

	// 凭证整次运行只获取一次，所有表操作共用
	token, err := o.tokens.TenantAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	app, err := o.client.CreateApp(ctx, token, s.BaseName)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeBaseCreateFailed, "failed to create base")
	}
	logger.Info(ctx, "base created", "app_token", app.AppToken, "url", app.URL)

	result := &Result{
		BaseName: s.BaseName,
		AppToken: app.AppToken,
		BaseURL:  app.URL,
		Tables:   make([]TableResult, 0, len(s.Tables)),
	}

	for i := range s.Tables {
		outcome := o.provisionTable(ctx, token, app.AppToken, &s.Tables[i])
		result.Tables = append(result.Tables, outcome)

		metrics.ProvisionTablesTotal.WithLabelValues(string(outcome.Status)).Inc()
		result.Summary.TotalTables++
		if outcome.Status == TableStatusSuccess {
			result.Summary.SuccessfulTables++
		} else {
			result.Summary.FailedTables++
		}
	}

	return result, nil
}

// provisionTable 搭建单表：建表 -> 建字段 -> 插入示例行。
// 表创建成功后的任何局部失败都不改变 success 状态。
func (o *Orchestrator) provisionTable(ctx context.Context, token, appToken string, t *schema.Table) TableResult {
	outcome := TableResult{TableName: t.Name}

	tableID, err := o.client.CreateTable(ctx, token, appToken, t.Name)
	if err != nil {
		logger.Error(ctx, "failed to create table", err, "table", t.Name)
		outcome.Status = TableStatusFailed
		outcome.Error = err.Error()
		return outcome
	}
	outcome.TableID = tableID
	outcome.Status = TableStatusSuccess

	o.pause(ctx, o.tablePause)

	for _, f := range t.Fields {
		mapping := schema.MapFieldType(f.Type, f.Options)
		if mapping == nil {
			// 词汇表之外的类型跳过，不中止整表
			logger.Warn(ctx, "unsupported field type, skipping field",
				"table", t.Name, "field", f.Name, "type", f.Type)
			continue
		}

		if err := o.client.CreateField(ctx, token, appToken, tableID, f.Name, mapping.TypeCode, mapping.Property); err != nil {
			// 部分字段集可接受：记录并继续下一个字段
			logger.Error(ctx, "failed to create field", err, "table", t.Name, "field", f.Name)
			continue
		}
		outcome.FieldsCreated++
		o.pause(ctx, o.fieldPause)
	}

	if outcome.FieldsCreated > 0 && t.SampleDataCount > 0 {
		outcome.RecordsAdded = o.insertSampleRows(ctx, token, appToken, tableID, t)
	}

	logger.Info(ctx, "table provisioned",
		"table", t.Name,
		"table_id", tableID,
		"fields_created", outcome.FieldsCreated,
		"records_added", outcome.RecordsAdded,
	)
	return outcome
}

// insertSampleRows 合成示例行并按固定大小分批插入。
// 失败的批次记录后跳过（重试已在 API 客户端内部完成），
// 返回成功插入的行数。
func (o *Orchestrator) insertSampleRows(ctx context.Context, token, appToken, tableID string, t *schema.Table) int {
	rows := make([]map[string]any, 0, t.SampleDataCount)
	for i := 0; i < t.SampleDataCount; i++ {
		// 全字段都合成不出值的行整行丢弃
		if row := schema.SynthesizeRow(t.Fields, i); row != nil {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return 0
	}

	inserted := 0
	for start := 0; start < len(rows); start += o.batchSize {
		end := start + o.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		count, err := o.client.BatchCreateRecords(ctx, token, appToken, tableID, rows[start:end])
		if err != nil {
			logger.Error(ctx, "failed to insert sample batch", err,
				"table", t.Name, "batch_start", start, "batch_size", end-start)
			continue
		}
		inserted += count
		o.pause(ctx, o.batchPause)
	}
	return inserted
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	_ = o.sleep(ctx, d)
}
