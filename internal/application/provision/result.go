// Package provision 将抽象表结构落地为远端多维表格
package provision

// TableStatus 单表搭建结果状态
type TableStatus string

const (
	TableStatusSuccess TableStatus = "success"
	TableStatusFailed  TableStatus = "failed"
)

// TableResult 单表搭建结果。
// 表本身创建成功即为 success，缺字段或缺示例行不改变状态。
type TableResult struct {
	TableName     string      `json:"tableName"`
	Status        TableStatus `json:"status"`
	TableID       string      `json:"tableId,omitempty"`
	FieldsCreated int         `json:"fieldsCreated"`
	RecordsAdded  int         `json:"recordsAdded"`
	Error         string      `json:"error,omitempty"`
}

// Summary 整体结果汇总
type Summary struct {
	TotalTables      int `json:"totalTables"`
	SuccessfulTables int `json:"successfulTables"`
	FailedTables     int `json:"failedTables"`
}

// Result 一次搭建运行的结果
type Result struct {
	BaseName string        `json:"baseName"`
	AppToken string        `json:"appToken"`
	BaseURL  string        `json:"baseUrl"`
	Summary  Summary       `json:"summary"`
	Tables   []TableResult `json:"tables"`
}
