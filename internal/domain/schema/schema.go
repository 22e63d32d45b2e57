// Package schema 定义 AI 生成的抽象表结构及其校验规则
package schema

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// OptionsKey 选择肢字符串在 options 中的固定键
const OptionsKey = "選択肢文字列"

// Schema AI 生成的抽象库结构，是生成器与搭建器之间的契约
type Schema struct {
	BaseName string  `json:"baseName"`
	Tables   []Table `json:"tables"`
}

// Table 抽象数据表
type Table struct {
	Name            string  `json:"name"`
	Fields          []Field `json:"fields"`
	SampleDataCount int     `json:"sampleDataCount"`
}

// Field 抽象字段
type Field struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Options map[string]string `json:"options,omitempty"`
}

// OptionList 解析字段的选择肢列表：按逗号拆分、去空白、丢弃空项
func (f Field) OptionList() []string {
	raw := ""
	if f.Options != nil {
		raw = f.Options[OptionsKey]
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	options := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			options = append(options, p)
		}
	}
	return options
}

// Limits 校验与裁剪的策略边界
type Limits struct {
	MaxTables     int
	MaxFields     int
	MaxSampleRows int
}

// DefaultLimits 返回默认策略边界
func DefaultLimits() Limits {
	return Limits{
		MaxTables:     10,
		MaxFields:     15,
		MaxSampleRows: 20,
	}
}

// ValidationError 结构校验失败
type ValidationError struct {
	Issues []string
}

func (e ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "schema validation failed"
	}
	return "schema validation failed: " + strings.Join(e.Issues, "; ")
}

// Validate 对生成结果做结构校验，避免脏结构进入搭建流程
func (s *Schema) Validate() error {
	var issues []string
	if s == nil {
		return ValidationError{Issues: []string{"schema is nil"}}
	}

	if strings.TrimSpace(s.BaseName) == "" {
		issues = append(issues, "baseName is required")
	} else if utf8.RuneCountInString(s.BaseName) > 255 {
		issues = append(issues, "baseName too long")
	}

	if len(s.Tables) == 0 {
		issues = append(issues, "tables must not be empty")
	}

	for i := range s.Tables {
		t := s.Tables[i]
		path := fmt.Sprintf("tables[%d]", i)

		if strings.TrimSpace(t.Name) == "" {
			issues = append(issues, path+".name is required")
		}
		if t.SampleDataCount < 0 {
			issues = append(issues, path+".sampleDataCount must not be negative")
		}
		for j := range t.Fields {
			if strings.TrimSpace(t.Fields[j].Name) == "" {
				issues = append(issues, fmt.Sprintf("%s.fields[%d].name is required", path, j))
			}
		}
	}

	if len(issues) > 0 {
		return ValidationError{Issues: issues}
	}
	return nil
}

// Clamp 将生成结果裁剪到策略边界内（表数、字段数、示例行数）
func (s *Schema) Clamp(limits Limits) {
	if s == nil {
		return
	}
	if limits.MaxTables > 0 && len(s.Tables) > limits.MaxTables {
		s.Tables = s.Tables[:limits.MaxTables]
	}
	for i := range s.Tables {
		if limits.MaxFields > 0 && len(s.Tables[i].Fields) > limits.MaxFields {
			s.Tables[i].Fields = s.Tables[i].Fields[:limits.MaxFields]
		}
		if s.Tables[i].SampleDataCount < 0 {
			s.Tables[i].SampleDataCount = 0
		}
		if limits.MaxSampleRows > 0 && s.Tables[i].SampleDataCount > limits.MaxSampleRows {
			s.Tables[i].SampleDataCount = limits.MaxSampleRows
		}
	}
}
