package schema

import (
	"strings"
)

// FieldType 字段类型的封闭枚举
type FieldType int

const (
	// FieldTypeUnknown 词汇表之外的类型，映射时作为跳过信号
	FieldTypeUnknown FieldType = iota
	FieldTypeText
	FieldTypeNumber
	FieldTypeSingleSelect
	FieldTypeMultiSelect
	FieldTypeDate
	FieldTypeDateTime
	FieldTypeCheckbox
	FieldTypeMember
	FieldTypePhone
	FieldTypeURL
	FieldTypeEmail
	FieldTypeCurrency
	FieldTypeRating
)

// ParseFieldType 将类型名解析为枚举，大小写不敏感
func ParseFieldType(name string) FieldType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text":
		return FieldTypeText
	case "number":
		return FieldTypeNumber
	case "single_select":
		return FieldTypeSingleSelect
	case "multi_select":
		return FieldTypeMultiSelect
	case "date":
		return FieldTypeDate
	case "date_time":
		return FieldTypeDateTime
	case "checkbox":
		return FieldTypeCheckbox
	case "member":
		return FieldTypeMember
	case "phone":
		return FieldTypePhone
	case "url":
		return FieldTypeURL
	case "email":
		return FieldTypeEmail
	case "currency":
		return FieldTypeCurrency
	case "rating":
		return FieldTypeRating
	default:
		return FieldTypeUnknown
	}
}

// String 返回类型名
func (t FieldType) String() string {
	switch t {
	case FieldTypeText:
		return "text"
	case FieldTypeNumber:
		return "number"
	case FieldTypeSingleSelect:
		return "single_select"
	case FieldTypeMultiSelect:
		return "multi_select"
	case FieldTypeDate:
		return "date"
	case FieldTypeDateTime:
		return "date_time"
	case FieldTypeCheckbox:
		return "checkbox"
	case FieldTypeMember:
		return "member"
	case FieldTypePhone:
		return "phone"
	case FieldTypeURL:
		return "url"
	case FieldTypeEmail:
		return "email"
	case FieldTypeCurrency:
		return "currency"
	case FieldTypeRating:
		return "rating"
	default:
		return "unknown"
	}
}

// FieldMapping 目标系统的字段类型码与类型专属属性
type FieldMapping struct {
	Type     FieldType
	TypeCode int
	Property map[string]any
}

// FallbackOptions 选择类字段在未声明选择肢时的兜底选项。
// 远端 API 拒绝零选项的选择字段。
var FallbackOptions = []string{"Option1", "Option2", "Option3"}

// MapFieldType 将抽象字段类型映射为目标系统的类型码与属性。
// 词汇表之外的类型返回 nil，调用方应跳过该字段而非中止整表。
func MapFieldType(typeName string, options map[string]string) *FieldMapping {
	t := ParseFieldType(typeName)
	if t == FieldTypeUnknown {
		return nil
	}

	m := &FieldMapping{Type: t}
	switch t {
	case FieldTypeText:
		m.TypeCode = 1
	case FieldTypeNumber:
		m.TypeCode = 2
		m.Property = map[string]any{"formatter": "0"}
	case FieldTypeSingleSelect:
		m.TypeCode = 3
		m.Property = map[string]any{"options": optionProperty(options)}
	case FieldTypeMultiSelect:
		m.TypeCode = 4
		m.Property = map[string]any{"options": optionProperty(options)}
	case FieldTypeDate:
		m.TypeCode = 5
		m.Property = map[string]any{"date_formatter": "yyyy/MM/dd"}
	case FieldTypeDateTime:
		// 与 date 共享类型码，仅格式串区分展示
		m.TypeCode = 5
		m.Property = map[string]any{"date_formatter": "yyyy/MM/dd HH:mm"}
	case FieldTypeCheckbox:
		m.TypeCode = 7
	case FieldTypeMember:
		m.TypeCode = 11
		m.Property = map[string]any{"multiple": false}
	case FieldTypePhone:
		m.TypeCode = 13
	case FieldTypeURL:
		m.TypeCode = 15
	case FieldTypeEmail:
		m.TypeCode = 23
	case FieldTypeCurrency:
		m.TypeCode = 25
		m.Property = map[string]any{"formatter": "0", "currency_code": "JPY"}
	case FieldTypeRating:
		m.TypeCode = 26
		m.Property = map[string]any{
			"formatter": "0",
			"min":       1,
			"max":       5,
			"rating":    map[string]any{"symbol": "star"},
		}
	}
	return m
}

// optionProperty 构造选择类字段的选项属性，空列表时使用兜底选项
func optionProperty(options map[string]string) []map[string]any {
	list := (Field{Options: options}).OptionList()
	if len(list) == 0 {
		list = FallbackOptions
	}

	out := make([]map[string]any, 0, len(list))
	for _, name := range list {
		out = append(out, map[string]any{"name": name})
	}
	return out
}
