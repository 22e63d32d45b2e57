package schema

import (
	"fmt"
	"math/rand"
	"time"
)

// sampleWindow 日期类示例值允许偏离当前时刻的范围
const sampleWindow = 30 * 24 * time.Hour

// Synthesize 为一个字段生成指定行号的示例值。
// 除日期类外按 (类型, 行号) 确定；词汇表之外的类型返回 nil，
// 表示该字段从示例行中省略。
func Synthesize(typeName string, options map[string]string, rowIndex int) any {
	n := rowIndex + 1

	switch ParseFieldType(typeName) {
	case FieldTypeText:
		return fmt.Sprintf("Sample text %d", n)
	case FieldTypeNumber:
		return float64(n * 100)
	case FieldTypeCurrency:
		return float64(n * 1000)
	case FieldTypeSingleSelect:
		opts := selectOptions(options)
		return opts[rowIndex%len(opts)]
	case FieldTypeMultiSelect:
		return multiSelectValues(selectOptions(options), rowIndex)
	case FieldTypeDate, FieldTypeDateTime:
		// 当前时刻 ±30 天内的随机时间，毫秒时间戳
		offset := time.Duration(rand.Int63n(int64(2*sampleWindow))) - sampleWindow
		return time.Now().Add(offset).UnixMilli()
	case FieldTypeCheckbox:
		return n%2 == 0
	case FieldTypePhone:
		return fmt.Sprintf("090-0000-%04d", n%10000)
	case FieldTypeURL:
		return fmt.Sprintf("https://example.com/items/%d", n)
	case FieldTypeEmail:
		return fmt.Sprintf("user%d@example.com", n)
	case FieldTypeRating:
		return rowIndex%5 + 1
	default:
		return nil
	}
}

// SynthesizeRow 为整行字段生成示例值，nil 字段省略。
// 所有字段都无法合成时返回 nil，调用方不得提交空行。
func SynthesizeRow(fields []Field, rowIndex int) map[string]any {
	row := make(map[string]any, len(fields))
	for _, f := range fields {
		if v := Synthesize(f.Type, f.Options, rowIndex); v != nil {
			row[f.Name] = v
		}
	}
	if len(row) == 0 {
		return nil
	}
	return row
}

// selectOptions 选择类字段的有效选项，空时与映射器一致地使用兜底选项
func selectOptions(options map[string]string) []string {
	opts := (Field{Options: options}).OptionList()
	if len(opts) == 0 {
		return FallbackOptions
	}
	return opts
}

// multiSelectValues 以行号循环取 1–2 个互不重复的选项
func multiSelectValues(opts []string, rowIndex int) []string {
	count := 1 + rowIndex%2
	if count > len(opts) {
		count = len(opts)
	}

	values := make([]string, 0, count)
	for j := 0; j < count; j++ {
		values = append(values, opts[(rowIndex+j)%len(opts)])
	}
	return values
}
