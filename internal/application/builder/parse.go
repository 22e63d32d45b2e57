package builder

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"base-builder-api/internal/domain/schema"
)

// parseStrategy 从模型输出中提取候选 JSON 文本。
// 返回 false 表示该策略不适用。
type parseStrategy func(text string) (string, bool)

// parseStrategies 按宽松程度递增排列，顺序不可调整：
// 直接解析 -> 提取 json 围栏代码块 -> 截取首个 { 到最后一个 } 之间的子串
var parseStrategies = []parseStrategy{
	extractWhole,
	extractFencedBlock,
	extractBraceSpan,
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json|JSON)\\s*(.*?)```")

// extractWhole 整段文本即 JSON
func extractWhole(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	return trimmed, true
}

// extractFencedBlock 提取标记为 json 的围栏代码块内容
func extractFencedBlock(text string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// extractBraceSpan 截取首个 { 到最后一个 } 之间的子串
func extractBraceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseSchema 依次尝试各提取策略，首个能成功反序列化的结果胜出
func ParseSchema(text string) (*schema.Schema, error) {
	var lastErr error
	for _, strategy := range parseStrategies {
		candidate, ok := strategy(text)
		if !ok {
			continue
		}

		var s schema.Schema
		if err := json.Unmarshal([]byte(candidate), &s); err != nil {
			lastErr = err
			continue
		}
		return &s, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no json payload found in model output")
	}
	return nil, fmt.Errorf("failed to parse schema from model output: %w", lastErr)
}
