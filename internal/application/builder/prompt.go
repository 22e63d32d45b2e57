// Package builder 将自由文本需求变换为受约束的表结构生成请求
package builder

import (
	"fmt"

	"base-builder-api/internal/domain/schema"
)

// systemInstruction 固定系统指令：描述输出结构、字段类型词汇表与规模上限
const systemInstruction = `あなたはデータベース設計の専門家です。ユーザーの要望から多维表格（Base）のスキーマを設計してください。

出力は必ず次の構造の JSON のみとし、説明文を含めないでください:
{
  "baseName": "アプリ名",
  "tables": [
    {
      "name": "テーブル名",
      "fields": [
        { "name": "フィールド名", "type": "型名", "options": { "選択肢文字列": "A,B,C" } }
      ],
      "sampleDataCount": 5
    }
  ]
}

制約:
- type は次のいずれか: text, number, single_select, multi_select, date, date_time, checkbox, member, phone, url, email, currency, rating
- single_select / multi_select の場合のみ options の "選択肢文字列" にカンマ区切りで選択肢を入れる
- tables は最大 10 件、fields はテーブルあたり最大 15 件
- sampleDataCount は 0〜20 の整数
- テーブル間の関連が分かるようフィールド名を付ける`

// buildUserPrompt 将原始输入嵌入为变换后的用户提示
func buildUserPrompt(prompt string) string {
	return fmt.Sprintf("次の要望に合う Base のスキーマを設計してください。\n\n要望:\n%s", prompt)
}

// responseSchema 输出形状约束，镜像 schema.Schema 的结构
func responseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"baseName": map[string]any{"type": "string"},
			"tables": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"fields": map[string]any{
							"type": "array",
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"name": map[string]any{"type": "string"},
									"type": map[string]any{"type": "string"},
									"options": map[string]any{
										"type": "object",
										"properties": map[string]any{
											schema.OptionsKey: map[string]any{"type": "string"},
										},
									},
								},
								"required": []string{"name", "type"},
							},
						},
						"sampleDataCount": map[string]any{"type": "integer"},
					},
					"required": []string{"name", "fields", "sampleDataCount"},
				},
			},
		},
		"required": []string{"baseName", "tables"},
	}
}
