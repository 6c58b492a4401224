package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/jinford/chatdoc/internal/core/agent"
)

const (
	// PreloadedToolName はプリロードコーパス検索ツールの名前
	PreloadedToolName = "preloaded_document_retriever"

	// UploadedToolName はアップロードファイル検索ツールの名前
	UploadedToolName = "uploaded_file_retriever"
)

const (
	// PreloadedToolDescription はプリロードコーパス検索ツールの説明。
	// モデルがツールを選択する際の唯一の手掛かりとなる。
	PreloadedToolDescription = "事前に読み込まれた背景知識（設定資料や長期的なナレッジベース）に関する質問に答える必要があるとき、このツールを使って関連文書を検索します。"

	// UploadedToolDescription はアップロードファイル検索ツールの説明
	UploadedToolDescription = "利用者がこの会話でアップロードしたファイルの内容に関する質問に答える必要があるとき、優先してこのツールを使って検索します。"
)

// NewRetrievalTool はServiceのQueryを、名前と説明を持つ
// Agentから呼び出し可能なツールへ包む。
func NewRetrievalTool(name, description string, svc *Service) agent.Tool {
	return agent.Tool{
		Name:        name,
		Description: description,
		Run: func(ctx context.Context, query string) (string, error) {
			results, err := svc.Query(ctx, query, DefaultTopK)
			if err != nil {
				return "", err
			}
			return FormatResults(results), nil
		},
	}
}

// FormatResults は検索結果をモデルのコンテキストへ渡す
// テキスト形式に整形する。
func FormatResults(results []ScoredChunk) string {
	if len(results) == 0 {
		return "(該当する文書は見つかりませんでした)"
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s (位置: %d, 関連度: %.3f)\n", i+1, r.DocumentName, r.Position, r.Score))
		sb.WriteString(r.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
