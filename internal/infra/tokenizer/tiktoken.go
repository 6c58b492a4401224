package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/chatdoc/internal/core/agent"
)

// Trimmer はtiktokenを使ってテキストを指定トークン数以内に収める。
// 決定コアがツール出力をモデルのコンテキストへ戻す前に使う。
type Trimmer struct {
	encoder *tiktoken.Tiktoken
}

// NewTrimmer は新しいTrimmerを作成します。
// cl100k_baseエンコーダを使用（text-embedding-3-small / gpt-4o系と互換）。
func NewTrimmer() (*Trimmer, error) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &Trimmer{encoder: encoder}, nil
}

// Trim はテキストを指定されたトークン数に収まるようトリミングします
func (t *Trimmer) Trim(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}

	tokens := t.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}

	return t.encoder.Decode(tokens[:maxTokens])
}

// インターフェース実装の確認
var _ agent.Trimmer = (*Trimmer)(nil)
