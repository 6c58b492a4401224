package search

import (
	"github.com/google/uuid"
)

// Chunk はEmbeddingとインデックス化のために切り出された
// テキスト断片を表す。作成後は変更しない。
type Chunk struct {
	DocumentID   uuid.UUID
	DocumentName string

	// Position は元となったTextUnitの位置（ページ番号または行番号）
	Position int

	// Seq はドキュメント内でのチャンク連番
	Seq int

	Text string
}

// ScoredChunk は類似度スコア付きの検索結果を表す
type ScoredChunk struct {
	Chunk
	Score float64
}
