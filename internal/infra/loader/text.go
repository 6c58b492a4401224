package loader

import (
	"fmt"
	"unicode/utf8"

	"github.com/jinford/chatdoc/internal/core/ingestion"
)

// TextLoader はプレーンテキストファイルを1つのTextUnitへ変換する
type TextLoader struct{}

// NewTextLoader は新しいTextLoaderを作成します
func NewTextLoader() *TextLoader {
	return &TextLoader{}
}

// Type はingestion.Loaderインターフェースを実装
func (l *TextLoader) Type() ingestion.SourceType {
	return ingestion.SourceTypeText
}

// Load はファイル全体を1つのTextUnitとして返す。
// 空ファイルはエラーではなく空の列を返す。
func (l *TextLoader) Load(doc ingestion.Document) ([]ingestion.TextUnit, error) {
	if len(doc.Data) == 0 {
		return nil, nil
	}

	if !utf8.Valid(doc.Data) {
		return nil, fmt.Errorf("%w: %q is not valid UTF-8 text", ingestion.ErrLoadFailure, doc.Name)
	}

	return []ingestion.TextUnit{{
		Text:         string(doc.Data),
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		Position:     0,
	}}, nil
}

// インターフェース実装の確認
var _ ingestion.Loader = (*TextLoader)(nil)
