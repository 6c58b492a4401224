package ingestion

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SourceType はドキュメントのソース種別を表す
type SourceType string

const (
	// SourceTypeText はプレーンテキストファイル
	SourceTypeText SourceType = "text"

	// SourceTypePDF はPDFファイル
	SourceTypePDF SourceType = "pdf"

	// SourceTypeTabular は区切り文字形式の表データファイル
	SourceTypeTabular SourceType = "tabular"
)

// Document は読み込み対象の1ファイルを表す。
// ロード時に生成される不変の値で、チャンク化が終わったら破棄される。
type Document struct {
	ID   uuid.UUID
	Name string
	Type SourceType
	Data []byte
}

// TextUnit はDocumentから抽出された1つの論理単位
// （テキスト全体 / PDFの1ページ / 表データの1行）を表す。
type TextUnit struct {
	Text         string
	DocumentID   uuid.UUID
	DocumentName string

	// Position はドキュメント内の位置（ページ番号または行番号）。
	// プレーンテキストのように単位が1つしかない場合は0。
	Position int
}

// DetectSourceType はファイル名の拡張子からソース種別を判定する。
// 認識できない拡張子の場合は第2戻り値がfalseになる。
func DetectSourceType(filename string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text", ".md":
		return SourceTypeText, true
	case ".pdf":
		return SourceTypePDF, true
	case ".csv", ".tsv":
		return SourceTypeTabular, true
	default:
		return "", false
	}
}
