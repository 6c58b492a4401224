package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jinford/chatdoc/internal/core/ingestion"
)

// PDFLoader はPDFファイルを1ページ1TextUnitへ変換する
type PDFLoader struct{}

// NewPDFLoader は新しいPDFLoaderを作成します
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Type はingestion.Loaderインターフェースを実装
func (l *PDFLoader) Type() ingestion.SourceType {
	return ingestion.SourceTypePDF
}

// Load は各ページのテキストを抽出してTextUnit列を返す。
// Positionは1始まりのページ番号。テキストを持たないページはスキップする。
func (l *PDFLoader) Load(doc ingestion.Document) ([]ingestion.TextUnit, error) {
	if len(doc.Data) == 0 {
		return nil, nil
	}

	reader, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse PDF %q: %v", ingestion.ErrLoadFailure, doc.Name, err)
	}

	var units []ingestion.TextUnit
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to extract text from page %d of %q: %v", ingestion.ErrLoadFailure, pageNum, doc.Name, err)
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		units = append(units, ingestion.TextUnit{
			Text:         text,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Position:     pageNum,
		})
	}

	return units, nil
}

// インターフェース実装の確認
var _ ingestion.Loader = (*PDFLoader)(nil)
