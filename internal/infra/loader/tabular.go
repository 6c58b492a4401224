package loader

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jinford/chatdoc/internal/core/ingestion"
)

// TabularLoader は区切り文字形式のファイルを1行1TextUnitへ変換する。
// 先頭行をヘッダとして扱い、各行を「列名: 値」の形式で文脈として残す。
type TabularLoader struct{}

// NewTabularLoader は新しいTabularLoaderを作成します
func NewTabularLoader() *TabularLoader {
	return &TabularLoader{}
}

// Type はingestion.Loaderインターフェースを実装
func (l *TabularLoader) Type() ingestion.SourceType {
	return ingestion.SourceTypeTabular
}

// Load は各データ行をTextUnitへ変換する。
// Positionは1始まりのデータ行番号（ヘッダ行は数えない）。
// ヘッダしかないファイルや空ファイルは空の列を返す。
func (l *TabularLoader) Load(doc ingestion.Document) ([]ingestion.TextUnit, error) {
	if len(doc.Data) == 0 {
		return nil, nil
	}

	reader := csv.NewReader(bytes.NewReader(doc.Data))
	reader.FieldsPerRecord = -1
	if strings.EqualFold(filepath.Ext(doc.Name), ".tsv") {
		reader.Comma = '\t'
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %q: %v", ingestion.ErrLoadFailure, doc.Name, err)
	}

	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]

	units := make([]ingestion.TextUnit, 0, len(records)-1)
	for rowNum, record := range records[1:] {
		var sb strings.Builder
		for i, value := range record {
			if i > 0 {
				sb.WriteString("\n")
			}
			if i < len(headers) {
				sb.WriteString(fmt.Sprintf("%s: %s", headers[i], value))
			} else {
				sb.WriteString(fmt.Sprintf("column%d: %s", i+1, value))
			}
		}

		units = append(units, ingestion.TextUnit{
			Text:         sb.String(),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Position:     rowNum + 1,
		})
	}

	return units, nil
}

// インターフェース実装の確認
var _ ingestion.Loader = (*TabularLoader)(nil)
