package ingestion

import (
	"fmt"
)

// Loader は1種類のソース形式をTextUnit列へ変換するインターフェース。
// 実装は読み込み以外の副作用を持たず、ネットワークにもアクセスしない。
// 空ファイルはエラーではなく空の列として扱うこと。
type Loader interface {
	// Type はこのLoaderが担当するソース種別を返す
	Type() SourceType

	// Load はドキュメントをTextUnit列へ変換する。
	// 破損したペイロードはErrLoadFailureを返す。
	Load(doc Document) ([]TextUnit, error)
}

// LoaderRegistry はソース種別ごとのLoaderを保持し、
// サイズ上限のチェックと形式別のディスパッチを行う。
type LoaderRegistry struct {
	loaders     map[SourceType]Loader
	maxFileSize int64
}

// NewLoaderRegistry は新しいLoaderRegistryを作成します。
// maxFileSizeが0以下の場合はサイズ上限を設けない。
func NewLoaderRegistry(maxFileSize int64, loaders ...Loader) *LoaderRegistry {
	byType := make(map[SourceType]Loader, len(loaders))
	for _, l := range loaders {
		byType[l.Type()] = l
	}

	return &LoaderRegistry{
		loaders:     byType,
		maxFileSize: maxFileSize,
	}
}

// Load はドキュメントの種別に対応するLoaderへディスパッチする。
// サイズ上限の検査はパースより先に行い、巨大な入力による
// メモリの浪費を防ぐ。
func (r *LoaderRegistry) Load(doc Document) ([]TextUnit, error) {
	if r.maxFileSize > 0 && int64(len(doc.Data)) > r.maxFileSize {
		return nil, fmt.Errorf("%w: %q exceeds size limit of %d bytes", ErrLoadFailure, doc.Name, r.maxFileSize)
	}

	loader, ok := r.loaders[doc.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Name)
	}

	return loader.Load(doc)
}
