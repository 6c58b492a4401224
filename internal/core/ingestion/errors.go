package ingestion

import "errors"

var (
	// ErrUnsupportedFormat は認識できないファイル形式のエラー。
	// 利用者が修正可能な入力エラーであり、Agentのループには入れず
	// 即座に呼び出し元へ報告する。
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrLoadFailure は破損・読み取り不能・サイズ超過などの読み込み失敗エラー。
	// ErrUnsupportedFormatと同様に境界で報告する。
	ErrLoadFailure = errors.New("failed to load file")
)
