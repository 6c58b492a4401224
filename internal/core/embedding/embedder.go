package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable はEmbeddingプロバイダに到達できない、またはリクエストが
// 拒否された場合のエラー。インデックス構築とツール実行の両方の経路で
// そのまま上位へ伝播させる（ゼロベクトル等で握り潰してはならない）。
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder はテキストのEmbedding生成インターフェース。
// インデックス構築時とクエリ時で必ず同一の実装を使うこと。
// 異なる実装を混ぜると類似度スコアが意味を持たなくなる。
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingをまとめて生成する
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}
