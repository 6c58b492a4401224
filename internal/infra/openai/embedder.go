package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/chatdoc/internal/core/embedding"
)

// DefaultEmbeddingModel はデフォルトで使用するEmbeddingモデル
const DefaultEmbeddingModel = "text-embedding-3-small"

// Embedder はOpenAI Embeddings APIを使用したEmbedder実装。
// インデックス構築とクエリの両方で同じインスタンスを使うこと。
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	timeout   time.Duration
}

// NewEmbedder は新しいEmbedderを作成します
func NewEmbedder(apiKey, model string, dimension int) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultEmbeddingModel
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &Embedder{
		client:    client,
		model:     model,
		dimension: dimension,
		timeout:   DefaultTimeout,
	}, nil
}

// Dimension はEmbeddingベクトルの次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed はテキストからEmbeddingベクトルを生成する。
// embedding.Embedderインターフェースを実装。
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embeddings generated", embedding.ErrUnavailable)
	}

	return vectors[0], nil
}

// BatchEmbed はバッチでEmbeddingを生成します（最大100件）。
// 失敗はembedding.ErrUnavailableとして伝播し、ゼロベクトルで
// 代替することはない。
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	if len(texts) > 100 {
		return nil, fmt.Errorf("batch size exceeds maximum of 100")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	// dimensionパラメータ（text-embedding-3-smallなどで有効）
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", embedding.ErrUnavailable, err)
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		// float64からfloat32に変換
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		vectors = append(vectors, vector)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", embedding.ErrUnavailable, len(texts), len(vectors))
	}

	return vectors, nil
}

// インターフェース実装の確認
var _ embedding.Embedder = (*Embedder)(nil)
