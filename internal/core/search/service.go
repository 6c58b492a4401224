package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/chatdoc/internal/core/embedding"
)

// Service はインデックスに対する自然言語クエリの検索ロジックを提供する。
// クエリのEmbeddingにはインデックス構築時と同一のEmbedderを使うこと。
type Service struct {
	index    *Index
	embedder embedding.Embedder
	logger   *slog.Logger
}

// ServiceOption はService構築時のオプション
type ServiceOption func(*Service)

// WithServiceLogger はServiceにロガーを設定する
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService は新しいServiceを作成する
func NewService(index *Index, embedder embedding.Embedder, opts ...ServiceOption) *Service {
	svc := &Service{
		index:    index,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Query はテキストをEmbeddingに変換し、類似度上位k件のチャンクを返す。
// kが0以下の場合はDefaultTopKを使う。Embeddingの失敗はそのまま伝播する。
func (s *Service) Query(ctx context.Context, text string, k int) ([]ScoredChunk, error) {
	if text == "" {
		return nil, fmt.Errorf("query is required")
	}

	if k <= 0 {
		k = DefaultTopK
	}

	queryVector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := s.index.Search(queryVector, k)

	s.logger.Debug("vector search executed",
		"query", text,
		"k", k,
		"results", len(results),
	)

	return results, nil
}
