package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/chatdoc/internal/core/agent"
	"github.com/jinford/chatdoc/internal/core/embedding"
	"github.com/jinford/chatdoc/internal/core/ingestion"
	"github.com/jinford/chatdoc/internal/core/ingestion/chunk"
	"github.com/jinford/chatdoc/internal/core/search"
	"github.com/jinford/chatdoc/internal/core/session"
	"github.com/jinford/chatdoc/internal/infra/loader"
	"github.com/jinford/chatdoc/internal/infra/openai"
	"github.com/jinford/chatdoc/internal/infra/tokenizer"
	"github.com/jinford/chatdoc/pkg/config"
)

// Container はアプリケーションの依存関係を保持する
type Container struct {
	Sessions *session.Service
	Corpus   *search.Service
	Builder  *ingestion.Builder

	logger *slog.Logger
}

type containerOptions struct {
	logger   *slog.Logger
	embedder embedding.Embedder
	llm      agent.LLMClient
	trimmer  agent.Trimmer
}

// ContainerOption はContainer構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタムEmbedderを注入する
func WithContainerEmbedder(embedder embedding.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient はLLMクライアントを差し替える
func WithContainerLLMClient(llm agent.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llm = llm
	}
}

// WithContainerTrimmer はツール出力トリマーを差し替える
func WithContainerTrimmer(trimmer agent.Trimmer) ContainerOption {
	return func(opts *containerOptions) {
		opts.trimmer = trimmer
	}
}

// New は設定からコンテナを生成する。
// プリロードコーパスのインデックスはここで一度だけ構築され、
// 以後プロセス存続期間を通じて読み取り専用で共有される。
func New(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	options := &containerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	embedder := options.embedder
	if embedder == nil {
		var err error
		embedder, err = openai.NewEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimension)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	llm := options.llm
	if llm == nil {
		var err error
		llm, err = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
	}

	trimmer := options.trimmer
	if trimmer == nil {
		var err error
		trimmer, err = tokenizer.NewTrimmer()
		if err != nil {
			return nil, fmt.Errorf("failed to create trimmer: %w", err)
		}
	}

	splitter, err := chunk.NewSplitter(chunk.DefaultMaxSize, chunk.DefaultOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	registry := ingestion.NewLoaderRegistry(cfg.Upload.MaxFileSize,
		loader.NewTextLoader(),
		loader.NewPDFLoader(),
		loader.NewTabularLoader(),
	)

	builder := ingestion.NewBuilder(registry, splitter, embedder, ingestion.WithBuilderLogger(logger))

	corpusIndex, err := builder.BuildCorpusIndex(ctx, cfg.Corpus.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus index: %w", err)
	}

	corpus := search.NewService(corpusIndex, embedder, search.WithServiceLogger(logger))

	sessions, err := session.NewService(builder, corpus, embedder, llm, cfg.SystemPrompt,
		session.WithSessionLogger(logger),
		session.WithTrimmer(trimmer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	logger.Info("container initialized",
		"corpusChunks", corpusIndex.Len(),
		"chatModel", cfg.OpenAI.ChatModel,
		"embeddingModel", cfg.OpenAI.EmbeddingModel,
	)

	return &Container{
		Sessions: sessions,
		Corpus:   corpus,
		Builder:  builder,
		logger:   logger,
	}, nil
}
