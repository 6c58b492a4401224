package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/chatdoc/internal/core/ingestion/chunk"
	"github.com/jinford/chatdoc/internal/core/embedding"
	"github.com/jinford/chatdoc/internal/core/search"
)

// maxEmbedBatch はEmbedding APIへ一度に送るテキスト数の上限
const maxEmbedBatch = 100

// Builder はロード→チャンク化→Embedding→インデックス構築の
// パイプラインを提供する。
type Builder struct {
	registry *LoaderRegistry
	splitter *chunk.Splitter
	embedder embedding.Embedder
	logger   *slog.Logger
}

// BuilderOption はBuilder構築時のオプション
type BuilderOption func(*Builder)

// WithBuilderLogger はBuilderにロガーを設定する
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder は新しいBuilderを作成します
func NewBuilder(registry *LoaderRegistry, splitter *chunk.Splitter, embedder embedding.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		registry: registry,
		splitter: splitter,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Load はドキュメントをTextUnit列へ変換する
func (b *Builder) Load(doc Document) ([]TextUnit, error) {
	return b.registry.Load(doc)
}

// BuildIndex はTextUnit列からベクトルインデックスを構築する。
// Embeddingの失敗はそのまま伝播させる。ユニットが空の場合は
// 空のインデックスを返す（エラーではない）。
func (b *Builder) BuildIndex(ctx context.Context, units []TextUnit) (*search.Index, error) {
	chunks := b.splitUnits(units)
	if len(chunks) == 0 {
		return search.NewEmptyIndex(), nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch, err := b.embedder.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		vectors = append(vectors, batch...)
	}

	index, err := search.NewIndex(chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}

	b.logger.Info("index built",
		"units", len(units),
		"chunks", len(chunks),
	)

	return index, nil
}

// BuildCorpusIndex は指定ディレクトリ直下の.txtファイルを読み込み、
// プリロードコーパスのインデックスを構築する。ディレクトリが存在しない、
// または空の場合は空のインデックスを返す（エラーではない）。
// 読み取れないファイルは警告ログを出してスキップする。
func (b *Builder) BuildCorpusIndex(ctx context.Context, dir string) (*search.Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			b.logger.Warn("corpus directory not found, starting with empty index", "dir", dir)
			return search.NewEmptyIndex(), nil
		}
		return nil, fmt.Errorf("failed to read corpus directory %q: %w", dir, err)
	}

	var units []TextUnit
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("failed to read corpus file, skipping", "path", path, "error", err)
			continue
		}

		doc := Document{
			ID:   uuid.New(),
			Name: entry.Name(),
			Type: SourceTypeText,
			Data: data,
		}

		docUnits, err := b.registry.Load(doc)
		if err != nil {
			b.logger.Warn("failed to load corpus file, skipping", "path", path, "error", err)
			continue
		}
		units = append(units, docUnits...)
	}

	b.logger.Info("corpus scanned", "dir", dir, "units", len(units))

	return b.BuildIndex(ctx, units)
}

// splitUnits はTextUnit列をチャンク列へ変換する。
// チャンク連番はドキュメントごとに振る。
func (b *Builder) splitUnits(units []TextUnit) []search.Chunk {
	var chunks []search.Chunk
	seqByDoc := make(map[uuid.UUID]int)

	for _, unit := range units {
		for _, text := range b.splitter.Split(unit.Text) {
			seq := seqByDoc[unit.DocumentID]
			seqByDoc[unit.DocumentID] = seq + 1

			chunks = append(chunks, search.Chunk{
				DocumentID:   unit.DocumentID,
				DocumentName: unit.DocumentName,
				Position:     unit.Position,
				Seq:          seq,
				Text:         text,
			})
		}
	}

	return chunks
}
