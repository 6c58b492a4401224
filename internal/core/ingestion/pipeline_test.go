package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/chatdoc/internal/core/ingestion/chunk"
)

// stubTextLoader はファイル全体を1つのTextUnitとして返すテスト用Loader
type stubTextLoader struct{}

func (l *stubTextLoader) Type() SourceType { return SourceTypeText }

func (l *stubTextLoader) Load(doc Document) ([]TextUnit, error) {
	if len(doc.Data) == 0 {
		return nil, nil
	}
	return []TextUnit{{
		Text:         string(doc.Data),
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
	}}, nil
}

// stubEmbedder はテキスト長に応じた決定的なベクトルを返す
type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBuilder(t *testing.T, embedder *stubEmbedder, maxFileSize int64) *Builder {
	t.Helper()

	splitter, err := chunk.NewSplitter(chunk.DefaultMaxSize, chunk.DefaultOverlap)
	require.NoError(t, err)

	registry := NewLoaderRegistry(maxFileSize, &stubTextLoader{})
	return NewBuilder(registry, splitter, embedder, WithBuilderLogger(testLogger()))
}

func TestLoaderRegistry_UnsupportedType(t *testing.T) {
	registry := NewLoaderRegistry(0, &stubTextLoader{})

	_, err := registry.Load(Document{Name: "report.pdf", Type: SourceTypePDF})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoaderRegistry_SizeLimit(t *testing.T) {
	registry := NewLoaderRegistry(10, &stubTextLoader{})

	// 上限を超えるペイロードはパース前に拒否される
	_, err := registry.Load(Document{
		Name: "big.txt",
		Type: SourceTypeText,
		Data: []byte(strings.Repeat("a", 11)),
	})
	assert.ErrorIs(t, err, ErrLoadFailure)

	// 上限ちょうどは許容される
	_, err = registry.Load(Document{
		Name: "ok.txt",
		Type: SourceTypeText,
		Data: []byte(strings.Repeat("a", 10)),
	})
	assert.NoError(t, err)
}

func TestBuildIndex(t *testing.T) {
	embedder := &stubEmbedder{}
	builder := newTestBuilder(t, embedder, 0)

	docID := uuid.New()
	units := []TextUnit{
		{Text: "短いテキスト", DocumentID: docID, DocumentName: "a.txt"},
		{Text: "もう1つのテキスト", DocumentID: docID, DocumentName: "a.txt", Position: 1},
	}

	index, err := builder.BuildIndex(context.Background(), units)
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())
}

func TestBuildIndex_EmptyUnits(t *testing.T) {
	builder := newTestBuilder(t, &stubEmbedder{}, 0)

	index, err := builder.BuildIndex(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, index.Len())
}

func TestBuildIndex_EmbedFailurePropagates(t *testing.T) {
	embedErr := errors.New("provider down")
	builder := newTestBuilder(t, &stubEmbedder{err: embedErr}, 0)

	_, err := builder.BuildIndex(context.Background(), []TextUnit{{Text: "テキスト"}})
	assert.ErrorIs(t, err, embedErr)
}

func TestBuildIndex_SplitsLongUnits(t *testing.T) {
	embedder := &stubEmbedder{}
	builder := newTestBuilder(t, embedder, 0)

	// チャンク上限を超えるユニットは複数チャンクに分割される
	long := strings.Repeat("あ", chunk.DefaultMaxSize*2)
	index, err := builder.BuildIndex(context.Background(), []TextUnit{
		{Text: long, DocumentID: uuid.New(), DocumentName: "long.txt"},
	})
	require.NoError(t, err)
	assert.Greater(t, index.Len(), 1)
}

func TestBuildCorpusIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("アズリアの首都はリバーマウス"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("アズリアの人口は300万人"), 0644))

	// .txt以外とサブディレクトリは無視される
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.json"), []byte("{}"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	builder := newTestBuilder(t, &stubEmbedder{}, 0)

	index, err := builder.BuildCorpusIndex(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())
}

func TestBuildCorpusIndex_MissingDir(t *testing.T) {
	builder := newTestBuilder(t, &stubEmbedder{}, 0)

	// ディレクトリが存在しなくても起動は継続する
	index, err := builder.BuildCorpusIndex(context.Background(), filepath.Join(t.TempDir(), "nonexistent"))
	require.NoError(t, err)
	assert.Equal(t, 0, index.Len())
}

func TestSplitUnits_SequencePerDocument(t *testing.T) {
	builder := newTestBuilder(t, &stubEmbedder{}, 0)

	doc1 := uuid.New()
	doc2 := uuid.New()
	long := strings.Repeat("あ", chunk.DefaultMaxSize+100)

	chunks := builder.splitUnits([]TextUnit{
		{Text: long, DocumentID: doc1, DocumentName: "a.txt"},
		{Text: "短い", DocumentID: doc2, DocumentName: "b.txt"},
	})

	// チャンク連番はドキュメントごとに0から振られる
	require.GreaterOrEqual(t, len(chunks), 3)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[1].Seq)

	last := chunks[len(chunks)-1]
	assert.Equal(t, doc2, last.DocumentID)
	assert.Equal(t, 0, last.Seq)
}

func TestDetectSourceType(t *testing.T) {
	tests := []struct {
		filename string
		want     SourceType
		ok       bool
	}{
		{"note.txt", SourceTypeText, true},
		{"README.md", SourceTypeText, true},
		{"Report.PDF", SourceTypePDF, true},
		{"data.csv", SourceTypeTabular, true},
		{"data.tsv", SourceTypeTabular, true},
		{"image.png", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		got, ok := DetectSourceType(tt.filename)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}
