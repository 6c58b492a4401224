package search

import (
	"fmt"
	"math"
	"sort"
)

// DefaultTopK は検索結果の既定件数。モデルのコンテキストが
// 際限なく膨らまないよう、利用者からは変更できない小さな定数とする。
const DefaultTopK = 4

// Index はEmbedding済みチャンクに対するインメモリの全探索
// 最近傍インデックス。構築後は読み取り専用で、同期なしの
// 並行読み取りに対して安全。
type Index struct {
	chunks  []Chunk
	vectors [][]float32
}

// NewIndex はチャンクとベクトルの組からインデックスを構築する。
// 同一スコープの既存インデックスは呼び出し側で丸ごと置き換えること
// （マージはしない）。
func NewIndex(chunks []Chunk, vectors [][]float32) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk count (%d) does not match vector count (%d)", len(chunks), len(vectors))
	}

	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			return nil, fmt.Errorf("inconsistent vector dimension at %d: %d != %d", i, len(vectors[i]), len(vectors[0]))
		}
	}

	return &Index{
		chunks:  chunks,
		vectors: vectors,
	}, nil
}

// NewEmptyIndex は空のインデックスを作成する。
// 検索は常に空の結果を返す（エラーではない）。
func NewEmptyIndex() *Index {
	return &Index{}
}

// Len は格納されているチャンク数を返す
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Search はクエリベクトルに対しコサイン類似度の降順で最大k件の
// チャンクを返す。同率の場合は元のチャンク順を保つ（安定）。
func (ix *Index) Search(query []float32, k int) []ScoredChunk {
	if len(ix.chunks) == 0 || k <= 0 {
		return nil
	}

	scored := make([]ScoredChunk, len(ix.chunks))
	for i, c := range ix.chunks {
		scored[i] = ScoredChunk{
			Chunk: c,
			Score: cosineSimilarity(query, ix.vectors[i]),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

// cosineSimilarity は2つのベクトルのコサイン類似度を計算する。
// 次元が一致しない、またはゼロベクトルの場合は0を返す。
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
