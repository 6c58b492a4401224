package chunk

import (
	"fmt"
)

const (
	// DefaultMaxSize はチャンクの最大文字数（rune単位）
	DefaultMaxSize = 1000

	// DefaultOverlap は隣接チャンク間のオーバーラップ文字数
	DefaultOverlap = 100
)

// Splitter はテキストを固定長のチャンクに分割します。
// 分割は決定的で、同じ入力と設定からは常に同じ境界が得られる。
// トークン数ではなくrune数で区切るのは、境界の再現性と
// 「オーバーラップを除いた連結が元テキストに一致する」性質を保つため。
type Splitter struct {
	maxSize int // チャンクの最大rune数
	overlap int // オーバーラップrune数（maxSize未満であること）
}

// NewSplitter は新しいSplitterを作成します。
// overlapがmaxSize以上の場合は前進が保証されないためエラーを返す。
func NewSplitter(maxSize, overlap int) (*Splitter, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max size must be positive: %d", maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative: %d", overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("overlap (%d) must be less than max size (%d)", overlap, maxSize)
	}

	return &Splitter{
		maxSize: maxSize,
		overlap: overlap,
	}, nil
}

// MaxSize はチャンクの最大rune数を返す
func (s *Splitter) MaxSize() int {
	return s.maxSize
}

// Overlap はオーバーラップrune数を返す
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split はテキストをチャンク文字列の列に分割します。
// 各チャンクはmaxSize以下で、隣接チャンクはoverlap分だけ重なる。
// maxSize以下のテキストはそのまま1チャンクになる。空文字列は空の列を返す。
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= s.maxSize {
		return []string{text}
	}

	step := s.maxSize - s.overlap

	var chunks []string
	for start := 0; ; start += step {
		end := start + s.maxSize
		if end >= len(runes) {
			// 最終チャンク。(k-1)*step+maxSize < len より
			// 長さは必ずoverlapを超えるため、全体が重複することはない。
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}

// Reassemble はSplitの出力からオーバーラップを取り除いて元テキストを復元します。
// 主にテストと検証のための操作で、Splitの被覆性のチェックに使う。
func (s *Splitter) Reassemble(chunks []string) string {
	if len(chunks) == 0 {
		return ""
	}

	runes := []rune(chunks[0])
	for _, c := range chunks[1:] {
		cr := []rune(c)
		runes = append(runes, cr[s.overlap:]...)
	}
	return string(runes)
}
