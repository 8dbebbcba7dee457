package chunk

import (
	"fmt"
	"strings"
)

const (
	// DefaultSize はチャンクの最大文字数のデフォルト値
	DefaultSize = 800
	// DefaultOverlap は隣接チャンク間の重複文字数のデフォルト値
	DefaultOverlap = 150
)

// Chunker はドキュメントのテキストを固定長の重複ウィンドウに分割します。
// ウィンドウは文字数で測り、サイズ上限を超えない範囲で段落・文の区切りを優先します。
type Chunker struct {
	size    int
	overlap int
}

// NewChunker は新しい Chunker を作成します
// size > 0 かつ 0 <= overlap < size でなければエラーを返します
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got %d (size %d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size はチャンクの最大文字数を返す
func (c *Chunker) Size() int { return c.size }

// Overlap は重複文字数を返す
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk はテキストを重複ウィンドウに分割します。
// 空文字・空白のみの入力は空の結果を返します（エラーではない）。
// サイズ以下のテキストはそのまま1チャンクになります。
// 各チャンクは text の連続部分文字列であり、2番目以降は直前のチャンクと
// ちょうど overlap 文字重複します。先頭チャンク + 後続チャンクの overlap を
// 除いた部分を連結すると元のテキストが復元できます。
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// サイズ上限内で自然な区切りを探す。区切りが前進を妨げる
		// （オーバーラップ分を超えない）場合はハードカットする。
		if cut := boundaryCut(runes[start:end]); cut > c.overlap {
			end = start + cut
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}

	return chunks
}

// boundaryCut はウィンドウ内で最も望ましい分割位置を返します。
// 優先順: 段落区切り > 改行 > 文末 > 空白。見つからなければウィンドウ長。
// 返り値は区切り文字列の直後の位置（= チャンク終端）。
func boundaryCut(window []rune) int {
	s := string(window)

	for _, sep := range []string{"\n\n", "\n", ". ", "。", " "} {
		if idx := strings.LastIndex(s, sep); idx > 0 {
			return len([]rune(s[:idx+len(sep)]))
		}
	}

	return len(window)
}
