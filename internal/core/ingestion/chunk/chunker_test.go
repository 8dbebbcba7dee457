package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_ValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "正常な設定", size: 800, overlap: 150, wantErr: false},
		{name: "オーバーラップなし", size: 100, overlap: 0, wantErr: false},
		{name: "サイズ0", size: 0, overlap: 0, wantErr: true},
		{name: "サイズ負", size: -1, overlap: 0, wantErr: true},
		{name: "オーバーラップ負", size: 100, overlap: -1, wantErr: true},
		{name: "オーバーラップがサイズと同じ", size: 100, overlap: 100, wantErr: true},
		{name: "オーバーラップがサイズ超過", size: 100, overlap: 150, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunk_EmptyAndWhitespaceInput(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	require.NoError(t, err)

	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n\t  "))
}

func TestChunk_ShortTextIsSingleChunk(t *testing.T) {
	chunker, err := NewChunker(100, 20)
	require.NoError(t, err)

	text := "短いテキストはそのまま1チャンクになる。"
	chunks := chunker.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunk_ExactSizeIsSingleChunk(t *testing.T) {
	chunker, err := NewChunker(10, 2)
	require.NoError(t, err)

	text := strings.Repeat("a", 10)
	chunks := chunker.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunk_WindowsRespectSizeBound(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("This is a test sentence. ", 20)
	chunks := chunker.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.LessOrEqualf(t, len([]rune(chunk)), 50, "chunk %d exceeds size bound", i)
	}
}

// TestChunk_Reconstruction はオーバーラップを除いた連結で元テキストが
// 復元できることを確認します（文字の欠落がないこと）
func TestChunk_Reconstruction(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{
			name:    "英語の文章",
			size:    40,
			overlap: 8,
			text:    strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10),
		},
		{
			name:    "日本語の文章",
			size:    30,
			overlap: 5,
			text:    strings.Repeat("これはテストの文章です。改行も含みます。\n", 8),
		},
		{
			name:    "段落区切りを含むテキスト",
			size:    25,
			overlap: 4,
			text:    "First paragraph here.\n\nSecond paragraph follows.\n\nThird one closes the document.",
		},
		{
			name:    "区切りのない連続文字列",
			size:    16,
			overlap: 3,
			text:    strings.Repeat("abcdefghij", 12),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)
			require.NoError(t, err)

			chunks := chunker.Chunk(tt.text)
			require.NotEmpty(t, chunks)

			var sb strings.Builder
			for i, chunk := range chunks {
				runes := []rune(chunk)
				if i == 0 {
					sb.WriteString(chunk)
					continue
				}
				require.GreaterOrEqual(t, len(runes), tt.overlap)
				sb.WriteString(string(runes[tt.overlap:]))
			}
			assert.Equal(t, tt.text, sb.String())
		})
	}
}

// TestChunk_OverlapMatchesPreviousTail は後続チャンクの先頭 overlap 文字が
// 直前チャンクの末尾と一致することを確認します
func TestChunk_OverlapMatchesPreviousTail(t *testing.T) {
	chunker, err := NewChunker(30, 6)
	require.NoError(t, err)

	text := strings.Repeat("word boundary test input. ", 10)
	chunks := chunker.Chunk(text)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		cur := []rune(chunks[i])
		assert.Equal(t, string(prev[len(prev)-6:]), string(cur[:6]))
	}
}

func TestChunk_PrefersParagraphBoundary(t *testing.T) {
	chunker, err := NewChunker(40, 5)
	require.NoError(t, err)

	text := "Alpha paragraph text.\n\nBeta paragraph text follows here with more words to force a split."
	chunks := chunker.Chunk(text)

	require.Greater(t, len(chunks), 1)
	// 最初のチャンクは段落区切りで終わるはず
	assert.True(t, strings.HasSuffix(chunks[0], "\n\n"), "first chunk should end at the paragraph break, got %q", chunks[0])
}
