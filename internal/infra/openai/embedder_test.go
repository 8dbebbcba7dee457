package openai

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder, err := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)
	if err != nil {
		t.Skipf("tiktoken encoder unavailable: %v", err)
	}

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestEmbed_BlankTextIsSoftFailure(t *testing.T) {
	// 空入力はAPIにもエンコーダにも触れず空ベクトルを返す
	embedder := &Embedder{model: DefaultEmbeddingModel, dimension: 8}

	for _, text := range []string{"", "   ", "\n\t"} {
		vector, err := embedder.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Empty(t, vector)
	}
}

func TestFilterBlank(t *testing.T) {
	filtered := filterBlank([]string{"a", "", "  ", "b", "\n", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, filtered)

	assert.Empty(t, filterBlank(nil))
	assert.Empty(t, filterBlank([]string{"", "  "}))
}

func TestNormalize(t *testing.T) {
	vector := []float32{3, 4}
	normalize(vector)
	assert.InDelta(t, 0.6, vector[0], 1e-6)
	assert.InDelta(t, 0.8, vector[1], 1e-6)

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)

	// ゼロベクトルはそのまま
	zero := []float32{0, 0, 0}
	normalize(zero)
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestSplitBatches_RespectsItemLimit(t *testing.T) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		t.Skipf("tiktoken encoder unavailable: %v", err)
	}
	embedder := &Embedder{encoder: encoder}

	texts := make([]string, 0, maxBatchItems+50)
	for range maxBatchItems + 50 {
		texts = append(texts, "short text")
	}

	batches := embedder.splitBatches(texts)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0], maxBatchItems)
	assert.Len(t, batches[1], 50)

	total := 0
	for _, batch := range batches {
		total += len(batch)
	}
	assert.Equal(t, len(texts), total)
}

func TestSplitBatches_RespectsTokenBudget(t *testing.T) {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		t.Skipf("tiktoken encoder unavailable: %v", err)
	}
	embedder := &Embedder{encoder: encoder}

	// 1件で数万トークンの大きな入力を並べ、トークン上限で分割されること
	big := strings.Repeat("word ", 40_000)
	batches := embedder.splitBatches([]string{big, big, big})
	assert.Greater(t, len(batches), 1)
}
