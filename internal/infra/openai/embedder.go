package openai

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/conflux/internal/core/ingestion"
	"github.com/jinford/conflux/internal/core/search"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// DefaultEmbeddingTimeout はAPI呼び出し1回あたりのタイムアウト
	DefaultEmbeddingTimeout = 60 * time.Second

	// maxBatchItems はOpenAI APIの1リクエストあたりの最大入力数
	maxBatchItems = 100
	// maxBatchTokens は1リクエストに詰めるトークン数の上限
	maxBatchTokens = 100_000
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する。
// 返すベクトルはすべてL2正規化済みで、コサイン類似度は内積に一致する。
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	timeout   time.Duration
	encoder   *tiktoken.Tiktoken
}

type embedderOptions struct {
	model     string
	dimension int
	timeout   time.Duration
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		o.model = model
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingTimeout はAPI呼び出しのタイムアウトを上書きする
func WithEmbeddingTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		o.timeout = timeout
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
		timeout:   DefaultEmbeddingTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// cl100k_baseエンコーダを使用（text-embedding-3-smallと互換）
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoder: %w", err)
	}

	return &Embedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     options.model,
		dimension: options.dimension,
		timeout:   options.timeout,
		encoder:   encoder,
	}, nil
}

// Embed は単一テキストの Embedding を生成する。
// 空・空白のみのテキストは空ベクトルを返し、エラーにしない。
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed は複数テキストの Embedding をまとめて生成する。
// 空・空白のみの要素は埋め込み前に除外されるため、結果の件数は入力と
// 一致しないことがある。順序はフィルタ後の入力順を保つ。
// APIの入力数上限とトークン数上限に合わせて内部で複数リクエストに分割する。
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	filtered := filterBlank(texts)
	if len(filtered) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(filtered))
	for _, batch := range e.splitBatches(filtered) {
		vectors, err := e.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, vectors...)
	}

	return embeddings, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	vectors := make([][]float32, 0, len(resp.Data))
	for _, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		normalize(vector)
		vectors = append(vectors, vector)
	}

	return vectors, nil
}

// splitBatches は入力数とトークン数の両方の上限を守るようにテキストを分割する
func (e *Embedder) splitBatches(texts []string) [][]string {
	var batches [][]string
	var current []string
	currentTokens := 0

	for _, text := range texts {
		tokens := len(e.encoder.Encode(text, nil, nil))
		if len(current) > 0 && (len(current) >= maxBatchItems || currentTokens+tokens > maxBatchTokens) {
			batches = append(batches, current)
			current = nil
			currentTokens = 0
		}
		current = append(current, text)
		currentTokens += tokens
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// filterBlank は空・空白のみの要素を除外する
func filterBlank(texts []string) []string {
	filtered := make([]string, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) != "" {
			filtered = append(filtered, text)
		}
	}
	return filtered
}

// normalize はベクトルをL2正規化する（ゼロベクトルはそのまま）
func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}

// インターフェース実装の確認
var (
	_ ingestion.Embedder = (*Embedder)(nil)
	_ search.Embedder    = (*Embedder)(nil)
)
