package ingestion

import "context"

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する。
	// 空・空白のみのテキストは空ベクトルを返し、エラーにしない。
	Embed(ctx context.Context, text string) ([]float32, error)

	// BatchEmbed は複数テキストのEmbeddingをまとめて生成する。
	// 空・空白のみの要素は埋め込み前に除外されるため、結果の件数は
	// 入力の件数と一致しないことがある。順序はフィルタ後の入力順を保つ。
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension はベクトル次元数を返す（コレクション全体の不変条件）
	Dimension() int
}
