package search

import "context"

// Repository はベクトルストアの検索側インターフェース
type Repository interface {
	// SearchSimilar はコサイン類似度による近傍検索を実行する。
	// 結果はスコア降順で最大 limit 件。閾値未満の結果は除外されるため、
	// limit 件より少ない（0件を含む）ことがある。
	SearchSimilar(ctx context.Context, vector []float32, limit int, filter SearchFilter) ([]*SearchResult, error)
}
