package search

// SearchResult はベクトル検索で得られた1件の結果を表す。
// 検索呼び出しごとに生成される一時的な値で、永続化されない。
type SearchResult struct {
	Text       string  // チャンク本文
	Source     string  // 取り込み元の識別子
	DocID      string  // ドキュメント識別子
	ChunkIndex int     // ドキュメント内での位置
	Score      float64 // コサイン類似度（正規化済みベクトルのため [0, 1]）
}

// SearchFilter は検索の絞り込み条件を表す
type SearchFilter struct {
	// Source を指定すると、payload の source が一致するポイントに限定する
	Source *string
	// ScoreThreshold 未満のスコアの結果は除外される
	ScoreThreshold float64
}
