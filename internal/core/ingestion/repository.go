package ingestion

import "context"

// Repository はベクトルストアの取り込み側インターフェース
type Repository interface {
	// EnsureCollection はコレクションが存在しなければ作成する（冪等）
	EnsureCollection(ctx context.Context) error

	// UpsertPoints はポイント列を書き込み、書き込んだ件数を返す。
	// 空の入力は 0 を返しエラーにしない。
	UpsertPoints(ctx context.Context, points []*IndexedPoint) (int, error)

	// ReplaceSource は source に属する既存ポイントを削除してから points を
	// 書き込む。同一 source に対する置き換えはアドバイザリロックで直列化される。
	ReplaceSource(ctx context.Context, source string, points []*IndexedPoint) (int, error)

	// DeleteBySource は source が一致する全ポイントを削除する
	DeleteBySource(ctx context.Context, source string) error

	// ListSources は取り込み済みソースの統計を返す
	ListSources(ctx context.Context) ([]*SourceStat, error)
}
