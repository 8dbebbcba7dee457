package ingestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chunk はドキュメントから切り出した埋め込み対象のテキスト断片を表す
type Chunk struct {
	Text       string // チャンク本文
	Source     string // 取り込み元の識別子（ファイル名や confluence:<page_id>）
	DocID      string // 同一論理ドキュメントを束ねる識別子
	ChunkIndex int    // ドキュメント内での0始まりの位置
}

// IndexedPoint はベクトルストアに永続化する単位。
// ID は (DocID, ChunkIndex) から決定的に導出され、同一ドキュメントの
// 再取り込みは重複ではなく上書きになる。
type IndexedPoint struct {
	ID     uuid.UUID
	Vector []float32
	Chunk  Chunk
}

// pointNamespace は決定的ポイントID生成用のUUID名前空間
var pointNamespace = uuid.MustParse("8cbb6aeb-0d07-4f0a-95cf-79706a512fc1")

// NewPointID は (docID, chunkIndex) から決定的なポイントIDを生成する
func NewPointID(docID string, chunkIndex int) uuid.UUID {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%d", docID, chunkIndex)))
}

// SourceStat は取り込み済みソースの統計情報
type SourceStat struct {
	Source        string
	PointCount    int
	LastIndexedAt time.Time
}

// Page はWikiコネクタが返す1ページ分のコンテンツ
type Page struct {
	ID      string
	Title   string
	Content string
}
