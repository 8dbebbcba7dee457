package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/conflux/internal/core/ingestion/chunk"
)

// IngestionService はドキュメント取り込みのビジネスロジックを提供する
type IngestionService struct {
	chunker  *chunk.Chunker
	embedder Embedder
	repo     Repository
	logger   *slog.Logger
}

type IngestionServiceOption func(*IngestionService)

// WithIngestionLogger は IngestionService にロガーを設定する
func WithIngestionLogger(logger *slog.Logger) IngestionServiceOption {
	return func(s *IngestionService) {
		s.logger = logger
	}
}

// NewIngestionService は新しいIngestionServiceを作成する
func NewIngestionService(
	chunker *chunk.Chunker,
	embedder Embedder,
	repo Repository,
	opts ...IngestionServiceOption,
) *IngestionService {
	svc := &IngestionService{
		chunker:  chunker,
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// IngestParams は取り込みパラメータを表す
type IngestParams struct {
	Text   string // 抽出済みのプレーンテキスト
	Source string // 取り込み元の識別子
	DocID  string // 省略時は自動生成される
}

// Ingest はテキストをチャンク化・埋め込みしてベクトルストアへ書き込む。
// 取り込み済みの同一 source は丸ごと置き換えられる（削除してから挿入）。
// 書き込んだチャンク数を返す。空のテキストは 0 を返しエラーにしない。
func (s *IngestionService) Ingest(ctx context.Context, params IngestParams) (int, error) {
	// 1. バリデーション
	if params.Source == "" {
		return 0, fmt.Errorf("source is required")
	}
	if strings.TrimSpace(params.Text) == "" {
		s.logger.Info("nothing to ingest", "source", params.Source)
		return 0, nil
	}

	docID := params.DocID
	if docID == "" {
		docID = uuid.NewString()
	}

	// 2. チャンク化
	chunks := s.chunker.Chunk(params.Text)
	if len(chunks) == 0 {
		return 0, nil
	}

	s.logger.Info("split text into chunks",
		"source", params.Source,
		"docID", docID,
		"characters", len([]rune(params.Text)),
		"chunks", len(chunks),
	)

	// 3. 埋め込み生成
	vectors, err := s.embedder.BatchEmbed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}

	// チャンクは空白を含まないためフィルタで欠落しない想定。
	// 件数の不一致は契約違反としてエラーにする（暗黙の切り捨てはしない）。
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	// 4. ポイント構築（IDは docID とチャンク位置から決定的に導出）
	points := make([]*IndexedPoint, 0, len(chunks))
	for i, text := range chunks {
		points = append(points, &IndexedPoint{
			ID:     NewPointID(docID, i),
			Vector: vectors[i],
			Chunk: Chunk{
				Text:       text,
				Source:     params.Source,
				DocID:      docID,
				ChunkIndex: i,
			},
		})
	}

	// 5. 置き換え書き込み
	count, err := s.repo.ReplaceSource(ctx, params.Source, points)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	s.logger.Info("ingestion completed", "source", params.Source, "points", count)
	return count, nil
}

// IngestPages はWikiページ群を一括で取り込む。
// 1ページの失敗は記録してスキップし、取り込み全体は継続する。
// 書き込んだチャンク総数と取り込めたページ数を返す。
func (s *IngestionService) IngestPages(ctx context.Context, pages []*Page, sourcePrefix string) (int, int, error) {
	totalChunks := 0
	ingested := 0

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return totalChunks, ingested, err
		}

		count, err := s.Ingest(ctx, IngestParams{
			Text:   page.Content,
			Source: sourcePrefix + page.ID,
			DocID:  page.ID,
		})
		if err != nil {
			s.logger.Warn("failed to ingest page, skipping",
				"pageID", page.ID,
				"title", page.Title,
				"error", err,
			)
			continue
		}

		totalChunks += count
		ingested++
	}

	return totalChunks, ingested, nil
}

// DeleteSource は取り込み済みドキュメントを撤回する
func (s *IngestionService) DeleteSource(ctx context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("source is required")
	}

	if err := s.repo.DeleteBySource(ctx, source); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	s.logger.Info("source deleted", "source", source)
	return nil
}

// ListSources は取り込み済みソースの統計を返す
func (s *IngestionService) ListSources(ctx context.Context) ([]*SourceStat, error) {
	stats, err := s.repo.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return stats, nil
}
