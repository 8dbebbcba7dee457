package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/conflux/internal/core/ingestion"
	"github.com/jinford/conflux/internal/core/search"
)

// DefaultOperationTimeout はストア操作1回あたりのデフォルトタイムアウト
const DefaultOperationTimeout = 30 * time.Second

// collectionNamePattern はテーブル名として安全なコレクション名の形式
var collectionNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store は PostgreSQL + pgvector によるベクトルストア実装。
// 1つの名前付きコレクション（= テーブル）を管理し、次元とコサイン距離は
// 作成時に固定される。ingestion.Repository と search.Repository を実装する。
type Store struct {
	pool       *pgxpool.Pool
	collection string
	dimension  int
	timeout    time.Duration
	logger     *slog.Logger

	// コレクション作成は1プロセスにつき1回だけ実行する
	mu    sync.Mutex
	ready bool
}

type storeOptions struct {
	timeout time.Duration
	logger  *slog.Logger
}

// StoreOption は Store のオプション設定
type StoreOption func(*storeOptions)

// WithOperationTimeout はストア操作のタイムアウトを上書きする
func WithOperationTimeout(timeout time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.timeout = timeout
	}
}

// WithStoreLogger は Store にロガーを設定する
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// NewStore は新しい Store を作成する
func NewStore(pool *pgxpool.Pool, collection string, dimension int, opts ...StoreOption) (*Store, error) {
	if !collectionNamePattern.MatchString(collection) {
		return nil, fmt.Errorf("invalid collection name: %q", collection)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive, got %d", dimension)
	}

	options := storeOptions{
		timeout: DefaultOperationTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Store{
		pool:       pool,
		collection: collection,
		dimension:  dimension,
		timeout:    options.timeout,
		logger:     options.logger,
	}, nil
}

// Collection はコレクション名を返す
func (s *Store) Collection() string { return s.collection }

// Dimension はコレクションのベクトル次元を返す
func (s *Store) Dimension() int { return s.dimension }

// EnsureCollection はコレクションが存在しなければ作成する。冪等で、
// 成功後はプロセス内フラグにより以降の呼び出しはDBに触れない。
func (s *Store) EnsureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ddl := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			content text NOT NULL,
			source text NOT NULL,
			doc_id text NOT NULL,
			chunk_index int NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, s.collection, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source)`, s.collection, s.collection),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, s.collection, s.collection),
	}

	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", s.collection, err)
		}
	}

	s.logger.Info("collection ready", "collection", s.collection, "dimension", s.dimension)
	s.ready = true
	return nil
}

// UpsertPoints はポイント列を書き込み、書き込んだ件数を返す。
// IDが衝突した場合は上書きする。空の入力は 0 を返しエラーにしない。
func (s *Store) UpsertPoints(ctx context.Context, points []*ingestion.IndexedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	if err := s.validateDimensions(points); err != nil {
		return 0, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	count, err := s.upsert(ctx, s.pool, points)
	if err != nil {
		return 0, err
	}

	s.logger.Info("points upserted", "collection", s.collection, "points", count)
	return count, nil
}

// ReplaceSource は source に属する既存ポイントを削除してから points を書き込む。
// 削除と挿入は1トランザクションで行い、(collection, source) から導出した
// アドバイザリロックで同一ソースへの並行置き換えを直列化する。
func (s *Store) ReplaceSource(ctx context.Context, source string, points []*ingestion.IndexedPoint) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("source is required")
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return 0, err
	}
	if err := s.validateDimensions(points); err != nil {
		return 0, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// トランザクションスコープのロック。コミット/ロールバックで自動解放される。
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockID(s.collection, source)); err != nil {
		return 0, fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, s.collection), source); err != nil {
		return 0, fmt.Errorf("failed to delete source %s: %w", source, err)
	}

	count, err := s.upsert(ctx, tx, points)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit replace: %w", err)
	}

	s.logger.Info("source replaced", "collection", s.collection, "source", source, "points", count)
	return count, nil
}

// batchSender は pgxpool.Pool と pgx.Tx の共通部分
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (s *Store) upsert(ctx context.Context, db batchSender, points []*ingestion.IndexedPoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}

	sql := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, content, source, doc_id, chunk_index)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			content = EXCLUDED.content,
			source = EXCLUDED.source,
			doc_id = EXCLUDED.doc_id,
			chunk_index = EXCLUDED.chunk_index,
			created_at = now()`, s.collection)

	batch := &pgx.Batch{}
	for _, point := range points {
		batch.Queue(sql,
			point.ID,
			pgvector.NewVector(point.Vector),
			point.Chunk.Text,
			point.Chunk.Source,
			point.Chunk.DocID,
			point.Chunk.ChunkIndex,
		)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for range points {
		if _, err := results.Exec(); err != nil {
			return 0, fmt.Errorf("failed to upsert point: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush upsert batch: %w", err)
	}

	return len(points), nil
}

// SearchSimilar はコサイン類似度による近傍検索を実行する。
// スコアは 1 - コサイン距離（正規化済みベクトルなら [0, 1]）で、
// filter.ScoreThreshold 未満の結果はSQL側で除外される。
func (s *Store) SearchSimilar(ctx context.Context, vector []float32, limit int, filter search.SearchFilter) ([]*search.SearchResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d does not match collection dimension %d", len(vector), s.dimension)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	sql := fmt.Sprintf(`
		SELECT content, source, doc_id, chunk_index, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE ($2::text IS NULL OR source = $2)
		  AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`, s.collection)

	rows, err := s.pool.Query(ctx, sql,
		pgvector.NewVector(vector),
		filter.Source,
		filter.ScoreThreshold,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", s.collection, err)
	}
	defer rows.Close()

	results := make([]*search.SearchResult, 0, limit)
	for rows.Next() {
		result := &search.SearchResult{}
		if err := rows.Scan(&result.Text, &result.Source, &result.DocID, &result.ChunkIndex, &result.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return results, nil
}

// DeleteBySource は source が一致する全ポイントを削除する
func (s *Store) DeleteBySource(ctx context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("source is required")
	}
	if err := s.EnsureCollection(ctx); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE source = $1`, s.collection), source)
	if err != nil {
		return fmt.Errorf("failed to delete source %s: %w", source, err)
	}

	s.logger.Info("source deleted", "collection", s.collection, "source", source, "points", tag.RowsAffected())
	return nil
}

// ListSources は取り込み済みソースの統計を返す
func (s *Store) ListSources(ctx context.Context) ([]*ingestion.SourceStat, error) {
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	sql := fmt.Sprintf(`
		SELECT source, count(*) AS point_count, max(created_at) AS last_indexed_at
		FROM %s
		GROUP BY source
		ORDER BY source`, s.collection)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	stats := make([]*ingestion.SourceStat, 0)
	for rows.Next() {
		stat := &ingestion.SourceStat{}
		if err := rows.Scan(&stat.Source, &stat.PointCount, &stat.LastIndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source stat: %w", err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source stats: %w", err)
	}

	return stats, nil
}

func (s *Store) validateDimensions(points []*ingestion.IndexedPoint) error {
	for _, point := range points {
		if len(point.Vector) != s.dimension {
			return fmt.Errorf("point %s has dimension %d, collection requires %d", point.ID, len(point.Vector), s.dimension)
		}
	}
	return nil
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// lockID は (collection, source) からアドバイザリロックのIDを導出する
func lockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	hash := h.Sum(nil)

	var id int64
	for i := range 8 {
		id = (id << 8) | int64(hash[i])
	}
	return id
}

// インターフェース実装の確認
var (
	_ ingestion.Repository = (*Store)(nil)
	_ search.Repository    = (*Store)(nil)
)
