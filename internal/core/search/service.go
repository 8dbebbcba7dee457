package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultLimit は検索上限の未指定時のデフォルト値
const DefaultLimit = 5

// ErrEmptyEmbedding はクエリの埋め込みが空だった場合のエラー。
// 呼び出し側はインフラ障害ではなく「処理できない入力」として扱える。
var ErrEmptyEmbedding = errors.New("query embedding is empty")

// Embedder はクエリのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService は類似チャンク検索のビジネスロジックを提供する
type SearchService struct {
	repo           Repository
	embedder       Embedder
	defaultLimit   int
	scoreThreshold float64
	logger         *slog.Logger
}

type SearchServiceOption func(*SearchService)

// WithSearchLogger は SearchService にロガーを設定する
func WithSearchLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// WithDefaultLimit は検索上限のデフォルト値を上書きする
func WithDefaultLimit(limit int) SearchServiceOption {
	return func(s *SearchService) {
		s.defaultLimit = limit
	}
}

// WithScoreThreshold は類似度スコアの下限を設定する
func WithScoreThreshold(threshold float64) SearchServiceOption {
	return func(s *SearchService) {
		s.scoreThreshold = threshold
	}
}

// NewSearchService は新しいSearchServiceを作成する
func NewSearchService(repo Repository, embedder Embedder, opts ...SearchServiceOption) *SearchService {
	svc := &SearchService{
		repo:         repo,
		embedder:     embedder,
		defaultLimit: DefaultLimit,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// SearchParams は検索パラメータを表す
type SearchParams struct {
	Query  string
	Limit  int     // 0以下の場合はデフォルト値が使われる
	Source *string // 指定時は source で絞り込む
}

// Search はクエリを埋め込み、類似チャンクをスコア降順で取得する
func (s *SearchService) Search(ctx context.Context, params SearchParams) ([]*SearchResult, error) {
	if params.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	queryVector, err := s.embedder.Embed(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVector) == 0 {
		return nil, ErrEmptyEmbedding
	}

	limit := params.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	filter := SearchFilter{
		Source:         params.Source,
		ScoreThreshold: s.scoreThreshold,
	}

	results, err := s.repo.SearchSimilar(ctx, queryVector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	s.logger.Info("search completed",
		"query", params.Query,
		"limit", limit,
		"results", len(results),
	)

	return results, nil
}
