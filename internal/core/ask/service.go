package ask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/conflux/internal/core/search"
)

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// AskService は質問応答のビジネスロジックを提供する
type AskService struct {
	searchService *search.SearchService
	llm           LLMClient
	logger        *slog.Logger
}

type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// NewAskService は新しいAskServiceを作成する
func NewAskService(
	searchService *search.SearchService,
	llm LLMClient,
	opts ...AskServiceOption,
) *AskService {
	svc := &AskService{
		searchService: searchService,
		llm:           llm,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Ask は質問に対してRAGベースで回答を生成する。
// 検索で根拠が得られなかった場合は生成を呼ばず定型文を返す。
// ストアやLLMの障害は error として返り、定型文とは区別できる。
func (s *AskService) Ask(ctx context.Context, params AskParams) (*AskResult, error) {
	// 1. バリデーション
	if strings.TrimSpace(params.Question) == "" {
		return &AskResult{Answer: AnswerNoQuestion}, nil
	}

	// 2-3. 埋め込みと検索
	results, err := s.searchService.Search(ctx, search.SearchParams{
		Query:  params.Question,
		Limit:  params.Limit,
		Source: params.Source,
	})
	if err != nil {
		// 埋め込みが空なのは入力の問題であり、障害ではなく定型文で返す
		if errors.Is(err, search.ErrEmptyEmbedding) {
			s.logger.Warn("question produced no embedding", "question", params.Question)
			return &AskResult{Answer: AnswerEmbeddingFailed}, nil
		}
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	// 4. コンテキストの組み立て（本文のない結果はスキップ、順位は保持）
	contexts := make([]string, 0, len(results))
	sources := make([]SourceReference, 0, len(results))
	for _, result := range results {
		if strings.TrimSpace(result.Text) == "" {
			continue
		}
		contexts = append(contexts, result.Text)
		sources = append(sources, SourceReference{
			Source:     result.Source,
			DocID:      result.DocID,
			ChunkIndex: result.ChunkIndex,
			Score:      result.Score,
		})
	}

	// 5. 根拠がなければ生成せずに終える
	if len(contexts) == 0 {
		s.logger.Info("no grounding context found", "question", params.Question)
		return &AskResult{Answer: AnswerNotFound}, nil
	}

	// 6. 生成（単発、リトライはLLMクライアント側の責務）
	prompt := BuildGroundingPrompt(strings.Join(contexts, "\n\n"), params.Question)

	s.logger.Info("generating answer", "question", params.Question, "chunks", len(contexts))
	answer, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &AskResult{
		Answer:          answer,
		RetrievedChunks: len(contexts),
		Sources:         sources,
	}, nil
}
