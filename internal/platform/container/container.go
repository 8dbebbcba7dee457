package container

import (
	"context"
	"fmt"
	"log/slog"

	coreask "github.com/jinford/conflux/internal/core/ask"
	coreingestion "github.com/jinford/conflux/internal/core/ingestion"
	"github.com/jinford/conflux/internal/core/ingestion/chunk"
	coresearch "github.com/jinford/conflux/internal/core/search"
	"github.com/jinford/conflux/internal/infra/openai"
	"github.com/jinford/conflux/internal/infra/pdf"
	"github.com/jinford/conflux/internal/infra/postgres"
	"github.com/jinford/conflux/internal/platform/config"
	"github.com/jinford/conflux/internal/platform/database"
)

// ServiceContainer はアプリケーションの依存関係を組み立てて保持する。
// 生成はすべてここで行い、各サービスはコンストラクタ注入のみで依存を受け取る。
type ServiceContainer struct {
	IngestionService *coreingestion.IngestionService
	SearchService    *coresearch.SearchService
	AskService       *coreask.AskService
	IngestionRepo    coreingestion.Repository
	PDFExtractor     *pdf.Extractor

	logger   *slog.Logger
	database *database.Database
}

type containerOptions struct {
	logger        *slog.Logger
	embedder      coreingestion.Embedder
	llmClient     coreask.LLMClient
	ingestionRepo coreingestion.Repository
	searchRepo    coresearch.Repository
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder coreingestion.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client coreask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerIngestionRepository は取り込み用リポジトリを差し替える
func WithContainerIngestionRepository(repo coreingestion.Repository) ContainerOption {
	return func(opts *containerOptions) {
		opts.ingestionRepo = repo
	}
}

// WithContainerSearchRepository は検索用リポジトリを差し替える
func WithContainerSearchRepository(repo coresearch.Repository) ContainerOption {
	return func(opts *containerOptions) {
		opts.searchRepo = repo
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.New(ctx, database.ConnectionParams{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	container, err := NewContainerWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return container, nil
}

// NewContainerWithDB は既存の Database を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.Database, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Embedder (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.Vector.Dimension),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	// Repository (PostgreSQL + pgvector)
	ingestionRepo := options.ingestionRepo
	searchRepo := options.searchRepo
	if ingestionRepo == nil || searchRepo == nil {
		store, err := postgres.NewStore(
			db.Pool,
			cfg.Vector.Collection,
			cfg.Vector.Dimension,
			postgres.WithStoreLogger(options.logger),
		)
		if err != nil {
			return nil, fmt.Errorf("ベクトルストア初期化に失敗しました: %w", err)
		}
		if ingestionRepo == nil {
			ingestionRepo = store
		}
		if searchRepo == nil {
			searchRepo = store
		}
	}

	// LLMClient (OpenAI)
	llmClient := options.llmClient
	if llmClient == nil {
		openaiLLMClient, err := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.LLMModel)
		if err != nil {
			return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
		}
		llmClient = openaiLLMClient
	}

	// Chunker
	chunker, err := chunk.NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return nil, fmt.Errorf("Chunker 初期化に失敗しました: %w", err)
	}

	// IngestionService
	ingestionService := coreingestion.NewIngestionService(
		chunker,
		embedder,
		ingestionRepo,
		coreingestion.WithIngestionLogger(options.logger),
	)

	// SearchService
	searchService := coresearch.NewSearchService(
		searchRepo,
		embedder,
		coresearch.WithSearchLogger(options.logger),
		coresearch.WithDefaultLimit(cfg.Search.Limit),
		coresearch.WithScoreThreshold(cfg.Search.ScoreThreshold),
	)

	// AskService
	askService := coreask.NewAskService(searchService, llmClient, coreask.WithAskLogger(options.logger))

	return &ServiceContainer{
		IngestionService: ingestionService,
		SearchService:    searchService,
		AskService:       askService,
		IngestionRepo:    ingestionRepo,
		PDFExtractor:     pdf.NewExtractor(pdf.WithExtractorLogger(options.logger)),
		logger:           options.logger,
		database:         db,
	}, nil
}

// Logger はコンテナのロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}
