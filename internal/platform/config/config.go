package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + LLM）
	OpenAI OpenAIConfig

	// ベクトルストア設定
	Vector VectorConfig

	// チャンク分割設定
	Chunk ChunkConfig

	// 検索設定
	Search SearchConfig

	// Confluence接続設定
	Confluence ConfluenceConfig

	// HTTPサーバ設定
	HTTP HTTPConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定（Embeddings + LLM）
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	LLMModel       string
}

// VectorConfig はベクトルストア設定
type VectorConfig struct {
	Collection string
	Dimension  int
}

// ChunkConfig はチャンク分割設定
type ChunkConfig struct {
	Size    int
	Overlap int
}

// SearchConfig は類似検索設定
type SearchConfig struct {
	Limit          int
	ScoreThreshold float64
}

// ConfluenceConfig はConfluence REST API接続設定
type ConfluenceConfig struct {
	BaseURL  string
	Username string
	APIToken string
}

// HTTPConfig はHTTPサーバ設定
type HTTPConfig struct {
	Port      int
	UploadDir string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "conflux"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "conflux"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			LLMModel:       getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
		},
		Vector: VectorConfig{
			Collection: getEnv("COLLECTION_NAME", "documents"),
			Dimension:  getEnvAsInt("VECTOR_DIMENSION", 1536),
		},
		Chunk: ChunkConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 800),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 150),
		},
		Search: SearchConfig{
			Limit:          getEnvAsInt("SEARCH_LIMIT", 5),
			ScoreThreshold: getEnvAsFloat("SCORE_THRESHOLD", 0.5),
		},
		Confluence: ConfluenceConfig{
			BaseURL:  getEnv("CONFLUENCE_BASE_URL", ""),
			Username: getEnv("CONFLUENCE_USERNAME", ""),
			APIToken: getEnv("CONFLUENCE_API_TOKEN", ""),
		},
		HTTP: HTTPConfig{
			Port:      getEnvAsInt("HTTP_PORT", 8000),
			UploadDir: getEnv("UPLOAD_DIR", os.TempDir()),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
