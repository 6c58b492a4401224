package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// OpenAI設定（Chat + Embeddings用）
	OpenAI OpenAIConfig

	// HTTPサーバ設定
	Server ServerConfig

	// プリロードコーパス設定
	Corpus CorpusConfig

	// アップロード制限設定
	Upload UploadConfig

	// Agentの動作指示となるシステムプロンプト
	SystemPrompt string
}

// OpenAIConfig はOpenAI API設定（Chat + Embeddings）
type OpenAIConfig struct {
	APIKey             string
	ChatModel          string
	EmbeddingModel     string
	EmbeddingDimension int
}

// ServerConfig はHTTPサーバ設定
type ServerConfig struct {
	Port int
}

// CorpusConfig はプリロードコーパスの読み込み設定
type CorpusConfig struct {
	// Dir はプロセス起動時に一度だけスキャンするディレクトリ。
	// 存在しない場合でもエラーとせず、空のインデックスを構築する。
	Dir string
}

// UploadConfig はアップロードファイルの制限設定
type UploadConfig struct {
	// MaxFileSize は1ファイルあたりの最大バイト数
	MaxFileSize int64
}

// DefaultSystemPrompt はシステムプロンプトが未設定の場合に使用する既定値。
// 内容は不透明な設定値として扱い、非空であること以外は検証しない。
const DefaultSystemPrompt = `あなたはナレッジベース検索と質問応答の専門アシスタントです。
以下の方針で回答してください。

1. 質問が「いまアップロードされたファイル」の内容に関するものであれば、uploaded_file_retriever を優先して使用してください。
2. 質問が「事前に読み込まれた背景知識」に関するものであれば、preloaded_document_retriever を使用してください。
3. ツールで得られる情報が不足している場合や、一般的な質問（挨拶や簡単な計算など）の場合は、ツールを使わずに直接回答してください。

最終回答は利用者がそのまま読める簡潔な文章とし、取得したコンテキストに基づいて正確に答えてください。`

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
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		Server: ServerConfig{
			Port: getEnvAsInt("CHATDOC_PORT", 8080),
		},
		Corpus: CorpusConfig{
			Dir: getEnv("CHATDOC_CORPUS_DIR", "rag_data"),
		},
		Upload: UploadConfig{
			MaxFileSize: getEnvAsInt64("CHATDOC_MAX_UPLOAD_BYTES", 10<<20),
		},
		SystemPrompt: getEnv("CHATDOC_SYSTEM_PROMPT", DefaultSystemPrompt),
	}

	if cfg.SystemPrompt == "" {
		return nil, fmt.Errorf("system prompt must not be empty")
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

// getEnvAsInt64 は環境変数を64bit整数として取得します
func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
