// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、* で全許可）

	// リクエスト制限
	MaxBodySize int64 // リクエストボディの最大サイズ（バイト）

	// ジョブ設定
	OutputDir            string // 成果物の保存先ディレクトリ（空なら一時ディレクトリ）
	JobMaxAgeHours       int    // ジョブの最大保持時間（時間）
	SweepIntervalMinutes int    // 掃除の実行間隔（分）
	JobResultBaseURL     string // ダウンロードURLのベース（空なら相対パス）

	// キュー設定
	QueueRedisURL string // Asynq用Redis接続URL（空ならプロセス内実行）

	// ドキュメント設定
	DefaultLanguage string // 言語未指定時のフォールバック
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定（旧フロントエンドは任意のオリジンから叩いてくる）
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		// リクエスト制限
		MaxBodySize: getEnvAsInt64("MAX_BODY_SIZE", 10*1024*1024), // 10MB

		// ジョブ設定
		OutputDir:            getEnv("OUTPUT_DIR", ""),
		JobMaxAgeHours:       getEnvAsInt("JOB_MAX_AGE_HOURS", 24),
		SweepIntervalMinutes: getEnvAsInt("SWEEP_INTERVAL_MINUTES", 60),
		JobResultBaseURL:     getEnv("JOB_RESULT_BASE_URL", ""),

		// キュー設定
		QueueRedisURL: getEnv("QUEUE_REDIS_URL", ""),

		// ドキュメント設定
		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.JobMaxAgeHours <= 0 {
		return fmt.Errorf("JOB_MAX_AGE_HOURS must be positive (got %d)", c.JobMaxAgeHours)
	}
	if c.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_MINUTES must be positive (got %d)", c.SweepIntervalMinutes)
	}
	if c.DefaultLanguage == "" {
		return fmt.Errorf("DEFAULT_LANGUAGE must not be empty")
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
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

// getEnvAsInt64 は環境変数を64ビット整数として取得します。
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
