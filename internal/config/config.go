// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// 認証設定
	SessionSecret     string        // セッションCookieとトークン署名鍵の導出元
	SessionMaxAge     time.Duration // セッションCookie/セッションレコードの有効期間
	TokenTTL          time.Duration // アクセストークンの有効期間
	LoginRejectStatus int           // 認証失敗時に返すHTTPステータス

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ストレージ設定
	RedisURL string // 空の場合はインメモリストアを使用

	// レビュー履歴ジョブ設定
	QueueRedisURL string        // Asynq用Redis接続URL（空なら履歴は無効）
	HistoryTTL    time.Duration // 履歴リストの保持期間

	// カタログ設定
	CatalogPath string // 空の場合は埋め込みのカタログを使用
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionMaxAge:     time.Duration(getEnvAsInt("SESSION_MAX_AGE_HOURS", 24)) * time.Hour,
		TokenTTL:          time.Duration(getEnvAsInt("TOKEN_TTL_MINUTES", 60)) * time.Minute,
		LoginRejectStatus: getEnvAsInt("LOGIN_REJECT_STATUS", http.StatusUnauthorized),

		Port:    getEnv("PORT", "5001"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		RedisURL: getEnv("REDIS_URL", ""),

		QueueRedisURL: getEnv("QUEUE_REDIS_URL", ""),
		HistoryTTL:    time.Duration(getEnvAsInt("HISTORY_TTL_HOURS", 168)) * time.Hour,

		CatalogPath: getEnv("CATALOG_PATH", ""),
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
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL_MINUTES must be positive")
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_HOURS must be positive")
	}
	if c.LoginRejectStatus < 200 || c.LoginRejectStatus > 599 || c.LoginRejectStatus == http.StatusOK {
		return fmt.Errorf("LOGIN_REJECT_STATUS must be a non-200 HTTP status: %d", c.LoginRejectStatus)
	}

	// ローカル開発ではシークレットは任意（起動時にランダム生成）
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes in release mode")
		}
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
