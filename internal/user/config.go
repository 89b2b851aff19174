package user

import (
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config はuserサービスの設定。
// プロセス起動時に一度だけ環境変数から構築し、NewServerに注入する。
// ハンドラ内で環境変数を直接参照してはならない。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// DatabasePath はSQLiteデータベースのパス。
	DatabasePath string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// JWTExpiry はJWTトークンの有効期間。
	JWTExpiry time.Duration
	// BcryptCost はパスワードハッシュのコストファクタ。
	BcryptCost int
	// LogLevel はリクエストログの詳細度（debug / info / warn / error）。
	LogLevel string
	// Env は実行環境（development / production）。
	Env string
}

// LoadConfig は環境変数からuserサービスの設定を構築する。
// 未設定の項目にはデフォルト値を使用する。
func LoadConfig() Config {
	return Config{
		Port:         getEnvOr("PORT", "8081"),
		DatabasePath: getEnvOr("DATABASE_PATH", "/data/user.db?_journal_mode=WAL&_busy_timeout=5000"),
		JWTSecret:    getEnvOr("JWT_SECRET", "dev-secret-key"),
		JWTExpiry:    getEnvDurationOr("JWT_EXPIRES_IN", 24*time.Hour),
		BcryptCost:   getEnvIntOr("BCRYPT_COST", bcrypt.DefaultCost),
		LogLevel:     getEnvOr("LOG_LEVEL", "info"),
		Env:          getEnvOr("APP_ENV", "development"),
	}
}

// IsDevelopment は開発環境かどうかを返す。
// 開発環境でのみエラーの詳細をレスポンスに含める。
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvIntOr は整数型の環境変数を取得する。不正な値はデフォルト値にフォールバックする。
func getEnvIntOr(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDurationOr は期間型の環境変数（例: "24h"）を取得する。
// 不正な値はデフォルト値にフォールバックする。
func getEnvDurationOr(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
