package gateway

import (
	"os"
	"strconv"
	"time"
)

// Config はGatewayサーバーの設定。環境変数から一度だけ構築し、
// 以降はこの構造体経由で参照する。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// UserServiceURL はユーザーサービスのベースURL。
	UserServiceURL string
	// SMSParserURL はSMSパーサーサービスのベースURL。
	SMSParserURL string
	// InsightURL はAIインサイトサービスのベースURL。
	InsightURL string
	// JWTSecret はJWT検証用の秘密鍵。
	JWTSecret string
	// CORSOrigin はCORSで許可するオリジン。
	CORSOrigin string
	// ProxyTimeout はプロキシリクエストのタイムアウト。
	ProxyTimeout time.Duration
	// HealthTimeout は内部サービスのヘルスチェックのタイムアウト。
	HealthTimeout time.Duration
	// RateLimitWindow は流量制限の時間窓。
	RateLimitWindow time.Duration
	// RateLimitMax は時間窓あたりの最大リクエスト数。0以下で制限なし。
	RateLimitMax int
	// LogLevel はリクエストログの詳細度（debug / info / warn / error）。
	LogLevel string
	// Version はゲートウェイのバージョン文字列。
	Version string
	// Env は実行環境（development / production）。
	Env string
}

// LoadConfig は環境変数からGateway設定を構築する。
func LoadConfig() Config {
	return Config{
		Port:            getEnvOr("PORT", "8080"),
		UserServiceURL:  getEnvOr("USER_SERVICE_URL", "http://localhost:8081"),
		SMSParserURL:    getEnvOr("SMS_PARSER_URL", "http://localhost:8082"),
		InsightURL:      getEnvOr("INSIGHT_URL", "http://localhost:8083"),
		JWTSecret:       getEnvOr("JWT_SECRET", "dev-secret-key"),
		CORSOrigin:      getEnvOr("CORS_ORIGIN", "http://localhost:3000"),
		ProxyTimeout:    getEnvDurationOr("PROXY_TIMEOUT", 30*time.Second),
		HealthTimeout:   getEnvDurationOr("HEALTH_TIMEOUT", 5*time.Second),
		RateLimitWindow: getEnvDurationOr("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitMax:    getEnvIntOr("RATE_LIMIT_MAX", 100),
		LogLevel:        getEnvOr("LOG_LEVEL", "info"),
		Version:         getEnvOr("APP_VERSION", "1.0.0"),
		Env:             getEnvOr("APP_ENV", "development"),
	}
}

// IsDevelopment は開発環境かどうかを返す。
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
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

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvDurationOr は環境変数を時間として取得する。
// 時間として解釈できる文字列（"30s"など）または秒数を受け付ける。
func getEnvDurationOr(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return defaultValue
}
