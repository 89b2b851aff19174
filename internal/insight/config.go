package insight

import "os"

// Config はAIインサイトサービスの設定。
// プロセス起動時に一度だけ環境変数から構築し、NewServerに注入する。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string
	// LogLevel はリクエストログの詳細度（debug / info / warn / error）。
	LogLevel string
	// Env は実行環境（development / production）。
	Env string
}

// LoadConfig は環境変数からAIインサイトサービスの設定を構築する。
func LoadConfig() Config {
	return Config{
		Port:     getEnvOr("PORT", "8083"),
		LogLevel: getEnvOr("LOG_LEVEL", "info"),
		Env:      getEnvOr("APP_ENV", "development"),
	}
}

// IsDevelopment は開発環境かどうかを返す。
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
