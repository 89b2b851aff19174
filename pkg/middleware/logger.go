package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ログ出力の詳細度。LOG_LEVEL環境変数で指定する値に対応する。
const (
	// LogLevelDebug はすべてのリクエストを記録する。
	LogLevelDebug = "debug"
	// LogLevelInfo はすべてのリクエストを記録する（デフォルト）。
	LogLevelInfo = "info"
	// LogLevelWarn は4xx以上のレスポンスのみ記録する。
	LogLevelWarn = "warn"
	// LogLevelError は5xx以上のレスポンスのみ記録する。
	LogLevelError = "error"
)

// RequestLogger はリクエスト/レスポンスを構造化して記録するGinミドルウェアを返す。
// レスポンス完了時にメソッド・パス・ステータスコード・所要時間（ミリ秒）・
// クライアントアドレス・User-Agentを1行で出力する。
// 観測専用の副作用であり、リクエスト・レスポンスの内容は一切変更しない。
func RequestLogger() gin.HandlerFunc {
	return RequestLoggerWithLevel(LogLevelInfo)
}

// RequestLoggerWithLevel はログレベル付きのリクエストロガーを返す。
// warnでは4xx以上、errorでは5xx以上のレスポンスのみ記録する。
// 未知のレベルはinfoとして扱う。
func RequestLoggerWithLevel(level string) gin.HandlerFunc {
	threshold := statusThreshold(level)

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		if c.Writer.Status() < threshold {
			return
		}

		log.Printf("[Request] method=%s path=%s status=%d duration_ms=%d client=%s user_agent=%q",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.ClientIP(),
			c.Request.UserAgent(),
		)
	}
}

// statusThreshold はログレベルに対応する記録対象の最小ステータスコードを返す。
func statusThreshold(level string) int {
	switch level {
	case LogLevelWarn:
		return http.StatusBadRequest
	case LogLevelError:
		return http.StatusInternalServerError
	default:
		return 0
	}
}
