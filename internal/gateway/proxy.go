package gateway

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/moneyhub/pkg/middleware"
)

// handleProxy は指定されたサービスにリクエストをプロキシするハンドラを返す。
func (s *Server) handleProxy(serviceName, baseURL, path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + path
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, serviceName, proxyURL)
	}
}

// handleProxyWithParam はURLパラメータを含むプロキシハンドラを返す。
func (s *Server) handleProxyWithParam(serviceName, baseURL, pathPrefix, paramName string, pathSuffix ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxyURL := baseURL + pathPrefix + c.Param(paramName)
		for _, suffix := range pathSuffix {
			proxyURL += suffix
		}
		if c.Request.URL.RawQuery != "" {
			proxyURL += "?" + c.Request.URL.RawQuery
		}
		s.doProxy(c, serviceName, proxyURL)
	}
}

// doProxy はリクエストを内部サービスにプロキシする共通処理。
// 元のリクエストのメソッド・ヘッダー・ボディをそのまま転送し、
// 上流の失敗は503のエンベロープに変換する。リトライは行わない。
// クライアントが切断した場合はリクエストコンテキスト経由で転送も中断される。
func (s *Server) doProxy(c *gin.Context, serviceName, url string) {
	start := time.Now()
	log.Printf("[Proxy] --> service=%s method=%s url=%s", serviceName, c.Request.Method, url)

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, url, c.Request.Body)
	if err != nil {
		s.writeUnavailable(c, serviceName)
		log.Printf("[Proxy] リクエスト作成に失敗: service=%s error=%v", serviceName, err)
		return
	}

	// 元のリクエストヘッダーをすべて転送し、認証済みユーザーIDを付与する
	req.Header = c.Request.Header.Clone()
	if userID := middleware.GetUserID(c); userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := s.proxyClient.Do(req)
	if err != nil {
		s.writeUnavailable(c, serviceName)
		log.Printf("[Proxy] 転送に失敗: service=%s url=%s error=%v", serviceName, url, err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.writeUnavailable(c, serviceName)
		log.Printf("[Proxy] レスポンス読み取りに失敗: service=%s error=%v", serviceName, err)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, body)

	log.Printf("[Proxy] <-- service=%s status=%d duration_ms=%d",
		serviceName, resp.StatusCode, time.Since(start).Milliseconds())
}

// writeUnavailable はサービス利用不可のレスポンスを書き込む。
// レスポンスが既に書き込まれている場合は二重書き込みしない。
func (s *Server) writeUnavailable(c *gin.Context, serviceName string) {
	if c.Writer.Written() {
		return
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"status":  "error",
		"message": serviceName + " is currently unavailable",
		"errors":  []string{"SERVICE_UNAVAILABLE"},
	})
}
