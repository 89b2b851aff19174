package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// newRateLimitedRouter は流量制限付きのテスト用ルーターを生成する。
func newRateLimitedRouter(window time.Duration, max int) *gin.Engine {
	router := gin.New()
	router.Use(RateLimit(window, max))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	return router
}

// doRateLimitRequest は指定したクライアントIPからのリクエストを実行する。
func doRateLimitRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestRateLimit は流量制限ミドルウェアを検証する。
func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("上限を超えたリクエストは429", func(t *testing.T) {
		t.Parallel()

		router := newRateLimitedRouter(time.Minute, 2)

		for i := 0; i < 2; i++ {
			if w := doRateLimitRequest(router, "10.0.0.1:1234"); w.Code != http.StatusOK {
				t.Fatalf("%d回目のステータスコード: got %d, want %d", i+1, w.Code, http.StatusOK)
			}
		}

		w := doRateLimitRequest(router, "10.0.0.1:1234")
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusTooManyRequests)
		}
	})

	t.Run("クライアントIPごとに独立してカウントされる", func(t *testing.T) {
		t.Parallel()

		router := newRateLimitedRouter(time.Minute, 1)

		if w := doRateLimitRequest(router, "10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("1つ目のIPのステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
		if w := doRateLimitRequest(router, "10.0.0.1:1234"); w.Code != http.StatusTooManyRequests {
			t.Fatalf("1つ目のIPの2回目: got %d, want %d", w.Code, http.StatusTooManyRequests)
		}
		if w := doRateLimitRequest(router, "10.0.0.2:1234"); w.Code != http.StatusOK {
			t.Fatalf("2つ目のIPのステータスコード: got %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("上限0は制限なし", func(t *testing.T) {
		t.Parallel()

		router := newRateLimitedRouter(time.Minute, 0)

		for i := 0; i < 10; i++ {
			if w := doRateLimitRequest(router, "10.0.0.1:1234"); w.Code != http.StatusOK {
				t.Fatalf("%d回目のステータスコード: got %d, want %d", i+1, w.Code, http.StatusOK)
			}
		}
	})
}
