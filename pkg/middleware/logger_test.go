package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestRequestLogger はリクエストロガーミドルウェアを検証する。
// ログ出力の副作用のみでレスポンスを変更しないことを確認する。
func TestRequestLogger(t *testing.T) {
	t.Run("レスポンス完了時に1行のログが出力されること", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(prev)

		router := gin.New()
		router.Use(RequestLogger())
		router.GET("/wallets", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		})

		req := httptest.NewRequest(http.MethodGet, "/wallets?page=2", nil)
		req.Header.Set("User-Agent", "moneyhub-test/1.0")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}

		logLine := buf.String()
		for _, want := range []string{"method=GET", "path=/wallets?page=2", "status=200", "duration_ms=", "moneyhub-test/1.0"} {
			if !strings.Contains(logLine, want) {
				t.Errorf("ログに %q が含まれていない: %q", want, logLine)
			}
		}
	})

	t.Run("errorレベルでは正常レスポンスを記録しないこと", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(prev)

		router := gin.New()
		router.Use(RequestLoggerWithLevel(LogLevelError))
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		})
		router.GET("/boom", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if buf.Len() != 0 {
			t.Errorf("正常レスポンスが記録されている: %q", buf.String())
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if !strings.Contains(buf.String(), "status=500") {
			t.Errorf("5xxレスポンスが記録されていない: %q", buf.String())
		}
	})

	t.Run("warnレベルでは4xx以上のみ記録されること", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(prev)

		router := gin.New()
		router.Use(RequestLoggerWithLevel(LogLevelWarn))
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
		})
		router.GET("/missing", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"status": "fail"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if buf.Len() != 0 {
			t.Errorf("正常レスポンスが記録されている: %q", buf.String())
		}

		w = httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		if !strings.Contains(buf.String(), "status=404") {
			t.Errorf("4xxレスポンスが記録されていない: %q", buf.String())
		}
	})

	t.Run("レスポンスボディが変更されないこと", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		defer log.SetOutput(prev)

		router := gin.New()
		router.Use(RequestLogger())
		router.GET("/echo", func(c *gin.Context) {
			c.String(http.StatusTeapot, "unchanged-body")
		})

		req := httptest.NewRequest(http.MethodGet, "/echo", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusTeapot {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusTeapot)
		}
		if w.Body.String() != "unchanged-body" {
			t.Errorf("ボディ = %q, want %q", w.Body.String(), "unchanged-body")
		}
	})
}
