package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestRecovery はRecoveryミドルウェアを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("パニックが発生した場合500と汎用メッセージが返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(false))
		router.GET("/panic", func(_ *gin.Context) {
			panic("secret internal detail")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["status"] != "error" {
			t.Errorf("status = %q, want %q", body["status"], "error")
		}
		if body["message"] != "something went wrong" {
			t.Errorf("message = %q, want %q", body["message"], "something went wrong")
		}
		// 非開発モードでは内部情報を漏らさないこと
		if strings.Contains(w.Body.String(), "secret internal detail") {
			t.Error("パニック内容がレスポンスに含まれている")
		}
	})

	t.Run("開発モードではパニック内容がレスポンスに含まれること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(true))
		router.GET("/panic", func(_ *gin.Context) {
			panic("debug detail")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if !strings.Contains(w.Body.String(), "debug detail") {
			t.Error("開発モードでパニック内容がレスポンスに含まれていない")
		}
	})

	t.Run("パニックが発生しない場合は通常のレスポンスが返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(false))
		router.GET("/ok", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
