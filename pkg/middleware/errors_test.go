package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/moneyhub/pkg/apperr"
)

// TestHandle はエラー境界ハンドララッパーを検証する。
func TestHandle(t *testing.T) {
	t.Parallel()

	t.Run("エラーなしの場合ハンドラのレスポンスがそのまま返ること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/ok", Handle(false, func(c *gin.Context) error {
			c.JSON(http.StatusOK, gin.H{"status": "success"})
			return nil
		}))

		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("分類済みエラーが対応するステータスとエンベロープになること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/conflict", Handle(false, func(_ *gin.Context) error {
			return apperr.Conflict("email already in use", nil)
		}))

		req := httptest.NewRequest(http.MethodGet, "/conflict", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusConflict)
		}

		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["status"] != "fail" {
			t.Errorf("status = %q, want %q", body["status"], "fail")
		}
		if body["message"] != "email already in use" {
			t.Errorf("message = %q, want %q", body["message"], "email already in use")
		}
	})

	t.Run("未分類エラーは非開発モードで汎用メッセージの500になること", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/boom", Handle(false, func(_ *gin.Context) error {
			return errors.New("sql: database is locked")
		}))

		req := httptest.NewRequest(http.MethodGet, "/boom", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}

		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["status"] != "error" {
			t.Errorf("status = %q, want %q", body["status"], "error")
		}
		if body["message"] != "something went wrong" {
			t.Errorf("message = %q, want %q", body["message"], "something went wrong")
		}
	})

	t.Run("ハンドラが既にレスポンスを書いた後のエラーでは二重書き込みしないこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/written", Handle(false, func(c *gin.Context) error {
			c.JSON(http.StatusAccepted, gin.H{"status": "success"})
			return errors.New("late failure")
		}))

		req := httptest.NewRequest(http.MethodGet, "/written", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// 先に書かれた202がそのまま返ること
		if w.Code != http.StatusAccepted {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusAccepted)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("レスポンスボディのパースに失敗: %v", err)
		}
		if body["status"] != "success" {
			t.Errorf("status = %q, want %q", body["status"], "success")
		}
	})
}
