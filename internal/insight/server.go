package insight

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/moneyhub/pkg/middleware"
)

// Server はAIインサイトサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
}

// NewServer は新しいインサイトサーバーを生成する。
func NewServer(cfg Config) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(cfg.IsDevelopment()))
	router.Use(middleware.RequestLoggerWithLevel(cfg.LogLevel))

	s := &Server{
		router: router,
		cfg:    cfg,
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動し、SIGINT/SIGTERMで安全に停止する。
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case sig := <-quit:
		log.Printf("[Shutdown] signal=%s service=insight 停止処理を開始します", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Shutdown] 停止処理がタイムアウトしました: %v", err)
	}

	log.Printf("[Shutdown] service=insight 停止しました")
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		insights := api.Group("/insights")
		{
			// 支出要約の取得（プレースホルダー）
			insights.GET("/summary", s.handleSummary())
			// インサイト生成（プレースホルダー）
			insights.POST("/generate", s.handleGenerate())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "insight"})
	})
}

// handleSummary は支出要約の取得を処理するハンドラを返す。
// 生成ロジックは未実装のため、常に空のインサイトを返す。
func (s *Server) handleSummary() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Insight generation is not implemented yet",
			"data": gin.H{
				"summary":  "",
				"insights": []any{},
			},
		})
	}
}

// handleGenerate はインサイト生成を処理するハンドラを返す。
// 生成ロジックは未実装のため、受付のみ行う。
func (s *Server) handleGenerate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Insight generation is not implemented yet",
			"data": gin.H{
				"insights": []any{},
			},
		})
	}
}
