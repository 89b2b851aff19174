package smsparser

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

// Server はSMSパーサーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
}

// NewServer は新しいSMSパーサーサーバーを生成する。
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
		log.Printf("[Shutdown] signal=%s service=smsparser 停止処理を開始します", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Shutdown] 停止処理がタイムアウトしました: %v", err)
	}

	log.Printf("[Shutdown] service=smsparser 停止しました")
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		sms := api.Group("/sms")
		{
			// SMS解析（プレースホルダー）
			sms.POST("/parse", s.handleParse())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "smsparser"})
	})
}

// parseRequest はSMS解析リクエストのJSON構造。
type parseRequest struct {
	// Text は解析対象のSMS本文。
	Text string `json:"text" binding:"required"`
	// Sender は送信元の表示名や番号（任意）。
	Sender string `json:"sender"`
}

// handleParse はSMS解析を処理するハンドラを返す。
// 解析ロジックは未実装のため、常に空の取引リストを返す。
func (s *Server) handleParse() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req parseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "fail",
				"message": "invalid request body: text is required",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "SMS parsing is not implemented yet",
			"data": gin.H{
				"transactions": []any{},
			},
		})
	}
}
