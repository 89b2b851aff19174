package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/moneyhub/pkg/httpclient"
	"github.com/nao1215/moneyhub/pkg/middleware"
)

// legacyUsersDeprecationDate は旧 /users エンドポイントの廃止日。
const legacyUsersDeprecationDate = "2025-06-30"

// Server はAPI GatewayのHTTPサーバー。
// 外部契約を一手に引き受け、内部サービスへのプロキシに徹する。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
	// proxyClient はプロキシ転送用のHTTPクライアント。
	proxyClient *http.Client
	// userDirectory はトークン主体の生存確認に使用するユーザーサービスのクライアント。
	userDirectory *httpclient.Client
	// healthClients はヘルスチェック対象サービスのクライアント。
	healthClients map[string]*httpclient.Client
	// startTime はサーバーの起動時刻。uptimeの計算に使用する。
	startTime time.Time
}

// NewServer は新しいGatewayサーバーを生成する。
func NewServer(cfg Config) *Server {
	router := gin.New()
	router.Use(middleware.Recovery(cfg.IsDevelopment()))
	router.Use(middleware.RequestLoggerWithLevel(cfg.LogLevel))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS([]string{cfg.CORSOrigin}))
	router.Use(middleware.RateLimit(cfg.RateLimitWindow, cfg.RateLimitMax))

	s := &Server{
		router:        router,
		cfg:           cfg,
		proxyClient:   &http.Client{Timeout: cfg.ProxyTimeout},
		userDirectory: httpclient.NewWithTimeout(cfg.UserServiceURL, cfg.HealthTimeout),
		healthClients: map[string]*httpclient.Client{
			"user":      httpclient.NewWithTimeout(cfg.UserServiceURL, cfg.HealthTimeout),
			"smsparser": httpclient.NewWithTimeout(cfg.SMSParserURL, cfg.HealthTimeout),
			"insight":   httpclient.NewWithTimeout(cfg.InsightURL, cfg.HealthTimeout),
		},
		startTime: time.Now(),
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
		log.Printf("[Shutdown] signal=%s service=gateway 停止処理を開始します", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Shutdown] 停止処理がタイムアウトしました: %v", err)
	}

	log.Printf("[Shutdown] service=gateway 停止しました")
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ゲートウェイ情報
	s.router.GET("/", s.handleRoot())
	// ヘルスチェック（内部サービスの死活確認を含む）
	s.router.GET("/health", s.handleHealth())
	// 廃止済みの旧エンドポイント
	s.router.GET("/users", s.handleLegacyUsers())

	api := s.router.Group("/api/v1")
	{
		// 認証エンドポイント（認証不要でユーザーサービスにプロキシ）
		auth := api.Group("/auth")
		{
			auth.POST("/register", s.handleProxy("user", s.cfg.UserServiceURL, "/api/v1/auth/register"))
			auth.POST("/login", s.handleProxy("user", s.cfg.UserServiceURL, "/api/v1/auth/login"))
		}

		// ユーザー管理（プロキシ）。主体の生存確認は転送先のuserサービスが
		// authRequiredで行うため、ここでは署名検証のみ。
		users := api.Group("/users")
		users.Use(middleware.JWTAuth(s.cfg.JWTSecret))
		{
			users.GET("", s.handleProxy("user", s.cfg.UserServiceURL, "/api/v1/users"))
			users.GET("/me", s.handleProxy("user", s.cfg.UserServiceURL, "/api/v1/users/me"))
			users.PATCH("/me/password", s.handleProxy("user", s.cfg.UserServiceURL, "/api/v1/users/me/password"))
			users.GET("/:id", s.handleProxyWithParam("user", s.cfg.UserServiceURL, "/api/v1/users/", "id"))
			users.PATCH("/:id", s.handleProxyWithParam("user", s.cfg.UserServiceURL, "/api/v1/users/", "id"))
			users.DELETE("/:id", s.handleProxyWithParam("user", s.cfg.UserServiceURL, "/api/v1/users/", "id"))
			users.DELETE("/:id/hard", s.handleProxyWithParam("user", s.cfg.UserServiceURL, "/api/v1/users/", "id", "/hard"))
		}

		// SMSパーサー（プロキシ）。スタブサービスは認証を持たないため、
		// トークン主体の生存確認はゲートウェイ側で行う。
		sms := api.Group("/sms")
		sms.Use(middleware.JWTAuth(s.cfg.JWTSecret), s.requireActiveSubject())
		{
			sms.POST("/parse", s.handleProxy("smsparser", s.cfg.SMSParserURL, "/api/v1/sms/parse"))
		}

		// AIインサイト（プロキシ）
		insights := api.Group("/insights")
		insights.Use(middleware.JWTAuth(s.cfg.JWTSecret), s.requireActiveSubject())
		{
			insights.GET("/summary", s.handleProxy("insight", s.cfg.InsightURL, "/api/v1/insights/summary"))
			insights.POST("/generate", s.handleProxy("insight", s.cfg.InsightURL, "/api/v1/insights/generate"))
		}
	}

	// 未定義ルートは一律404
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"status":  "fail",
			"message": fmt.Sprintf("Can't find %s on this server!", c.Request.URL.Path),
		})
	})
}

// handleRoot はゲートウェイの情報を返すハンドラを返す。
func (s *Server) handleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "success",
			"message":     "MoneyHub API Gateway",
			"version":     s.cfg.Version,
			"environment": s.cfg.Env,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"services": gin.H{
				"user":      s.cfg.UserServiceURL,
				"smsparser": s.cfg.SMSParserURL,
				"insight":   s.cfg.InsightURL,
			},
		})
	}
}

// handleHealth はヘルスチェックを処理するハンドラを返す。
// 内部サービスの死活確認の結果を含め、ユーザーサービスに到達できない場合は503を返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		services := gin.H{}
		overall := "ok"
		statusCode := http.StatusOK

		for name, client := range s.healthClients {
			entry := gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)}
			if err := client.Health(c.Request.Context()); err != nil {
				entry["status"] = "unhealthy"
				entry["error"] = err.Error()
				overall = "degraded"
				// ユーザーサービスはゲートウェイの必須依存
				if name == "user" {
					statusCode = http.StatusServiceUnavailable
				}
			} else {
				entry["status"] = "ok"
			}
			services[name] = entry
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		c.JSON(statusCode, gin.H{
			"status":      overall,
			"message":     "gateway health check",
			"service":     "gateway",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"uptime":      time.Since(s.startTime).String(),
			"memoryUsage": fmt.Sprintf("%d MB", mem.Alloc/1024/1024),
			"services":    services,
		})
	}
}

// handleLegacyUsers は廃止済みの旧 /users エンドポイントを処理するハンドラを返す。
func (s *Server) handleLegacyUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusGone, gin.H{
			"status":          "deprecated",
			"message":         "This endpoint has been retired. Use the versioned API instead.",
			"newEndpoint":     "/api/v1/users",
			"deprecationDate": legacyUsersDeprecationDate,
		})
	}
}
