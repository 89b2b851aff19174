package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nao1215/moneyhub/pkg/apperr"
	"github.com/nao1215/moneyhub/pkg/middleware"
)

// Server はユーザーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサーバー設定。
	cfg Config
	// store はユーザーディレクトリのストア。
	store *Store
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいユーザーサーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションの適用を行う。
func NewServer(cfg Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := Migrate(sqlDB); err != nil {
		return nil, fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery(cfg.IsDevelopment()))
	router.Use(middleware.RequestLoggerWithLevel(cfg.LogLevel))

	s := &Server{
		router: router,
		cfg:    cfg,
		store:  NewStore(sqlDB),
		db:     sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動し、SIGINT/SIGTERMで安全に停止する。
// 停止時は処理中のリクエストの完了を待ってからデータベース接続を閉じる。
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
		log.Printf("[Shutdown] signal=%s service=user 停止処理を開始します", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Shutdown] 停止処理がタイムアウトしました: %v", err)
	}

	if err := s.db.Close(); err != nil {
		log.Printf("[Shutdown] データベース接続のクローズに失敗: %v", err)
	}

	log.Printf("[Shutdown] service=user 停止しました")
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	dev := s.cfg.IsDevelopment()
	h := func(fn middleware.HandlerFunc) gin.HandlerFunc {
		return middleware.Handle(dev, fn)
	}

	api := s.router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			// ユーザー登録
			auth.POST("/register", h(s.handleRegister()))
			// ログイン
			auth.POST("/login", h(s.handleLogin()))
		}

		users := api.Group("/users")
		users.Use(s.authRequired())
		{
			// 自分のユーザー情報取得
			users.GET("/me", h(s.handleGetMe()))
			// 自分のパスワード変更
			users.PATCH("/me/password", h(s.handleChangePassword()))
			// ユーザー一覧取得（管理者のみ）
			users.GET("", restrictTo(RoleAdmin), h(s.handleList()))
			// ユーザー詳細取得（本人または管理者）
			users.GET("/:id", h(s.handleGetByID()))
			// ユーザー更新（本人または管理者）
			users.PATCH("/:id", h(s.handleUpdate()))
			// ユーザー論理削除（本人または管理者）
			users.DELETE("/:id", h(s.handleDelete()))
			// ユーザー物理削除（管理者のみ）
			users.DELETE("/:id/hard", restrictTo(RoleAdmin), h(s.handleHardDelete()))
		}
	}

	// 内部ネットワーク専用。ゲートウェイがトークン主体の生存確認に使用する。
	internal := s.router.Group("/internal")
	{
		internal.GET("/users/verify", h(s.handleVerifySubject()))
	}

	// ヘルスチェック。認証は任意で、認証済みの場合のみ呼び出し元のIDを含める。
	s.router.GET("/health", s.optionalAuth(), s.handleHealth())
}

// handleHealth はヘルスチェックを処理するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		res := gin.H{"status": "ok", "service": "user"}
		if u := currentUser(c); u != nil {
			res["authenticatedAs"] = u.ID
		}
		c.JSON(http.StatusOK, res)
	}
}

// handleVerifySubject はX-User-IDヘッダーの主体をディレクトリと突き合わせるハンドラを返す。
// 論理削除済みユーザーは404を返し、無効化済みユーザーはisActive=falseのまま返す。
// 有効・無効の判定は呼び出し元のゲートウェイが行う。
func (s *Server) handleVerifySubject() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			return apperr.Validation("X-User-ID header is required", nil)
		}

		u, err := s.store.GetByID(c.Request.Context(), userID, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound("The user belonging to this token no longer exists.", err)
			}
			return apperr.Internal("failed to fetch user", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data": gin.H{
				"user": gin.H{
					"id":       u.ID,
					"role":     u.Role,
					"isActive": u.IsActive,
				},
			},
		})
		return nil
	}
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
	// Phone は電話番号（任意）。
	Phone *string `json:"phone"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
}

// changePasswordRequest はパスワード変更リクエストのJSON構造。
type changePasswordRequest struct {
	// CurrentPassword は現在のパスワード。
	CurrentPassword string `json:"currentPassword" binding:"required"`
	// NewPassword は新しいパスワード。
	NewPassword string `json:"newPassword" binding:"required"`
}

// updateUserRequest はユーザー更新リクエストのJSON構造。
// nilのフィールドは更新しない。
type updateUserRequest struct {
	// Email はメールアドレス。
	Email *string `json:"email"`
	// Phone は電話番号。
	Phone *string `json:"phone"`
	// FirstName は名。
	FirstName *string `json:"firstName"`
	// LastName は姓。
	LastName *string `json:"lastName"`
	// Name は表示名。
	Name *string `json:"name"`
	// Role はロール（管理者のみ変更可能）。
	Role *string `json:"role"`
	// IsActive は有効状態（管理者のみ変更可能）。
	IsActive *bool `json:"isActive"`
	// IsVerified は確認済み状態（管理者のみ変更可能）。
	IsVerified *bool `json:"isVerified"`
}

// issueToken はユーザーに対する署名済みトークンを発行する。
func (s *Server) issueToken(u *User) (string, error) {
	token, err := middleware.GenerateJWT(s.cfg.JWTSecret, u.ID, u.Email, s.cfg.JWTExpiry)
	if err != nil {
		return "", apperr.Internal("failed to issue token", err)
	}
	return token, nil
}

// handleRegister はユーザー登録を処理するハンドラを返す。
// パスワード強度とメールアドレス・電話番号の一意性を検証し、
// 作成したユーザーとトークンを返す。
func (s *Server) handleRegister() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: email and password are required", err)
		}

		if err := validatePasswordStrength(req.Password); err != nil {
			return apperr.Validation(err.Error(), err)
		}

		hash, err := hashPassword(req.Password, s.cfg.BcryptCost)
		if err != nil {
			return apperr.Internal("failed to hash password", err)
		}

		now := time.Now().UTC()
		u := &User{
			ID:           uuid.New().String(),
			Email:        normalizeEmail(req.Email),
			Phone:        req.Phone,
			PasswordHash: hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			DisplayName:  displayName(req.FirstName, req.LastName),
			Role:         RoleUser,
			IsActive:     true,
			IsVerified:   false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.store.Create(c.Request.Context(), u); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateEmail):
				return apperr.Conflict("email is already in use", err)
			case errors.Is(err, ErrDuplicatePhone):
				return apperr.Conflict("phone number is already in use", err)
			}
			return apperr.Internal("failed to create user", err)
		}

		token, err := s.issueToken(u)
		if err != nil {
			return err
		}

		log.Printf("[User] ユーザーを登録しました id=%s email=%s", u.ID, u.Email)
		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"data":   gin.H{"user": toUserResponse(u), "token": token},
		})
		return nil
	}
}

// handleLogin はログインを処理するハンドラを返す。
// メールアドレスの存在有無・パスワード不一致・無効化済みアカウントの
// いずれでも同一のメッセージを返し、アカウントの存在を漏らさない。
func (s *Server) handleLogin() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: email and password are required", err)
		}

		credentialErr := func(err error) error {
			return apperr.Unauthenticated("Incorrect email or password", err)
		}

		u, err := s.store.GetByEmail(c.Request.Context(), req.Email, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return credentialErr(err)
			}
			return apperr.Internal("failed to look up user", err)
		}

		if err := comparePassword(u.PasswordHash, req.Password); err != nil {
			return credentialErr(err)
		}
		if !u.IsActive {
			return credentialErr(errors.New("account is deactivated"))
		}

		now := time.Now().UTC()
		if err := s.store.UpdateLastLogin(c.Request.Context(), u.ID, now); err != nil {
			// 最終ログイン日時の更新失敗はログイン自体を妨げない
			log.Printf("[User] 最終ログイン日時の更新に失敗 id=%s error=%v", u.ID, err)
		} else {
			u.LastLoginAt = &now
		}

		token, err := s.issueToken(u)
		if err != nil {
			return err
		}

		log.Printf("[User] ログインしました id=%s email=%s", u.ID, u.Email)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": toUserResponse(u), "token": token},
		})
		return nil
	}
}

// handleGetMe は認証済みユーザー自身の情報取得を処理するハンドラを返す。
func (s *Server) handleGetMe() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		u := currentUser(c)
		if u == nil {
			return apperr.Unauthenticated("You are not logged in. Please provide a bearer token.", nil)
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": toUserResponse(u)},
		})
		return nil
	}
}

// handleChangePassword は認証済みユーザー自身のパスワード変更を処理するハンドラを返す。
// 現在のパスワードの照合後に新しいパスワードを保存し、新しいトークンを発行する。
func (s *Server) handleChangePassword() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		u := currentUser(c)
		if u == nil {
			return apperr.Unauthenticated("You are not logged in. Please provide a bearer token.", nil)
		}

		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body: currentPassword and newPassword are required", err)
		}

		if err := comparePassword(u.PasswordHash, req.CurrentPassword); err != nil {
			return apperr.Unauthenticated("Your current password is wrong", err)
		}

		if err := validatePasswordStrength(req.NewPassword); err != nil {
			return apperr.Validation(err.Error(), err)
		}

		hash, err := hashPassword(req.NewPassword, s.cfg.BcryptCost)
		if err != nil {
			return apperr.Internal("failed to hash password", err)
		}

		u.PasswordHash = hash
		if err := s.store.Update(c.Request.Context(), u); err != nil {
			return apperr.Internal("failed to update password", err)
		}

		token, err := s.issueToken(u)
		if err != nil {
			return err
		}

		log.Printf("[User] パスワードを変更しました id=%s", u.ID)
		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"token": token},
		})
		return nil
	}
}

// handleList はユーザー一覧取得を処理するハンドラを返す。管理者のみ実行できる。
// page / limit / search / sortBy / sortOrder / isActive / isVerified の
// クエリパラメータを受け付ける。
func (s *Server) handleList() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		filter := ListFilter{
			Page:      queryInt(c, "page", 1),
			Limit:     queryInt(c, "limit", 10),
			Search:    c.Query("search"),
			SortBy:    c.Query("sortBy"),
			SortOrder: c.Query("sortOrder"),
		}

		var err error
		if filter.IsActive, err = queryBool(c, "isActive"); err != nil {
			return apperr.Validation("isActive must be true or false", err)
		}
		if filter.IsVerified, err = queryBool(c, "isVerified"); err != nil {
			return apperr.Validation("isVerified must be true or false", err)
		}

		users, total, err := s.store.List(c.Request.Context(), filter)
		if err != nil {
			return apperr.Internal("failed to list users", err)
		}

		responses := make([]userResponse, 0, len(users))
		for _, u := range users {
			responses = append(responses, toUserResponse(u))
		}

		totalPages := 0
		if filter.Limit > 0 {
			totalPages = (total + filter.Limit - 1) / filter.Limit
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"results": len(responses),
			"data":    gin.H{"users": responses},
			"pagination": gin.H{
				"total":      total,
				"page":       filter.Page,
				"limit":      filter.Limit,
				"totalPages": totalPages,
				"hasNext":    filter.Page < totalPages,
				"hasPrev":    filter.Page > 1,
			},
		})
		return nil
	}
}

// handleGetByID はユーザー詳細取得を処理するハンドラを返す。
// 本人または管理者のみ参照できる。
func (s *Server) handleGetByID() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		actor := currentUser(c)
		targetID := c.Param("id")
		if err := requireSelfOrAdmin(actor, targetID); err != nil {
			return err
		}

		u, err := s.store.GetByID(c.Request.Context(), targetID, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound("user not found", err)
			}
			return apperr.Internal("failed to get user", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": toUserResponse(u)},
		})
		return nil
	}
}

// handleUpdate はユーザー更新を処理するハンドラを返す。
// プロフィール項目は本人または管理者が、role / isActive / isVerified は
// 管理者のみが変更できる。姓名の変更時は表示名を再計算する。
func (s *Server) handleUpdate() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		actor := currentUser(c)
		targetID := c.Param("id")
		if err := requireSelfOrAdmin(actor, targetID); err != nil {
			return err
		}

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return apperr.Validation("invalid request body", err)
		}

		isAdmin := actor != nil && actor.Role == RoleAdmin
		if (req.Role != nil || req.IsActive != nil || req.IsVerified != nil) && !isAdmin {
			return apperr.Forbidden("You do not have permission to perform this action", nil)
		}
		if req.Role != nil && !isValidRole(*req.Role) {
			return apperr.Validation(fmt.Sprintf("invalid role: %s", *req.Role), nil)
		}

		u, err := s.store.GetByID(c.Request.Context(), targetID, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound("user not found", err)
			}
			return apperr.Internal("failed to get user", err)
		}

		nameChanged := false
		if req.Email != nil {
			u.Email = normalizeEmail(*req.Email)
		}
		if req.Phone != nil {
			u.Phone = req.Phone
		}
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
			nameChanged = true
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
			nameChanged = true
		}
		if req.Name != nil {
			u.DisplayName = *req.Name
		} else if nameChanged {
			// 表示名が明示されていない場合は姓名から再計算する
			u.DisplayName = displayName(u.FirstName, u.LastName)
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if req.IsVerified != nil {
			u.IsVerified = *req.IsVerified
		}

		if err := s.store.Update(c.Request.Context(), u); err != nil {
			switch {
			case errors.Is(err, ErrDuplicateEmail):
				return apperr.Conflict("email is already in use", err)
			case errors.Is(err, ErrDuplicatePhone):
				return apperr.Conflict("phone number is already in use", err)
			case errors.Is(err, ErrUserNotFound):
				return apperr.NotFound("user not found", err)
			}
			return apperr.Internal("failed to update user", err)
		}

		updated, err := s.store.GetByID(c.Request.Context(), targetID, false)
		if err != nil {
			return apperr.Internal("failed to get updated user", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"user": toUserResponse(updated)},
		})
		return nil
	}
}

// handleDelete はユーザーの論理削除を処理するハンドラを返す。
// 本人または管理者のみ実行できる。削除済みユーザーは存在しないものとして扱う。
func (s *Server) handleDelete() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		actor := currentUser(c)
		targetID := c.Param("id")
		if err := requireSelfOrAdmin(actor, targetID); err != nil {
			return err
		}

		if err := s.store.SoftDelete(c.Request.Context(), targetID, time.Now().UTC()); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound("user not found", err)
			}
			return apperr.Internal("failed to delete user", err)
		}

		log.Printf("[User] ユーザーを論理削除しました id=%s by=%s", targetID, actor.ID)
		c.Status(http.StatusNoContent)
		return nil
	}
}

// handleHardDelete はユーザーの物理削除を処理するハンドラを返す。
// 管理者のみ実行でき、元に戻すことはできない。
func (s *Server) handleHardDelete() middleware.HandlerFunc {
	return func(c *gin.Context) error {
		actor := currentUser(c)
		targetID := c.Param("id")

		if err := s.store.HardDelete(c.Request.Context(), targetID); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return apperr.NotFound("user not found", err)
			}
			return apperr.Internal("failed to delete user", err)
		}

		log.Printf("[User] ユーザーを物理削除しました id=%s by=%s", targetID, actor.ID)
		c.Status(http.StatusNoContent)
		return nil
	}
}

// requireSelfOrAdmin は操作対象が本人自身か、操作者が管理者であることを要求する。
func requireSelfOrAdmin(actor *User, targetID string) error {
	if actor == nil {
		return apperr.Unauthenticated("You are not logged in. Please provide a bearer token.", nil)
	}
	if actor.ID != targetID && actor.Role != RoleAdmin {
		return apperr.Forbidden("You do not have permission to perform this action", nil)
	}
	return nil
}

// isValidRole は既知のロールかどうかを判定する。
func isValidRole(role string) bool {
	switch role {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// queryInt はクエリパラメータを整数として取得する。不正な値はデフォルト値になる。
func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// queryBool はクエリパラメータを真偽値として取得する。未指定の場合はnilを返す。
func queryBool(c *gin.Context, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
