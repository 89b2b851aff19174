package user

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/moneyhub/pkg/middleware"
)

// contextKeyUser はgin.Contextに格納する認証済みユーザーのキー。
const contextKeyUser = "current_user"

// authRequired はBearerトークンを検証し、ディレクトリ上のユーザーと突き合わせる。
// トークンが有効でも、ユーザーが削除済み・無効化済みの場合は401を返す。
func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "You are not logged in. Please provide a bearer token.",
			})
			return
		}

		claims, err := middleware.VerifyJWT(s.cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "Invalid token. Please log in again!",
			})
			return
		}

		u, err := s.store.GetByID(c.Request.Context(), claims.UserID, false)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"status":  "fail",
					"message": "The user belonging to this token no longer exists.",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status":  "error",
				"message": "something went wrong",
			})
			return
		}

		if !u.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "This account has been deactivated.",
			})
			return
		}

		c.Set(contextKeyUser, u)
		c.Next()
	}
}

// restrictTo は認証済みユーザーのロールが指定されたいずれかであることを要求する。
// authRequiredの後に配置すること。
func restrictTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "You are not logged in. Please provide a bearer token.",
			})
			return
		}

		for _, role := range roles {
			if u.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"status":  "fail",
			"message": "You do not have permission to perform this action",
		})
	}
}

// optionalAuth はトークンがあれば検証してユーザーをコンテキストに載せる。
// トークンが無い・無効な場合も処理を続行する。
func (s *Server) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}

		claims, err := middleware.VerifyJWT(s.cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.Next()
			return
		}

		if u, err := s.store.GetByID(c.Request.Context(), claims.UserID, false); err == nil && u.IsActive {
			c.Set(contextKeyUser, u)
		}
		c.Next()
	}
}

// currentUser はコンテキストから認証済みユーザーを取り出す。
// 未認証の場合はnilを返す。
func currentUser(c *gin.Context) *User {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil
	}
	u, ok := v.(*User)
	if !ok {
		return nil
	}
	return u
}
