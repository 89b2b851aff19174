package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/moneyhub/pkg/httpclient"
	"github.com/nao1215/moneyhub/pkg/middleware"
)

// verifyResponse はユーザーサービスの主体照会レスポンスのJSON構造。
type verifyResponse struct {
	// Data は照会結果を格納するデータ部。
	Data struct {
		// User は照会されたユーザー。
		User struct {
			// ID はユーザーの一意識別子。
			ID string `json:"id"`
			// Role はユーザーのロール。
			Role string `json:"role"`
			// IsActive はアカウントが有効かどうか。
			IsActive bool `json:"isActive"`
		} `json:"user"`
	} `json:"data"`
}

// requireActiveSubject はトークンの主体をユーザーディレクトリと突き合わせる
// Ginミドルウェアを返す。署名が有効でも、ユーザーが削除済みの場合や
// 無効化済みの場合は401を返す。middleware.JWTAuthの後に配置すること。
// ディレクトリに到達できない場合は安全側に倒して503を返す。
func (s *Server) requireActiveSubject() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := httpclient.WithUserID(c.Request.Context(), middleware.GetUserID(c))

		var res verifyResponse
		if err := s.userDirectory.GetJSON(ctx, "/internal/users/verify", &res); err != nil {
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"status":  "fail",
					"message": "The user belonging to this token no longer exists.",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"status":  "error",
				"message": "user is currently unavailable",
				"errors":  []string{"SERVICE_UNAVAILABLE"},
			})
			return
		}

		if !res.Data.User.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "fail",
				"message": "This account has been deactivated.",
			})
			return
		}
		c.Next()
	}
}
