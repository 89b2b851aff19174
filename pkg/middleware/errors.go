package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/moneyhub/pkg/apperr"
)

// HandlerFunc はエラーを返すハンドラ関数。
// レスポンスボディの確定はHandleのエラー境界に一元化する。
type HandlerFunc func(c *gin.Context) error

// Handle はエラーを返すハンドラをGinハンドラに変換する。
// ハンドラが返したエラーを分類に応じたステータスコードと
// {status, message} エンベロープに変換する唯一の場所。
// devModeがtrueの場合のみ内部エラーの詳細をレスポンスに含める。
func Handle(devMode bool, h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h(c)
		if err == nil {
			return
		}

		appErr := apperr.From(err)
		statusCode := appErr.StatusCode()

		// ハンドラが既にレスポンスを書いている場合は二重書き込みしない
		if c.Writer.Written() {
			log.Printf("[Error] method=%s path=%s status=%d error=%v (response already written)",
				c.Request.Method, c.Request.URL.Path, statusCode, err)
			return
		}

		message := appErr.Message
		if statusCode >= http.StatusInternalServerError {
			log.Printf("[Error] method=%s path=%s status=%d error=%v",
				c.Request.Method, c.Request.URL.Path, statusCode, err)
			if !devMode {
				message = "something went wrong"
			}
		}

		c.AbortWithStatusJSON(statusCode, gin.H{
			"status":     appErr.Status(),
			"message":    message,
			"statusCode": statusCode,
		})
	}
}
