package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時にメソッド・パス・スタックトレースをログに出力し、
// 統一エラーエンベロープで500を返す。
// devModeがtrueの場合のみパニック内容をレスポンスに含める。
// 開発モード以外では内部情報を漏らさず汎用メッセージのみ返す。
func Recovery(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] method=%s path=%s panic=%v\n%s",
					c.Request.Method, c.Request.URL.Path, r, debug.Stack())

				message := "something went wrong"
				if devMode {
					message = fmt.Sprintf("panic: %v", r)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"status":  "error",
					"message": message,
				})
			}
		}()
		c.Next()
	}
}
