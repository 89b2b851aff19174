package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit はクライアントIP単位で流量制限を行うGinミドルウェアを返す。
// windowあたりmaxリクエストを上限とし、超過したリクエストには429を返す。
// maxまたはwindowが0以下の場合、制限は行われない。
//
// TODO: リミッターのマップは増える一方なので、最終アクセス時刻に
// 基づく古いエントリの掃除を追加する。
func RateLimit(window time.Duration, max int) gin.HandlerFunc {
	if max <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limit := rate.Every(window / time.Duration(max))

	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(limit, max)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  "fail",
				"message": "Too many requests, please try again later.",
			})
			return
		}
		c.Next()
	}
}
