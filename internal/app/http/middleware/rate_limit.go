package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// RateLimit allows perMinute requests per authenticated user with a burst of
// the same size. Anonymous requests are keyed by client IP. perMinute <= 0
// disables limiting.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiters := expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL)
	every := rate.Every(time.Minute / time.Duration(perMinute))

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := c.GetUint("user_id"); id != 0 {
			key = "user:" + strconv.FormatUint(uint64(id), 10)
		}

		lim, ok := limiters.Get(key)
		if !ok {
			lim = rate.NewLimiter(every, perMinute)
			limiters.Add(key, lim)
		}

		if !lim.Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
