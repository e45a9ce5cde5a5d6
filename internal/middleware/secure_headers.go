package middleware

import (
	"strconv"

	"github.com/daya/backend/internal/config"
	"github.com/gin-gonic/gin"
)

// SecureHeaders sets the response headers every JSON API response carries.
// Strict-Transport-Security is only sent when a max age is configured.
func SecureHeaders(cfg config.SecurityConfig) gin.HandlerFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.FormatInt(int64(cfg.HSTSMaxAge.Seconds()), 10)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "DENY")
		header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		header.Set("Cache-Control", "no-store")
		if cfg.ContentSecurityPolicy != "" {
			header.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
		}
		if hsts != "" {
			header.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}
