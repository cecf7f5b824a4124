package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// clientIP picks the rate-limit key for a request: the first forwarded hop,
// then X-Real-IP, then the socket peer. Header values that do not parse as an
// IP are skipped.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := canonicalIP(first); ip != "" {
			return ip
		}
	}
	if ip := canonicalIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}

	addr := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if ip := canonicalIP(addr); ip != "" {
		return ip
	}
	return addr
}

func canonicalIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
