package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"installhub/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterStoreIsBounded(t *testing.T) {
	s := NewRateLimiterStore(60, 3, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for _, ip := range []string{"a", "b", "c", "d", "e"} {
		s.getLimiter(ip)
		now = now.Add(time.Second)
	}
	if s.Len() != 3 {
		t.Fatalf("tracked = %d, want 3", s.Len())
	}
	if _, ok := s.limiters["a"]; ok {
		t.Fatalf("oldest client should have been evicted")
	}

	now = now.Add(2 * time.Minute)
	s.getLimiter("f")
	if s.Len() != 1 {
		t.Fatalf("idle clients not swept: %d tracked", s.Len())
	}
}

func TestRateLimitMiddlewareRejectsBurst(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(NewRateLimiterStore(2, 10, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestAuthAndRoleChain(t *testing.T) {
	r := gin.New()
	r.GET("/installer", JWTAuthMiddleware(), RequireRole(utils.RoleInstaller), func(c *gin.Context) {
		sub, _ := Caller(c)
		c.String(http.StatusOK, sub)
	})
	r.GET("/wallet/:id", JWTAuthMiddleware(), RequireOwnerOrAdmin("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		r.ServeHTTP(w, req)
		return w
	}

	installer, _ := utils.GenerateToken("i1", utils.RoleInstaller, time.Hour)
	customer, _ := utils.GenerateToken("c1", utils.RoleCustomer, time.Hour)
	admin, _ := utils.GenerateToken("ops", utils.RoleAdmin, time.Hour)

	if w := do("/installer", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", w.Code)
	}
	if w := do("/installer", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", w.Code)
	}
	if w := do("/installer", customer); w.Code != http.StatusForbidden {
		t.Fatalf("wrong role = %d", w.Code)
	}
	if w := do("/installer", installer); w.Code != http.StatusOK || w.Body.String() != "i1" {
		t.Fatalf("installer = %d %q", w.Code, w.Body.String())
	}
	if w := do("/wallet/i1", installer); w.Code != http.StatusOK {
		t.Fatalf("owner = %d", w.Code)
	}
	if w := do("/wallet/i2", installer); w.Code != http.StatusForbidden {
		t.Fatalf("other owner = %d", w.Code)
	}
	if w := do("/wallet/i2", admin); w.Code != http.StatusOK {
		t.Fatalf("admin = %d", w.Code)
	}
}

func TestClientIPIgnoresUnparseableHeaders(t *testing.T) {
	cases := []struct {
		xff, realIP, remote string
		want                string
	}{
		{"10.0.0.1, 10.0.0.2", "", "192.0.2.1:4000", "10.0.0.1"},
		{"not-an-ip", "198.51.100.7", "192.0.2.1:4000", "198.51.100.7"},
		{"", "garbage", "192.0.2.1:4000", "192.0.2.1"},
		{"", "", "[2001:db8::1]:443", "2001:db8::1"},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.RemoteAddr = tc.remote
		if tc.xff != "" {
			c.Request.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.realIP != "" {
			c.Request.Header.Set("X-Real-IP", tc.realIP)
		}
		if got := clientIP(c); got != tc.want {
			t.Fatalf("clientIP(xff=%q, real=%q, remote=%q) = %q, want %q", tc.xff, tc.realIP, tc.remote, got, tc.want)
		}
	}
}
