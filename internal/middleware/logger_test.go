package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickerql/config"
	"github.com/guttosm/tickerql/internal/logger"
)

func TestToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{123, ""},
	}
	for _, c := range cases {
		if got := toString(c.in); got != c.want {
			t.Fatalf("toString(%v)=%q, want %q", c.in, got, c.want)
		}
	}
}

func TestRequestLogger_StatusClasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger.Init(config.LogConfig{Level: "error"})

	router := gin.New()
	router.Use(RequestID(), RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/bad", func(c *gin.Context) {
		AbortWithError(c, http.StatusBadRequest, "bad", assertErr{})
	})
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for path, want := range map[string]int{"/ok": 200, "/bad": 400, "/boom": 502} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Fatalf("%s: status %d, want %d", path, w.Code, want)
		}
		if w.Header().Get(RequestIDHeader) == "" {
			t.Fatalf("%s: missing X-Request-ID header", path)
		}
	}
}
