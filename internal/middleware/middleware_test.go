package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/bizsearch/internal/logger"
)

func init() {
	// Set Gin to test mode to reduce noise in tests
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})
		return router
	}

	t.Run("generates new request ID", func(t *testing.T) {
		w := serve(newRouter(), http.MethodGet, "/test", nil)

		headerID := w.Header().Get(RequestIDHeader)
		assert.Len(t, headerID, 36, "expected a UUID")
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		w := serve(newRouter(), http.MethodGet, "/test", map[string]string{RequestIDHeader: "upstream-123"})

		assert.Equal(t, "upstream-123", w.Body.String())
		assert.Equal(t, "upstream-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces unsafe request IDs", func(t *testing.T) {
		for _, bad := range []string{"has space", strings.Repeat("a", maxRequestIDLength+1), "tab\there"} {
			w := serve(newRouter(), http.MethodGet, "/test", map[string]string{RequestIDHeader: bad})
			assert.NotEqual(t, bad, w.Body.String())
			assert.Len(t, w.Body.String(), 36)
		}
	})

	t.Run("GetRequestID returns empty string if not set", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(&gin.Context{}))
	})
}

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"http://localhost:3000", "http://localhost:5173"}

	newRouter := func(origins []string) *gin.Engine {
		router := gin.New()
		router.Use(CORS(origins))
		router.GET("/api/v1/search/:name", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})
		return router
	}

	t.Run("allows request from allowed origin", func(t *testing.T) {
		w := serve(newRouter(allowedOrigins), http.MethodGet, "/api/v1/search/acme",
			map[string]string{"Origin": "http://localhost:3000"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("does not set CORS headers for disallowed origin", func(t *testing.T) {
		w := serve(newRouter(allowedOrigins), http.MethodGet, "/api/v1/search/acme",
			map[string]string{"Origin": "http://evil.com"})

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight advertises read-only methods", func(t *testing.T) {
		w := serve(newRouter(allowedOrigins), http.MethodOptions, "/api/v1/search/acme", map[string]string{
			"Origin":                        "http://localhost:5173",
			"Access-Control-Request-Method": http.MethodGet,
		})

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET,HEAD,OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("rejects preflight for disallowed origin", func(t *testing.T) {
		w := serve(newRouter(allowedOrigins), http.MethodOptions, "/api/v1/search/acme", map[string]string{
			"Origin":                        "http://evil.com",
			"Access-Control-Request-Method": http.MethodGet,
		})

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		w := serve(newRouter([]string{"*"}), http.MethodGet, "/api/v1/search/acme",
			map[string]string{"Origin": "http://anywhere.example"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &line))
		lines = append(lines, line)
	}
	return lines
}

func TestLogger(t *testing.T) {
	t.Run("logs completed request with route and request ID", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(logger.NewWithWriter(&buf, zerolog.InfoLevel)))
		router.GET("/api/v1/businesses/:id", func(c *gin.Context) {
			assert.NotNil(t, GetLogger(c), "handlers get a request-scoped logger")
			c.String(http.StatusOK, "OK")
		})

		serve(router, http.MethodGet, "/api/v1/businesses/7?verbose=1", map[string]string{RequestIDHeader: "req-1"})

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "info", lines[0]["level"])
		assert.Equal(t, "/api/v1/businesses/:id", lines[0]["route"])
		assert.Equal(t, "/api/v1/businesses/7", lines[0]["path"])
		assert.Equal(t, "verbose=1", lines[0]["query"])
		assert.Equal(t, "req-1", lines[0]["request_id"])
		assert.EqualValues(t, 200, lines[0]["status"])
	})

	t.Run("client and server errors raise the level", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(Logger(logger.NewWithWriter(&buf, zerolog.InfoLevel)))
		router.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
		router.GET("/down", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

		serve(router, http.MethodGet, "/bad", nil)
		serve(router, http.MethodGet, "/down", nil)
		serve(router, http.MethodGet, "/missing", nil)

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 3)
		assert.Equal(t, "warn", lines[0]["level"])
		assert.Equal(t, "error", lines[1]["level"])
		assert.Equal(t, "unmatched", lines[2]["route"])
	})

	t.Run("quiet paths log at debug", func(t *testing.T) {
		var buf bytes.Buffer
		router := gin.New()
		router.Use(Logger(logger.NewWithWriter(&buf, zerolog.InfoLevel), "/health"))
		router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

		serve(router, http.MethodGet, "/health", nil)

		assert.Empty(t, buf.String())
	})

	t.Run("GetLogger returns nil if not set", func(t *testing.T) {
		assert.Nil(t, GetLogger(&gin.Context{}))
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic and returns 500", func(t *testing.T) {
		var buf bytes.Buffer
		log := logger.NewWithWriter(&buf, zerolog.InfoLevel)
		router := gin.New()
		router.Use(RequestID())
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		w := serve(router, http.MethodGet, "/panic", map[string]string{RequestIDHeader: "req-panic"})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var body struct {
			Error struct {
				Code      string `json:"code"`
				RequestID string `json:"request_id"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INTERNAL_SERVER_ERROR", body.Error.Code)
		assert.Equal(t, "req-panic", body.Error.RequestID)
		assert.Contains(t, buf.String(), "panic: test panic")
	})

	t.Run("does not interfere with normal requests", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(logger.Nop()))
		router.GET("/normal", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		w := serve(router, http.MethodGet, "/normal", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})
}

func TestMiddlewareStack(t *testing.T) {
	log := logger.Nop()

	router := gin.New()
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.Use(CORS([]string{"http://localhost:3000"}))
	router.GET("/test", func(c *gin.Context) {
		assert.NotEmpty(t, GetRequestID(c))
		assert.NotNil(t, GetLogger(c))
		c.String(http.StatusOK, "OK")
	})

	w := serve(router, http.MethodGet, "/test", map[string]string{"Origin": "http://localhost:3000"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
