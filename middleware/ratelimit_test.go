package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pipelineatlas/atlas-api/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func limitedRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/proposals", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	t.Run("rejects a client over its burst", func(t *testing.T) {
		rl := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 1,
			Burst:             2,
		}, zap.NewNop())
		defer rl.Close()
		handler := rl.Limit(okHandler())

		assert.Equal(t, http.StatusOK, limitedRequest(handler, "10.0.0.1:1111").Code)
		assert.Equal(t, http.StatusOK, limitedRequest(handler, "10.0.0.1:2222").Code)
		assert.Equal(t, http.StatusTooManyRequests, limitedRequest(handler, "10.0.0.1:3333").Code)

		// Other clients keep their own bucket.
		assert.Equal(t, http.StatusOK, limitedRequest(handler, "10.0.0.2:1111").Code)
	})

	t.Run("disabled limiter passes everything through", func(t *testing.T) {
		rl := NewRateLimiter(config.RateLimitConfig{Enabled: false}, zap.NewNop())
		defer rl.Close()
		handler := rl.Limit(okHandler())

		for i := 0; i < 10; i++ {
			assert.Equal(t, http.StatusOK, limitedRequest(handler, "10.0.0.1:1111").Code)
		}
	})

	t.Run("close is idempotent and leaves the limiter serving", func(t *testing.T) {
		rl := NewRateLimiter(config.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             100,
		}, zap.NewNop())
		handler := rl.Limit(okHandler())

		rl.Close()
		rl.Close()

		assert.Equal(t, http.StatusOK, limitedRequest(handler, "10.0.0.1:1111").Code)
	})
}
