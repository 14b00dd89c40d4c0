package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(New("memory"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("postgres")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })

		w := serve(h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"up"}}`, w.Body.String())
	})

	t.Run("one check down", func(t *testing.T) {
		h := New("postgres")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		w := serve(h, "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "up", resp.Checks["postgres"])
		assert.Equal(t, "down: connection refused", resp.Checks["redis"])
	})

	t.Run("checks get a deadline", func(t *testing.T) {
		h := New("memory")
		h.RegisterCheck("sample", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		assert.Equal(t, http.StatusOK, serve(h, "/health/ready").Code)
	})
}

func TestStatusReportsBackend(t *testing.T) {
	w := serve(New("memory"), "/health")
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "memory", resp.Backend)
}
