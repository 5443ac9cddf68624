package status

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_Status(t *testing.T) {
	publicMux := http.NewServeMux()
	internalMux := http.NewServeMux()
	New().RegisterHttpHandlers(publicMux, internalMux)

	t.Run("internal status endpoint", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		internalMux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"status": "healthy"`)
		assert.Contains(t, recorder.Body.String(), `"service": "adtbridge"`)
	})

	t.Run("not registered on the public mux", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		publicMux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/status", nil))
		assert.Equal(t, http.StatusNotFound, recorder.Code)
	})
}
