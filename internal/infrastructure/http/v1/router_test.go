package v1

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cueclub/pkg/logger"
)

// The full wiring, including the discount rule engine, must come up
// without error before the server can accept traffic.
func TestNewRouter_Builds(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	router, err := NewRouter(RouterConfig{Logger: log})
	require.NoError(t, err)
	require.NotNil(t, router)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
