package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	fix := newAPIFixture(t, &stubFetcher{})

	w := fix.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]int{
		"queued":    0,
		"running":   0,
		"succeeded": 0,
		"failed":    0,
	}, resp.Tasks)
}

func TestHealthCountsTasks(t *testing.T) {
	fix := newAPIFixture(t, &stubFetcher{})

	for i := 0; i < 3; i++ {
		w := fix.do(t, http.MethodPost, "/api/exports",
			`{"startDate":"2024-03-01","endDate":"2024-03-01","locationIndex":1}`)
		require.Equal(t, http.StatusAccepted, w.Code)
	}

	w := fix.do(t, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[HealthResponse](t, w)
	assert.Equal(t, 3, resp.Tasks["succeeded"])
}
