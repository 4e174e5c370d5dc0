package cli

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/api"
)

func captureServer(t *testing.T) **api.Server {
	t.Helper()
	var captured *api.Server
	original := runServer
	runServer = func(_ context.Context, s *api.Server) error {
		captured = s
		return nil
	}
	t.Cleanup(func() { runServer = original })
	return &captured
}

func TestServeCmd_Metadata(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Equal(t, "", serveCmd.Flags().Lookup("addr").DefValue)
	assert.Equal(t, "32", serveCmd.Flags().Lookup("body-limit-mb").DefValue)
	assert.Contains(t, serveCmd.Long, "/api/qa")
}

func TestServeCmd_DefaultAddrFromConfig(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	server := captureServer(t)

	out, err := execute(t, "serve")

	require.NoError(t, err)
	require.NotNil(t, *server)
	assert.Contains(t, out, "listening on :8000")
}

func TestServeCmd_AddrFlagAndRoutes(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	server := captureServer(t)

	out, err := execute(t, "serve", "--addr", "127.0.0.1:9999", "--cors", "*")

	require.NoError(t, err)
	assert.Contains(t, out, "listening on 127.0.0.1:9999")

	resp, err := (*server).App().Test(httptest.NewRequest("GET", "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestServeCmd_ServicesNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	clearServices()
	captureServer(t)

	_, err := execute(t, "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "services not configured")
}
