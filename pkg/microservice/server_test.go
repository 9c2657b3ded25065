package microservice_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/microservice"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealthz(t *testing.T, srv *microservice.BaseServer) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestBaseServer_StartHealthzShutdown(t *testing.T) {
	// Arrange
	srv := microservice.NewBaseServer(zerolog.Nop(), "127.0.0.1:0")
	require.Nil(t, srv.Addr())

	// Act
	require.NoError(t, srv.Start())
	status, body := getHealthz(t, srv)

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
}

func TestBaseServer_ServeStopsWithContext(t *testing.T) {
	// Arrange
	srv := microservice.NewBaseServer(zerolog.Nop(), "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// Act
	go func() { done <- srv.Serve(ctx, 2*time.Second) }()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	status, _ := getHealthz(t, srv)
	cancel()

	// Assert
	assert.Equal(t, http.StatusOK, status)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after the context was cancelled")
	}
	_, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	assert.Error(t, err, "listener must be closed after Serve returns")
}

func TestBaseServer_StartFailsOnBadAddress(t *testing.T) {
	srv := microservice.NewBaseServer(zerolog.Nop(), "not-an-address")

	assert.Error(t, srv.Start())
	assert.Error(t, srv.Serve(context.Background(), time.Second))
}
