package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrshare/qrshare/internal/server/blobs"
	"github.com/qrshare/qrshare/internal/server/config"
	"github.com/qrshare/qrshare/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DataDir = t.TempDir()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	c.LogLevel = "error"
	return c
}

func TestNewApp_LocalBackends(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.repos.Close() })

	assert.NotNil(t, app.service)
	assert.NotNil(t, app.sweeper)
	assert.Equal(t, 15*time.Minute, app.service.TTL())
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.TTL = 0

	_, err := NewApp(c)
	require.Error(t, err)
}

func TestNewApp_RepositoryError(t *testing.T) {
	old := openRepositories
	t.Cleanup(func() { openRepositories = old })
	openRepositories = func(context.Context, repomanager.Options) (repomanager.RepositoryManager, error) {
		return nil, errors.New("db down")
	}

	_, err := NewApp(testConfig(t))
	require.ErrorContains(t, err, "db down")
}

func TestNewApp_S3BackendSelected(t *testing.T) {
	old := newS3Store
	t.Cleanup(func() { newS3Store = old })

	var got blobs.S3Options
	newS3Store = func(_ context.Context, opts blobs.S3Options) (*blobs.S3Store, error) {
		got = opts
		return nil, errors.New("no s3 here")
	}

	c := testConfig(t)
	c.BlobBackend = config.BlobBackendS3
	c.S3Bucket = "share"
	c.S3BaseEndpoint = "http://minio:9000"

	_, err := NewApp(c)
	require.ErrorContains(t, err, "no s3 here")
	assert.Equal(t, "share", got.Bucket)
	assert.Equal(t, "http://minio:9000", got.Endpoint)
	assert.True(t, got.UsePathStyle)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := NewApp(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited too early: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestRun_FailsOnBadAddress(t *testing.T) {
	c := testConfig(t)
	c.EndpointAddrGRPC = "127.0.0.1:99999"

	app, err := NewApp(c)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.ErrorContains(t, err, "grpc")
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after a component failed")
	}
}
