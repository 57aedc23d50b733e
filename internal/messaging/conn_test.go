package messaging

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/lifecycled/internal/config"
	"github.com/fyrsmithlabs/lifecycled/internal/logging"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T, opts *natsserver.Options) *natsserver.Server {
	t.Helper()

	if opts == nil {
		opts = &natsserver.Options{}
	}
	opts.Host = "127.0.0.1"
	opts.Port = -1 // Random port
	opts.NoLog = true
	opts.NoSigs = true
	opts.MaxControlLine = 2048

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNewConn(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		conn, err := NewConn(Config{}, logging.NewTestLogger().Logger)
		require.NoError(t, err)
		assert.Equal(t, "nats://127.0.0.1:4222", conn.config.URL)
		assert.Equal(t, "lifecycled", conn.config.Name)
		assert.Equal(t, 5, conn.config.MaxReconnects)
		assert.Equal(t, 1*time.Second, conn.config.ReconnectWait)
		assert.Nil(t, conn.NATS())
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewConn(Config{}, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})
}

func TestConn_PreStartAndStop(t *testing.T) {
	server := startTestNATSServer(t, nil)

	conn, err := NewConn(Config{URL: server.ClientURL()}, logging.NewTestLogger().Logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, conn.PreStart(ctx))
	require.NotNil(t, conn.NATS())
	assert.True(t, conn.NATS().IsConnected())

	nc := conn.NATS()
	require.NoError(t, conn.Stop(ctx))
	assert.True(t, nc.IsClosed())
}

func TestConn_PreStartIsIdempotent(t *testing.T) {
	server := startTestNATSServer(t, nil)

	conn, err := NewConn(Config{URL: server.ClientURL()}, logging.NewTestLogger().Logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, conn.PreStart(ctx))
	first := conn.NATS()
	require.NoError(t, conn.PreStart(ctx))
	assert.Same(t, first, conn.NATS())

	require.NoError(t, conn.Stop(ctx))
}

func TestConn_StopWithoutStart(t *testing.T) {
	conn, err := NewConn(Config{}, logging.NewTestLogger().Logger)
	require.NoError(t, err)

	assert.NoError(t, conn.Stop(context.Background()))
}

func TestConn_UserInfo(t *testing.T) {
	server := startTestNATSServer(t, &natsserver.Options{
		Username: "lifecycled",
		Password: "hunter2",
	})

	conn, err := NewConn(Config{
		URL:      server.ClientURL(),
		User:     "lifecycled",
		Password: config.Secret("hunter2"),
	}, logging.NewTestLogger().Logger)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, conn.PreStart(ctx))
	assert.True(t, conn.NATS().IsConnected())

	require.NoError(t, conn.Stop(ctx))
}
