package natsclient

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/health"
	"github.com/Full-finger/Loquat-sub001/pkg/retry"
	"github.com/Full-finger/Loquat-sub001/testutil"
)

// Nothing listens on port 1, so dials fail fast with connection refused.
const unreachableURL = "nats://127.0.0.1:1"

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusClosed, "closed"},
		{ConnectionStatus(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithName("loquat-test"))
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())

	st := c.GetStatus()
	assert.Equal(t, StatusDisconnected, st.Status)
	assert.Zero(t, st.FailureCount)
	assert.True(t, st.LastFailureTime.IsZero())
}

func TestNewClient_Invalid(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, errors.ErrMissingRequired)

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithMessageTimeout(-time.Second))
	assert.Error(t, err)

	_, err = NewClient("nats://localhost:4222", WithRetry(retry.Config{MaxAttempts: -1}))
	assert.Error(t, err)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient(unreachableURL)
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, c.Publish(ctx, "loquat.out", []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe(ctx, "loquat.in", func(context.Context, []byte) {}), ErrNotConnected)

	_, err = c.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_ConnectRetriesThenFails(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	c, err := NewClient(unreachableURL,
		WithLogger(logger),
		WithRetry(fastRetry(3)),
		WithTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)

	err = c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))

	assert.Equal(t, int32(3), c.Failures())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.GetStatus().LastFailureTime.IsZero())
	assert.Len(t, logs.AtLevel(slog.LevelWarn), 2)

	h := c.Health()
	assert.Equal(t, health.StateUnhealthy, h.Status)
	assert.Equal(t, "nats", h.Component)
}

func TestClient_WaitForConnectionTimesOut(t *testing.T) {
	c, err := NewClient(unreachableURL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = c.WaitForConnection(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c, err := NewClient(unreachableURL, WithCredentials("user", "secret"), WithToken("t0k3n"))
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())
	assert.Empty(t, c.password)
	assert.Empty(t, c.token)

	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestClient_HealthStates(t *testing.T) {
	c, err := NewClient(unreachableURL)
	require.NoError(t, err)

	c.setStatus(StatusConnected)
	assert.True(t, c.Health().IsHealthy())

	c.setStatus(StatusReconnecting)
	assert.True(t, c.Health().IsDegraded())

	c.setStatus(StatusDisconnected)
	assert.True(t, c.Health().IsUnhealthy())
}

func TestClient_HealthCallback(t *testing.T) {
	changes := make(chan bool, 1)
	c, err := NewClient(unreachableURL, WithHealthChangeCallback(func(healthy bool) {
		changes <- healthy
	}))
	require.NoError(t, err)

	c.handleDisconnect(nil, nil)
	assert.Equal(t, StatusReconnecting, c.Status())
	select {
	case healthy := <-changes:
		assert.False(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("health callback not invoked")
	}

	c.handleReconnect(nil)
	assert.Equal(t, StatusConnected, c.Status())
	assert.Equal(t, int32(1), c.GetStatus().Reconnects)
	select {
	case healthy := <-changes:
		assert.True(t, healthy)
	case <-time.After(time.Second):
		t.Fatal("health callback not invoked")
	}
}
