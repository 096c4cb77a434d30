package hotreload

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loquaterrors "github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/metric"
	"github.com/Full-finger/Loquat-sub001/pkg/retry"
)

func fastRetry() retry.Config {
	cfg := loquaterrors.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg.ToRetryConfig()
}

func loadVersion(v string) LoadFunc {
	return func(context.Context) (*VersionData, error) {
		return NewVersionData(v, []byte(v)), nil
	}
}

func TestReloader_RecordsPreviousVersion(t *testing.T) {
	r := NewReloader(NewHistory(10), WithRetry(fastRetry()))
	ctx := context.Background()

	first, err := r.Reload(ctx, "echo", "", loadVersion("1"))
	require.NoError(t, err)
	assert.True(t, first.Success)
	assert.Nil(t, first.PreviousData)

	second, err := r.Reload(ctx, "echo", "", loadVersion("2"))
	require.NoError(t, err)
	require.NotNil(t, second.PreviousData)
	assert.Equal(t, "1", second.PreviousData.Version)

	current, ok := r.Current("echo")
	require.True(t, ok)
	assert.Equal(t, "2", current.Version)

	rolled, err := r.Rollback("echo")
	require.NoError(t, err)
	assert.Equal(t, "1", rolled.Version)
	current, _ = r.Current("echo")
	assert.Equal(t, "1", current.Version)
}

func TestReloader_RetriesTransient(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	r := NewReloader(NewHistory(10), WithRetry(fastRetry()), WithMetrics(registry))

	attempts := 0
	entry, err := r.Reload(context.Background(), "flaky", "", func(context.Context) (*VersionData, error) {
		attempts++
		if attempts < 3 {
			return nil, loquaterrors.IO(fs.ErrClosed, "test", "load", "read plugin")
		}
		return NewVersionData("ok", nil), nil
	})

	require.NoError(t, err)
	assert.True(t, entry.Success)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().HotReloads.WithLabelValues("success")))
}

func TestReloader_DoesNotRetryInvalid(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	r := NewReloader(NewHistory(10), WithRetry(fastRetry()), WithMetrics(registry))

	attempts := 0
	entry, err := r.Reload(context.Background(), "broken", "", func(context.Context) (*VersionData, error) {
		attempts++
		return nil, loquaterrors.Parse(errors.New("bad yaml"), "test", "load", "decode")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, loquaterrors.KindParse, loquaterrors.KindOf(err))
	assert.False(t, entry.Success)
	require.NotNil(t, entry.Error)
	assert.Contains(t, *entry.Error, "bad yaml")
	assert.False(t, r.History().WasLastSuccess("broken"))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().HotReloads.WithLabelValues("failure")))

	_, ok := r.Current("broken")
	assert.False(t, ok)
}

func TestReloader_NilVersion(t *testing.T) {
	r := NewReloader(NewHistory(10), WithRetry(fastRetry()))
	_, err := r.Reload(context.Background(), "nil", "", func(context.Context) (*VersionData, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, loquaterrors.ErrMissingRequired)
}

func TestReloader_RollbackWithoutHistory(t *testing.T) {
	r := NewReloader(NewHistory(10))
	_, err := r.Rollback("none")
	assert.ErrorIs(t, err, loquaterrors.ErrMissingRequired)
}

func TestReloader_ReloadIfChanged(t *testing.T) {
	path := writeFile(t, t.TempDir(), "echo.yaml", "v1")
	r := NewReloader(NewHistory(10), WithRetry(fastRetry()), WithDetector(NewDetector(8)))
	ctx := context.Background()

	load := func(context.Context) (*VersionData, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, loquaterrors.IO(err, "test", "load", "read")
		}
		return NewVersionData(string(data), data), nil
	}

	_, reloaded, err := r.ReloadIfChanged(ctx, "echo", path, load)
	require.NoError(t, err)
	assert.True(t, reloaded)

	_, reloaded, err = r.ReloadIfChanged(ctx, "echo", path, load)
	require.NoError(t, err)
	assert.False(t, reloaded)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	entry, reloaded, err := r.ReloadIfChanged(ctx, "echo", path, load)
	require.NoError(t, err)
	assert.True(t, reloaded)
	require.NotNil(t, entry.PreviousData)
	assert.Equal(t, "v1", entry.PreviousData.Version)
	assert.Len(t, r.History().History("echo"), 2)
}

func TestReloader_ReloadIfChangedWithoutDetector(t *testing.T) {
	r := NewReloader(NewHistory(10))
	_, _, err := r.ReloadIfChanged(context.Background(), "x", "x", loadVersion("1"))
	assert.ErrorIs(t, err, loquaterrors.ErrMissingRequired)
}
