package hotreload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Full-finger/Loquat-sub001/errors"
)

func TestDetector_Changed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "plugin.yaml", "v: 1")
	d := NewDetector(4)

	changed, err := d.Changed(path)
	require.NoError(t, err)
	assert.True(t, changed, "first sight is a change")

	changed, err = d.Changed(path)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, os.WriteFile(path, []byte("v: 2"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	changed, err = d.Changed(path)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestDetector_TouchWithoutContentChange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plugin.yaml", "same")
	d := NewDetector(4)

	_, err := d.Changed(path)
	require.NoError(t, err)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	changed, err := d.Changed(path)
	require.NoError(t, err)
	assert.False(t, changed, "hash is unchanged")
}

func TestDetector_MissingFile(t *testing.T) {
	d := NewDetector(1)
	_, err := d.Changed(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}

func TestDetector_EvictionAndForget(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a", "a")
	b := writeFile(t, dir, "b", "b")
	d := NewDetector(1)

	_, _ = d.Changed(a)
	_, _ = d.Changed(b)
	assert.Equal(t, 1, d.Tracked())

	changed, err := d.Changed(a)
	require.NoError(t, err)
	assert.True(t, changed, "evicted fingerprints are forgotten")

	d.Forget(a)
	assert.Equal(t, 0, d.Tracked())

	assert.Panics(t, func() { NewDetector(0) })
}

func TestDetector_Resize(t *testing.T) {
	dir := t.TempDir()
	d := NewDetector(3)
	for _, name := range []string{"a", "b", "c"} {
		_, err := d.Changed(writeFile(t, dir, name, name))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, d.Resize(1))
	assert.Equal(t, 1, d.Tracked())
	assert.Equal(t, int64(3), d.CacheStats().Inserts)
}
