package hotreload

import (
	"os"
	"sync"
	"time"

	"github.com/Full-finger/Loquat-sub001/errors"
	"github.com/Full-finger/Loquat-sub001/pkg/cache"
)

type fingerprint struct {
	modTime time.Time
	size    int64
	hash    string
}

// Detector tells whether a file changed since it was last inspected. Known
// fingerprints live in an LRU cache, so at most capacity files are tracked;
// a file evicted from the cache is reported as changed when seen again.
type Detector struct {
	mu    sync.Mutex
	known *cache.LRU[string, fingerprint]
}

// NewDetector creates a Detector tracking up to capacity files. Capacity
// must be at least 1.
func NewDetector(capacity int) *Detector {
	return &Detector{known: cache.NewLRU[string, fingerprint](capacity)}
}

// Changed reports whether path differs from its last recorded fingerprint.
// A path seen for the first time is changed. Unchanged size and mod time
// short-circuit; otherwise the content hash decides.
func (d *Detector) Changed(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, errors.IO(err, "Detector", "Changed", "stat "+path)
	}

	d.mu.Lock()
	prev, seen := d.known.Get(path)
	d.mu.Unlock()

	if seen && prev.modTime.Equal(info.ModTime()) && prev.size == info.Size() {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.IO(err, "Detector", "Changed", "read "+path)
	}
	next := fingerprint{modTime: info.ModTime(), size: info.Size(), hash: hashBytes(data)}

	d.mu.Lock()
	d.known.Insert(path, next)
	d.mu.Unlock()

	return !seen || prev.hash != next.hash, nil
}

// Forget drops path's fingerprint.
func (d *Detector) Forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.known.Remove(path)
}

// Tracked returns the number of fingerprints held.
func (d *Detector) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.known.Len()
}

// Resize changes the number of tracked files and returns how many
// fingerprints were evicted.
func (d *Detector) Resize(capacity int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.known.SetCapacity(capacity)
}

// CacheStats returns the fingerprint cache statistics.
func (d *Detector) CacheStats() cache.StatsSummary {
	return d.known.Stats().Summary()
}
