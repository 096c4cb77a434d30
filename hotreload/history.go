package hotreload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxEntries bounds per-item history when no limit is configured.
const DefaultMaxEntries = 10

// VersionData is a loaded version of a reloadable item, kept so a later
// reload can be rolled back.
type VersionData struct {
	Version  string    `json:"version"`
	Hash     string    `json:"hash"`
	Data     []byte    `json:"data,omitempty"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewVersionData stamps data with its sha256 hash and the current time.
func NewVersionData(version string, data []byte) *VersionData {
	return &VersionData{
		Version:  version,
		Hash:     hashBytes(data),
		Data:     slices.Clone(data),
		LoadedAt: time.Now(),
	}
}

// Entry records one reload attempt.
type Entry struct {
	ID           string       `json:"id"`
	Path         string       `json:"path"`
	Timestamp    time.Time    `json:"timestamp"`
	ModifiedTime time.Time    `json:"modified_time"`
	Hash         *string      `json:"hash,omitempty"`
	Success      bool         `json:"success"`
	Error        *string      `json:"error,omitempty"`
	PreviousData *VersionData `json:"previous_data,omitempty"`
}

// Stats summarizes a History.
type Stats struct {
	TotalItems        int `json:"total_items"`
	TotalEntries      int `json:"total_entries"`
	SuccessfulEntries int `json:"successful_entries"`
	FailedEntries     int `json:"failed_entries"`
}

var entrySeq atomic.Uint64

// History is a bounded per-item log of reload attempts. It is safe for
// concurrent use.
type History struct {
	mu         sync.RWMutex
	entries    map[string][]Entry
	maxEntries int
}

// NewHistory creates a History keeping at most maxEntries per item.
// Non-positive values select DefaultMaxEntries.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History{
		entries:    make(map[string][]Entry),
		maxEntries: maxEntries,
	}
}

// MaxEntries returns the per-item bound.
func (h *History) MaxEntries() int {
	return h.maxEntries
}

// RecordReload appends an attempt for name. The entry carries the file's
// modification time (now if the file cannot be read) and, when readable,
// the sha256 of its content. The oldest entries beyond MaxEntries are
// discarded.
func (h *History) RecordReload(name, path string, success bool, errMsg *string, previous *VersionData) Entry {
	now := time.Now()
	entry := Entry{
		ID:           fmt.Sprintf("%s-%d-%d", name, now.UnixNano(), entrySeq.Add(1)),
		Path:         path,
		Timestamp:    now,
		ModifiedTime: now,
		Success:      success,
		Error:        errMsg,
		PreviousData: previous,
	}
	if info, err := os.Stat(path); err == nil {
		entry.ModifiedTime = info.ModTime()
	}
	if data, err := os.ReadFile(path); err == nil {
		sum := hashBytes(data)
		entry.Hash = &sum
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.entries[name], entry)
	if over := len(list) - h.maxEntries; over > 0 {
		list = slices.Delete(list, 0, over)
	}
	h.entries[name] = list
	return entry
}

// Last returns the most recent entry for name.
func (h *History) Last(name string) (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	list := h.entries[name]
	if len(list) == 0 {
		return Entry{}, false
	}
	return list[len(list)-1], true
}

// LastSuccess returns the most recent successful entry for name.
func (h *History) LastSuccess(name string) (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastSuccess(name)
}

func (h *History) lastSuccess(name string) (Entry, bool) {
	list := h.entries[name]
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Success {
			return list[i], true
		}
	}
	return Entry{}, false
}

// History returns a copy of name's entries, oldest first.
func (h *History) History(name string) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entries[name])
}

// WasLastSuccess reports whether the latest attempt for name succeeded.
// An item with no history counts as successful.
func (h *History) WasLastSuccess(name string) bool {
	last, ok := h.Last(name)
	return !ok || last.Success
}

// RollbackData returns the previous version recorded by the latest
// successful reload of name.
func (h *History) RollbackData(name string) (*VersionData, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entry, ok := h.lastSuccess(name)
	if !ok || entry.PreviousData == nil {
		return nil, false
	}
	return entry.PreviousData, true
}

// Clear drops name's history.
func (h *History) Clear(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, name)
}

// ClearAll drops every item's history.
func (h *History) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.entries)
}

// Names returns the items with recorded history, sorted.
func (h *History) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stats counts items and entries.
func (h *History) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := Stats{TotalItems: len(h.entries)}
	for _, list := range h.entries {
		stats.TotalEntries += len(list)
		for _, e := range list {
			if e.Success {
				stats.SuccessfulEntries++
			} else {
				stats.FailedEntries++
			}
		}
	}
	return stats
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
