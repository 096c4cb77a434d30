// Package hotreload keeps an auditable, bounded history of plugin and
// adapter reloads and supports rolling back to the version a reload
// replaced.
//
// History stores at most MaxEntries attempts per item, each stamped with
// the wall-clock time, the file's modification time and the sha256 of its
// content. Entry IDs have the form "<name>-<unix nanos>-<sequence>", where
// the sequence is a process-wide counter, so two reloads of the same item
// in the same nanosecond still get distinct IDs.
//
// Detector fingerprints files in an LRU cache to decide whether a reload is
// needed. Reloader ties the pieces together:
//
//	r := hotreload.NewReloader(hotreload.NewHistory(10),
//	    hotreload.WithDetector(hotreload.NewDetector(128)))
//	entry, reloaded, err := r.ReloadIfChanged(ctx, "echo", path, load)
//
// Watcher drives ReloadIfChanged from file system events (fsnotify) with a
// short debounce, so a burst of writes produces a single reload.
//
// Loads are retried on transient failures only; configuration and parse
// errors fail on the first attempt.
package hotreload
