package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Holidays is an immutable snapshot of institution-wide non-study dates.
type Holidays struct {
	dates map[Date]struct{}
}

// NewHolidays builds a snapshot from the given dates. Invalid entries are dropped.
func NewHolidays(dates []Date) *Holidays {
	set := make(map[Date]struct{}, len(dates))
	for _, d := range dates {
		if d.Valid() {
			set[d] = struct{}{}
		}
	}
	return &Holidays{dates: set}
}

// Contains reports whether the date is a configured holiday.
func (h *Holidays) Contains(d Date) bool {
	if h == nil {
		return false
	}
	_, ok := h.dates[d]
	return ok
}

// Len returns the number of configured holiday dates.
func (h *Holidays) Len() int {
	if h == nil {
		return 0
	}
	return len(h.dates)
}

// HolidayFile loads the holiday calendar from a JSON file (an array of
// YYYY-MM-DD strings) and serves an atomically swapped snapshot. A running
// batch keeps whatever snapshot it obtained; reloads only affect later reads.
type HolidayFile struct {
	path    string
	logger  *slog.Logger
	current atomic.Pointer[Holidays]
}

// NewHolidayFile constructs a holiday source backed by the given file. An
// empty path yields an empty, never-reloading calendar.
func NewHolidayFile(path string, logger *slog.Logger) *HolidayFile {
	if logger == nil {
		logger = slog.Default()
	}
	f := &HolidayFile{path: path, logger: logger}
	f.current.Store(NewHolidays(nil))
	return f
}

// Snapshot returns the current holiday set.
func (f *HolidayFile) Snapshot() *Holidays {
	if f == nil {
		return nil
	}
	return f.current.Load()
}

// Load reads and parses the file, swapping in a new snapshot on success.
func (f *HolidayFile) Load() error {
	if f.path == "" {
		return nil
	}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("calendar: read holiday file: %w", err)
	}
	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("calendar: parse holiday file: %w", err)
	}
	dates := make([]Date, 0, len(entries))
	for _, entry := range entries {
		d, err := ParseDate(entry)
		if err != nil {
			f.logger.Warn("skipping malformed holiday entry", "entry", entry)
			continue
		}
		dates = append(dates, d)
	}
	f.current.Store(NewHolidays(dates))
	return nil
}

// Watch reloads the holiday file whenever it changes, until the context is
// cancelled. A failed reload keeps the previous snapshot.
func (f *HolidayFile) Watch(ctx context.Context) error {
	if f.path == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("calendar: create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("calendar: watch holiday file: %w", err)
	}

	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := f.Load(); err != nil {
				f.logger.Error("holiday reload failed, keeping previous calendar", "error", err)
				continue
			}
			f.logger.Info("holiday calendar reloaded", "dates", f.Snapshot().Len())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Error("holiday watcher error", "error", err)
		}
	}
}
