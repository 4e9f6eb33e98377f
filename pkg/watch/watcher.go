// Package watch monitors a drop directory for extract files and submits
// them to the ingestion pipeline. Operators (or a scheduled export job)
// copy files named {type}_{YYYYMMDD}.xlsx into the directory; processed
// files are moved aside so a restart does not resubmit them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/colisflow/colisflow/internal/model"
)

const (
	doneDir   = "processed"
	failedDir = "failed"
)

// Submitter accepts drop-directory submissions; the orchestrator
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) error
}

// SubmitterFunc adapts a plain function to the Submitter interface. The
// orchestrator's Submit returns a receipt alongside the error, so callers
// wrap it here.
type SubmitterFunc func(ctx context.Context, sub model.Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub model.Submission) error {
	return f(ctx, sub)
}

// Watcher watches one drop directory.
type Watcher struct {
	dir       string
	site      string
	submitter Submitter
	log       *slog.Logger
	debounce  time.Duration

	mu         sync.Mutex
	processing map[string]bool
}

// NewWatcher creates a watcher over dir. The directory must exist.
func NewWatcher(dir, site string, submitter Submitter, log *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	stat, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat drop directory: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		dir:        abs,
		site:       site,
		submitter:  submitter,
		log:        log,
		debounce:   time.Second,
		processing: make(map[string]bool),
	}, nil
}

// ParseDropName extracts the type and date from a drop filename of the
// form {slug}_{YYYYMMDD}.xlsx.
func ParseDropName(name string) (model.DataType, time.Time, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return "", time.Time{}, fmt.Errorf("no date suffix in %q", name)
	}
	t, ok := model.TypeFromSlug(base[:idx])
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown extract type in %q", name)
	}
	date, err := time.Parse("20060102", base[idx+1:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("bad date suffix in %q: %w", name, err)
	}
	return t, date, nil
}

// Run processes files already present, then watches for new ones. Blocks
// until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	w.sweep(ctx)

	debounceTimers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := event.Name
			if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
				continue
			}

			// Exports are written incrementally; wait for writes to
			// settle before reading.
			timerMu.Lock()
			if timer, exists := debounceTimers[path]; exists {
				timer.Stop()
			}
			debounceTimers[path] = time.AfterFunc(w.debounce, func() {
				w.process(ctx, path)
			})
			timerMu.Unlock()

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "dir", w.dir, "error", err)
		}
	}
}

// sweep submits files that were dropped while the watcher was down.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Error("failed to list drop directory", "dir", w.dir, "error", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xlsx") {
			continue
		}
		w.process(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	if w.processing[path] {
		w.mu.Unlock()
		return
	}
	w.processing[path] = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.processing, path)
		w.mu.Unlock()
	}()

	name := filepath.Base(path)
	t, date, err := ParseDropName(name)
	if err != nil {
		w.log.Warn("ignoring unrecognized drop file", "file", name, "error", err)
		w.moveTo(path, failedDir)
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		w.log.Error("failed to read drop file", "file", name, "error", err)
		return
	}

	err = w.submitter.Submit(ctx, model.Submission{
		Type:          t,
		Site:          w.site,
		ReportingDate: date,
		Content:       content,
	})
	if err != nil {
		w.log.Error("drop submission failed", "file", name, "type", string(t), "error", err)
		w.moveTo(path, failedDir)
		return
	}

	w.log.Info("drop file ingested", "file", name, "type", string(t),
		"date", date.Format("2006-01-02"))
	w.moveTo(path, doneDir)
}

func (w *Watcher) moveTo(path, sub string) {
	dest := filepath.Join(w.dir, sub)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		w.log.Error("failed to create directory", "dir", dest, "error", err)
		return
	}
	if err := os.Rename(path, filepath.Join(dest, filepath.Base(path))); err != nil {
		w.log.Error("failed to move drop file", "file", path, "error", err)
	}
}
