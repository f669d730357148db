package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"docqa/ingest"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultSettle   = 10 * time.Second
)

// Ingester pulls a settled file into the store.
type Ingester interface {
	Ingest(ctx context.Context, filePath string, reset bool) (int, error)
}

// Watcher polls the documents directory and ingests new files once they have
// sat unchanged for the settle window, so half-copied files are not picked
// up. Files already present at startup are assumed ingested.
type Watcher struct {
	dir      string
	interval time.Duration
	settle   time.Duration
	ingester Ingester
	logger   *slog.Logger

	mu         sync.Mutex
	firstSeen  map[string]time.Time
	processing map[string]bool
	done       map[string]bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(dir string, interval, settle time.Duration, ing Ingester) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:        dir,
		interval:   interval,
		settle:     settle,
		ingester:   ing,
		logger:     slog.Default().With("component", "watcher"),
		firstSeen:  make(map[string]time.Time),
		processing: make(map[string]bool),
		done:       make(map[string]bool),
	}
}

func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	// The standing corpus is ingested explicitly; only react to arrivals.
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() {
				w.done[e.Name()] = true
			}
		}
	}

	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("watching documents directory", "dir", w.dir, "interval", w.interval, "settle", w.settle)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("read documents directory", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	current := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		current[name] = true
		if w.done[name] || w.processing[name] {
			continue
		}
		seen, ok := w.firstSeen[name]
		if !ok {
			w.firstSeen[name] = time.Now()
			w.logger.Info("new file detected", "file", name)
			continue
		}
		if time.Since(seen) < w.settle {
			continue
		}
		delete(w.firstSeen, name)
		w.processing[name] = true
		w.wg.Add(1)
		go w.ingestFile(ctx, name)
	}

	// Forget files that disappeared.
	for name := range w.firstSeen {
		if !current[name] {
			delete(w.firstSeen, name)
		}
	}
	for name := range w.done {
		if !current[name] {
			delete(w.done, name)
		}
	}
}

func (w *Watcher) ingestFile(ctx context.Context, name string) {
	defer w.wg.Done()
	path := filepath.Join(w.dir, name)
	chunks, err := w.ingester.Ingest(ctx, path, false)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.processing, name)

	if err != nil {
		var formatErr *ingest.UnsupportedFormatError
		if errors.As(err, &formatErr) {
			// The file can never succeed, stop retrying it.
			w.done[name] = true
			w.logger.Warn("skipping unsupported file", "file", name)
			return
		}
		w.logger.Error("auto-ingest failed, will retry", "file", name, "error", err)
		return
	}

	w.done[name] = true
	w.logger.Info("auto-ingest complete", "file", name, "chunks", chunks)
}

// Stop cancels the scan loop and waits for in-flight ingests, giving up
// after five seconds.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		w.logger.Info("watcher stopped")
	case <-time.After(5 * time.Second):
		w.logger.Warn("watcher stop timed out")
	}
}
