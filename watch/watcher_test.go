package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/ingest"
)

type fakeIngester struct {
	mu    sync.Mutex
	errs  map[string][]error
	calls map[string]int
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{
		errs:  make(map[string][]error),
		calls: make(map[string]int),
	}
}

func (f *fakeIngester) Ingest(_ context.Context, filePath string, _ bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := filepath.Base(filePath)
	f.calls[name]++
	if q := f.errs[name]; len(q) > 0 {
		err := q[0]
		f.errs[name] = q[1:]
		return 0, err
	}
	return 1, nil
}

func (f *fakeIngester) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeIngester) failNext(name string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = append(f.errs[name], errs...)
}

func startWatcher(t *testing.T, dir string, ing Ingester) *Watcher {
	t.Helper()
	w := New(dir, 5*time.Millisecond, time.Millisecond, ing)
	w.Start(context.Background())
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherIngestsNewFiles(t *testing.T) {
	dir := t.TempDir()
	ing := newFakeIngester()
	startWatcher(t, dir, ing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hello"), 0o644))

	require.Eventually(t, func() bool {
		return ing.count("new.txt") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// stays ingested, no repeat runs
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, ing.count("new.txt"))
}

func TestWatcherIgnoresExistingFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("present"), 0o644))

	ing := newFakeIngester()
	startWatcher(t, dir, ing)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, ing.count("old.txt"), "startup corpus is not re-ingested")
}

func TestWatcherRetriesTransientErrors(t *testing.T) {
	dir := t.TempDir()
	ing := newFakeIngester()
	ing.failNext("flaky.txt", errors.New("store unavailable"))
	startWatcher(t, dir, ing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "flaky.txt"), []byte("data"), 0o644))

	require.Eventually(t, func() bool {
		return ing.count("flaky.txt") >= 2
	}, 2*time.Second, 5*time.Millisecond, "failed ingest is retried")
}

func TestWatcherGivesUpOnUnsupportedFormats(t *testing.T) {
	dir := t.TempDir()
	ing := newFakeIngester()
	ing.failNext("data.json",
		&ingest.UnsupportedFormatError{Path: "data.json", Ext: ".json"},
		&ingest.UnsupportedFormatError{Path: "data.json", Ext: ".json"},
	)
	startWatcher(t, dir, ing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0o644))

	require.Eventually(t, func() bool {
		return ing.count("data.json") == 1
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, ing.count("data.json"), "unsupported files are never retried")
}

func TestWatcherReingestsReplacedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	ing := newFakeIngester()
	startWatcher(t, dir, ing)

	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	require.Eventually(t, func() bool {
		return ing.count("doc.txt") == 1
	}, 2*time.Second, 5*time.Millisecond)

	// deletion clears the bookkeeping, so a new file under the same name
	// gets picked up again
	require.NoError(t, os.Remove(path))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	require.Eventually(t, func() bool {
		return ing.count("doc.txt") == 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWatcherStopReturnsPromptly(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, 5*time.Millisecond, time.Millisecond, newFakeIngester())
	w.Start(context.Background())

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
