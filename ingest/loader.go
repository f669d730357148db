package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docqa/types"
)

// supportedExtensions lists the file suffixes the loader understands, in the
// order directory loads visit them. Keeping the order fixed keeps chunk ids
// stable across identical re-ingestions.
var supportedExtensions = []string{".txt", ".md", ".pdf", ".docx"}

// UnsupportedFormatError reports a file whose suffix no loader understands.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s (supported: %s)",
		e.Ext, e.Path, strings.Join(supportedExtensions, ", "))
}

// Loader turns files under a documents directory into whole-file documents
// tagged with their origin path.
type Loader struct {
	dir    string
	logger *slog.Logger
}

func NewLoader(dir string) *Loader {
	return &Loader{
		dir:    dir,
		logger: slog.Default().With("component", "loader"),
	}
}

// LoadDocument loads a single file. Paged formats produce one document per
// page, everything else a single document. An unrecognized suffix returns
// *UnsupportedFormatError.
func (l *Loader) LoadDocument(path string) ([]types.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var docs []types.Document
	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = []types.Document{types.NewDocument(string(content), map[string]any{
			types.MetaSource: path,
		})}
	case ".pdf":
		pages, err := extractPDFPages(path)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s: %w", path, err)
		}
		docs = make([]types.Document, 0, len(pages))
		for i, page := range pages {
			docs = append(docs, types.NewDocument(page, map[string]any{
				types.MetaSource: path,
				types.MetaPage:   i,
			}))
		}
	case ".docx":
		content, err := extractDocxText(path)
		if err != nil {
			return nil, fmt.Errorf("extract docx %s: %w", path, err)
		}
		docs = []types.Document{types.NewDocument(content, map[string]any{
			types.MetaSource: path,
		})}
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}

	l.logger.Info("loaded document", "path", path, "documents", len(docs))
	return docs, nil
}

// LoadDirectory loads every supported file under the documents directory,
// grouped by extension and sorted by path within each group. Files that fail
// to load are skipped with a warning so one bad file never sinks the batch.
func (l *Loader) LoadDirectory() ([]types.Document, error) {
	var all []types.Document
	for _, ext := range supportedExtensions {
		paths, err := l.findFiles(ext)
		if err != nil {
			return nil, fmt.Errorf("scan %s for %s files: %w", l.dir, ext, err)
		}
		for _, path := range paths {
			docs, err := l.LoadDocument(path)
			if err != nil {
				l.logger.Warn("skipping file", "path", path, "error", err)
				continue
			}
			all = append(all, docs...)
		}
	}
	l.logger.Info("loaded directory", "dir", l.dir, "documents", len(all))
	return all, nil
}

// FileCount reports how many supported files live under the directory.
func (l *Loader) FileCount() int {
	count := 0
	for _, ext := range supportedExtensions {
		paths, err := l.findFiles(ext)
		if err != nil {
			l.logger.Warn("cannot count files", "ext", ext, "error", err)
			continue
		}
		count += len(paths)
	}
	return count
}

// findFiles walks the directory tree collecting files with the given suffix.
// filepath.WalkDir visits entries in lexical order, which keeps results
// deterministic.
func (l *Loader) findFiles(ext string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) == ext {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
