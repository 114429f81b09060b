package wayfind

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/jward/wayfind/internal/extract"
	"github.com/jward/wayfind/internal/metrics"
	"github.com/jward/wayfind/internal/store"
	"github.com/jward/wayfind/internal/syntax"
)

// Engine orchestrates the wayfind pipeline: file discovery, change
// detection, symbol extraction and snapshot construction. Indexing methods
// must not be called concurrently; Analysis may be called from any
// goroutine.
type Engine struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Recorder

	excludePatterns []string
	exclude         []glob.Glob

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
	workers     int

	mu       sync.Mutex
	snapshot *Analysis // nil after any indexed change
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing and extraction, with a single writer
// committing batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the size of the parallel extraction pool. Zero means one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithExclude skips files whose path matches any of the glob patterns.
// Patterns use '/' as separator; `**` crosses directories.
func WithExclude(patterns ...string) Option {
	return func(e *Engine) {
		e.excludePatterns = append(e.excludePatterns, patterns...)
	}
}

// WithLogger sets the logger used for indexing and query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records query and indexing metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.metrics = r
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("wayfind: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("wayfind: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		logger:      slog.New(slog.DiscardHandler),
		useParallel: true, // default to parallel extraction
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, pattern := range e.excludePatterns {
		g, err := glob.Compile(filepath.ToSlash(pattern), '/')
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("wayfind: exclude pattern %q: %w", pattern, err)
		}
		e.exclude = append(e.exclude, g)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// invalidate drops the cached snapshot after the index changed.
func (e *Engine) invalidate() {
	e.mu.Lock()
	e.snapshot = nil
	e.mu.Unlock()
}

// excluded reports whether any candidate spelling of a path matches an
// exclude pattern.
func (e *Engine) excluded(paths ...string) bool {
	for _, p := range paths {
		p = filepath.ToSlash(p)
		for _, g := range e.exclude {
			if g.Match(p) {
				return true
			}
		}
	}
	return false
}

// AddSource indexes text as the content of path without reading the file
// system. Editors use it for unsaved buffers.
func (e *Engine) AddSource(ctx context.Context, path, text string) error {
	lang, ok := extract.LanguageForFile(path)
	if !ok {
		return fmt.Errorf("add source %s: unsupported language", path)
	}
	if err := e.indexContent(ctx, path, lang, []byte(text)); err != nil {
		return fmt.Errorf("add source %s: %w", path, err)
	}
	return nil
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent extraction with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Detect language from extension and apply exclude patterns
// 2. Skip unchanged files (same content hash)
// 3. Delete stale symbols, insert/update the file record with its content
// 4. Parse and extract declarations into the symbol index
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel && e.workers != 1 {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	lang, ok := extract.LanguageForFile(path)
	if !ok {
		return nil // unsupported extension
	}
	if e.excluded(path) {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return e.indexContent(ctx, path, lang, content)
}

func (e *Engine) indexContent(ctx context.Context, path, lang string, content []byte) error {
	f, changed, err := e.prepareRecord(path, lang, content)
	if err != nil {
		return err
	}
	if !changed {
		e.metrics.FileSkipped()
		return nil
	}

	tree, err := syntax.Parse(ctx, content)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	n, err := extract.Extract(tree, f.ID, e.store)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	e.metrics.FileIndexed()
	e.logger.Debug("indexed file", "path", path, "symbols", n)
	return nil
}

// prepareRecord writes the file record for content. It reports false when
// the stored hash already matches. A changed file keeps its ID; its old
// symbols are deleted.
func (e *Engine) prepareRecord(path, lang string, content []byte) (*store.File, bool, error) {
	hash := store.ContentHash(content)
	existing, err := e.store.FileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return existing, false, nil
	}

	f := &store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		Content:     string(content),
		LastIndexed: time.Now(),
	}
	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return nil, false, fmt.Errorf("delete old data: %w", err)
		}
		f.ID = existing.ID
		if err := e.store.UpdateFile(f); err != nil {
			return nil, false, err
		}
	} else if _, err := e.store.InsertFile(f); err != nil {
		return nil, false, err
	}
	e.invalidate()
	return f, true, nil
}

// skipDirs are directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory indexes all Rust files under root and removes files under
// root that no longer exist from the index. If root is inside a git
// repository, uses git ls-files to respect .gitignore. Falls back to a
// filesystem walk (skipping hidden dirs and target/) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking directory", "root", root, "err", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}

	kept := paths[:0]
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		if !e.excluded(rel) {
			kept = append(kept, p)
		}
	}
	if err := e.pruneMissing(root, kept); err != nil {
		return err
	}
	return e.IndexFiles(ctx, kept)
}

// pruneMissing deletes indexed files under root that are not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("list indexed files: %w", err)
	}
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	prefix := root + string(filepath.Separator)
	var stale []int64
	for _, f := range files {
		if strings.HasPrefix(f.Path, prefix) && !keep[f.Path] {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := e.store.DeleteFiles(stale); err != nil {
		return fmt.Errorf("prune stale files: %w", err)
	}
	e.logger.Debug("pruned stale files", "root", root, "count", len(stale))
	e.invalidate()
	return nil
}

// SyncFiles brings the index in line with the current state of paths on
// disk. Paths that exist are indexed; paths that no longer exist are removed
// from the index. File watchers report changes this way.
func (e *Engine) SyncFiles(ctx context.Context, paths []string) error {
	var present []string
	var gone []int64
	for _, p := range paths {
		_, err := os.Stat(p)
		if err == nil {
			present = append(present, p)
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("wayfind: stat %s: %w", p, err)
		}
		f, err := e.store.FileByPath(p)
		if err != nil {
			return fmt.Errorf("wayfind: lookup file: %w", err)
		}
		if f != nil {
			gone = append(gone, f.ID)
		}
	}
	if len(gone) > 0 {
		if err := e.store.DeleteFiles(gone); err != nil {
			return fmt.Errorf("wayfind: remove deleted files: %w", err)
		}
		e.logger.Debug("removed deleted files", "count", len(gone))
		e.invalidate()
	}
	if len(present) == 0 {
		return nil
	}
	return e.IndexFiles(ctx, present)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := extract.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available. Skips hidden directories and skipDirs.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := extract.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Analysis returns a snapshot over every indexed Rust file. The snapshot is
// reused until the index changes.
func (e *Engine) Analysis(ctx context.Context) (*Analysis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapshot != nil {
		return e.snapshot, nil
	}
	files, err := e.store.FilesByLanguage(extract.LanguageRust)
	if err != nil {
		return nil, fmt.Errorf("wayfind: load files: %w", err)
	}
	a, err := newAnalysis(ctx, files, e.store, e.logger, e.metrics)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("built analysis snapshot", "files", len(files))
	e.snapshot = a
	return a, nil
}
