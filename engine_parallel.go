package wayfind

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/jward/wayfind/internal/extract"
	"github.com/jward/wayfind/internal/store"
	"github.com/jward/wayfind/internal/syntax"
)

// workItem holds everything a parallel extraction worker needs.
type workItem struct {
	path    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):  Hash check, delete old symbols, write file records.
//	Phase B (parallel): Parse and extract via worker pool into BatchedStores.
//	Phase C (serial):  Commit batches to SQLite.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(min(numWorkers, len(items)), 1)

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item    workItem
		symbols int
		err     error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each item parses its own tree; the BatchedStore per item
			// handles write isolation.
			for item := range workCh {
				n, err := extractFile(ctx, item)
				resultCh <- result{item: item, symbols: n, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		e.metrics.FileIndexed()
		e.logger.Debug("indexed file", "path", res.item.path, "symbols", res.symbols)
	}

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: hash check, cleanup, file
// record. Returns (item, skip, error). skip=true means the file is
// unchanged, excluded or unsupported.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	lang, ok := extract.LanguageForFile(path)
	if !ok || e.excluded(path) {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	f, changed, err := e.prepareRecord(path, lang, content)
	if err != nil {
		return workItem{}, false, err
	}
	if !changed {
		e.metrics.FileSkipped()
		return workItem{}, true, nil
	}

	return workItem{
		path:    path,
		fileID:  f.ID,
		content: content,
		batch:   store.NewBatchedStore(),
	}, false, nil
}

// extractFile parses one file and buffers its symbols in the item's batch.
func extractFile(ctx context.Context, item workItem) (int, error) {
	tree, err := syntax.Parse(ctx, item.content)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	return extract.Extract(tree, item.fileID, item.batch)
}
