package wayfind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jward/wayfind/internal/hir"
	"github.com/jward/wayfind/internal/metrics"
	"github.com/jward/wayfind/internal/store"
)

// ErrUnknownFile is returned for positions in files the snapshot does not
// contain.
var ErrUnknownFile = errors.New("wayfind: unknown file")

// ErrInvalidRange is returned for ranges whose end precedes their start.
var ErrInvalidRange = errors.New("wayfind: invalid range")

// FilePosition is a byte offset in a file.
type FilePosition struct {
	FileID FileID `json:"file_id"`
	Offset uint32 `json:"offset"`
}

// FileRange is a byte range in a file.
type FileRange struct {
	FileID FileID    `json:"file_id"`
	Range  TextRange `json:"range"`
}

// RangeInfo pairs a query answer with the source range it is about.
type RangeInfo[T any] struct {
	Range TextRange `json:"range"`
	Info  T         `json:"info"`
}

// Analysis is an immutable snapshot of the indexed sources. Queries are
// serialized because tree-sitter trees are not safe for concurrent use.
type Analysis struct {
	db         *hir.Database
	index      symbolIndex
	storeFiles map[int64]snapshotFile // keyed by store file ID
	lookups    *cache.Cache     // name -> []indexedSymbol

	logger  *slog.Logger
	metrics *metrics.Recorder

	mu sync.Mutex
}

// snapshotFile is an indexed file as the snapshot saw it.
type snapshotFile struct {
	id   FileID
	hash string
}

func newAnalysis(ctx context.Context, files []*store.File, index symbolIndex, logger *slog.Logger, m *metrics.Recorder) (*Analysis, error) {
	sources := make([]hir.Source, 0, len(files))
	storeFiles := make(map[int64]snapshotFile, len(files))
	for i, f := range files {
		sources = append(sources, hir.Source{Path: f.Path, Text: f.Content})
		storeFiles[f.ID] = snapshotFile{id: FileID(i + 1), hash: f.Hash}
	}
	db, err := hir.New(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("wayfind: build snapshot: %w", err)
	}
	return &Analysis{
		db:         db,
		index:      index,
		storeFiles: storeFiles,
		lookups:    newLookupCache(),
		logger:     logger,
		metrics:    m,
	}, nil
}

// FileID returns the ID of the file at path in this snapshot.
func (a *Analysis) FileID(path string) (FileID, bool) {
	f := a.db.FileByPath(path)
	if f == nil {
		return 0, false
	}
	return f.ID, true
}

// Path returns the path of a file, or "".
func (a *Analysis) Path(id FileID) string {
	if f := a.db.File(id); f != nil {
		return f.Path
	}
	return ""
}

// Text returns the source text of a file, or "".
func (a *Analysis) Text(id FileID) string {
	if f := a.db.File(id); f != nil {
		return string(f.Tree.Source)
	}
	return ""
}

func (a *Analysis) file(id FileID) (*hir.File, error) {
	f := a.db.File(id)
	if f == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFile, id)
	}
	return f, nil
}

// GotoDefinition returns the definitions of the name at pos. The result is
// nil when the cursor is on neither a name usage nor a declared name. A
// usage always yields a result, possibly with no targets.
func (a *Analysis) GotoDefinition(ctx context.Context, pos FilePosition) (*RangeInfo[[]NavigationTarget], error) {
	start := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.file(pos.FileID)
	if err != nil {
		return nil, err
	}
	info, exact, err := a.gotoDefinition(ctx, f, pos.Offset)
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeNone
	switch {
	case info == nil || len(info.Info) == 0:
	case exact:
		outcome = metrics.OutcomeExact
	default:
		outcome = metrics.OutcomeApproximate
	}
	a.metrics.ObserveQuery("goto_definition", outcome, time.Since(start))
	a.logger.Debug("goto definition", "path", f.Path, "offset", pos.Offset, "outcome", outcome)
	return info, nil
}

// Hover returns descriptive text for the entity at pos, or nil when there
// is nothing to show.
func (a *Analysis) Hover(ctx context.Context, pos FilePosition) (*RangeInfo[HoverResult], error) {
	start := time.Now()
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.file(pos.FileID)
	if err != nil {
		return nil, err
	}
	info, err := a.hover(ctx, f, pos.Offset)
	if err != nil {
		return nil, err
	}

	outcome := metrics.OutcomeNone
	switch {
	case info == nil:
	case info.Info.typeOnly:
		outcome = metrics.OutcomeType
	case info.Info.IsExact():
		outcome = metrics.OutcomeExact
	default:
		outcome = metrics.OutcomeApproximate
	}
	a.metrics.ObserveQuery("hover", outcome, time.Since(start))
	a.logger.Debug("hover", "path", f.Path, "offset", pos.Offset, "outcome", outcome)
	return info, nil
}

// TypeOf returns the display text of the inferred type of the expression or
// pattern covering r. It reports false when there is none.
func (a *Analysis) TypeOf(ctx context.Context, r FileRange) (string, bool, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if r.Range.Start > r.Range.End {
		return "", false, fmt.Errorf("%w: [%d; %d)", ErrInvalidRange, r.Range.Start, r.Range.End)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := a.file(r.FileID)
	if err != nil {
		return "", false, err
	}
	ty, ok := a.typeOf(f, r.Range)

	outcome := metrics.OutcomeNone
	if ok {
		outcome = metrics.OutcomeType
	}
	a.metrics.ObserveQuery("type_of", outcome, time.Since(start))
	return ty, ok, nil
}
