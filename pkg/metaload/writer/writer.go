// Package writer persists selected names as canonical entities in small,
// independently committed batches.
package writer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/internalerr"
	"github.com/cognicore/metaload/pkg/metaload/store"
)

// Defaults applied by New for zero-valued options.
const (
	DefaultBatchSize     = 50
	DefaultDelay         = 10 * time.Millisecond
	DefaultProgressEvery = 20
)

// Options controls batching for one category.
type Options struct {
	Category      string
	BatchSize     int
	Delay         time.Duration
	MaxNameLength int
	// Retries is how many extra attempts a rolled-back batch gets.
	Retries int
	// ContinueOnError keeps writing later batches after one fails.
	ContinueOnError bool
	// ProgressEvery logs progress after this many batches.
	ProgressEvery int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	// A negative delay disables the pause; zero takes the default.
	switch {
	case o.Delay == 0:
		o.Delay = DefaultDelay
	case o.Delay < 0:
		o.Delay = 0
	}
	if o.MaxNameLength <= 0 {
		o.MaxNameLength = store.DefaultMaxNameLength
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = DefaultProgressEvery
	}
	return o
}

// Result summarizes a Write call.
type Result struct {
	AlreadyImported bool
	Existing        int64

	Total     int // pairs handed to Write
	Skipped   int // pairs without a usable name
	Processed int // pairs in committed batches
	Persisted int // rows actually written
	Truncated int // committed names that were shortened

	Batches       int
	Committed     int
	FailedBatches int
}

// BatchError reports a batch whose transaction was rolled back.
type BatchError struct {
	Index    int // zero-based
	FirstCUI string
	LastCUI  string
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%s..%s) failed after %d attempt(s): %v", e.Index+1, e.FirstCUI, e.LastCUI, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() []error {
	return []error{internalerr.ErrBatchFailed, e.Err}
}

// Writer commits (CUI, name) pairs for one category.
type Writer struct {
	store   store.Store
	opts    Options
	log     *zap.Logger
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New returns a Writer for st. Zero options take the package defaults.
func New(st store.Store, opts Options, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		store:   st,
		opts:    opts.withDefaults(),
		log:     log.With(zap.String("category", opts.Category)),
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Options returns the effective options.
func (w *Writer) Options() Options {
	return w.opts
}

// AlreadyImported reports whether the category holds any entity yet.
func (w *Writer) AlreadyImported(ctx context.Context) (bool, int64, error) {
	n, err := w.store.CountEntities(ctx, w.opts.Category)
	if err != nil {
		return false, 0, fmt.Errorf("%w: count %s: %v", internalerr.ErrStoreUnavailable, w.opts.Category, err)
	}
	return n > 0, n, nil
}

type pending struct {
	entity    store.Entity
	truncated bool
}

// Write persists names, keyed by CUI. A non-empty category is left as is.
// Batches are committed in CUI order; a failed batch is rolled back in full
// while earlier batches stay committed.
func (w *Writer) Write(ctx context.Context, names map[string]string) (Result, error) {
	res := Result{Total: len(names)}

	done, existing, err := w.AlreadyImported(ctx)
	if err != nil {
		return res, err
	}
	if done {
		w.log.Info("category already imported, skipping", zap.Int64("existing", existing))
		res.AlreadyImported = true
		res.Existing = existing
		return res, nil
	}

	cuis := make([]string, 0, len(names))
	for cui, name := range names {
		if strings.TrimSpace(cui) == "" || strings.TrimSpace(name) == "" {
			res.Skipped++
			continue
		}
		cuis = append(cuis, cui)
	}
	sort.Strings(cuis)

	size := w.opts.BatchSize
	res.Batches = (len(cuis) + size - 1) / size

	var failures []error
	for i := 0; i < res.Batches; i++ {
		if i > 0 {
			if err := pause(ctx, w.opts.Delay); err != nil {
				w.log.Warn("import interrupted between batches",
					zap.Int("committed_batches", res.Committed),
					zap.Int("remaining_batches", res.Batches-i),
				)
				return res, errors.Join(append(failures, err)...)
			}
		}

		end := min((i+1)*size, len(cuis))
		batch := w.build(cuis[i*size:end], names)

		inserted, attempts, err := w.commitWithRetry(ctx, batch)
		if err != nil {
			res.FailedBatches++
			berr := &BatchError{
				Index:    i,
				FirstCUI: batch[0].entity.CUI,
				LastCUI:  batch[len(batch)-1].entity.CUI,
				Attempts: attempts,
				Err:      err,
			}
			w.log.Error("batch rolled back",
				zap.Int("batch", i+1),
				zap.Int("size", len(batch)),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			failures = append(failures, berr)
			if ctx.Err() != nil || !w.opts.ContinueOnError {
				return res, errors.Join(failures...)
			}
			continue
		}

		res.Committed++
		res.Processed += len(batch)
		res.Persisted += inserted
		for _, p := range batch {
			if p.truncated {
				res.Truncated++
				w.log.Debug("name truncated", zap.String("cui", p.entity.CUI), zap.Int("max", w.opts.MaxNameLength))
			}
		}

		if res.Committed%w.opts.ProgressEvery == 0 {
			w.log.Info("import progress",
				zap.Int("processed", res.Processed),
				zap.Int("skipped", res.Skipped),
				zap.Int("total", res.Total),
			)
		}
	}

	w.log.Info("import finished",
		zap.Int("persisted", res.Persisted),
		zap.Int("truncated", res.Truncated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed_batches", res.FailedBatches),
	)
	return res, errors.Join(failures...)
}

// build turns a slice of CUIs into entities. IDs are assigned once so a
// retried batch writes the same rows.
func (w *Writer) build(cuis []string, names map[string]string) []pending {
	now := w.now()
	out := make([]pending, len(cuis))
	for i, cui := range cuis {
		name, cut := Truncate(names[cui], w.opts.MaxNameLength)
		out[i] = pending{
			entity: store.Entity{
				ID:        ulid.MustNew(ulid.Timestamp(now), w.entropy).String(),
				Category:  w.opts.Category,
				CUI:       cui,
				Name:      name,
				CreatedAt: now,
			},
			truncated: cut,
		}
	}
	return out
}

func (w *Writer) commitWithRetry(ctx context.Context, batch []pending) (int, int, error) {
	var err error
	for attempt := 1; ; attempt++ {
		var inserted int
		inserted, err = w.commit(ctx, batch)
		if err == nil {
			return inserted, attempt, nil
		}
		if attempt > w.opts.Retries || ctx.Err() != nil {
			return 0, attempt, err
		}
		w.log.Warn("batch failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		if perr := pause(ctx, w.opts.Delay); perr != nil {
			return 0, attempt, err
		}
	}
}

func (w *Writer) commit(ctx context.Context, batch []pending) (int, error) {
	inserted := 0
	err := w.store.WithTx(ctx, func(tx store.Tx) error {
		inserted = 0
		for _, p := range batch {
			ok, err := tx.InsertEntity(ctx, p.entity)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

// Truncate shortens name to at most max characters. The second result
// reports whether anything was cut.
func Truncate(name string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(name) <= max {
		return name, false
	}
	i := 0
	for n := 0; n < max; n++ {
		_, size := utf8.DecodeRuneInString(name[i:])
		i += size
	}
	return name[:i], true
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
