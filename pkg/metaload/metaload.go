package metaload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/metaload/pkg/metaload/config"
	"github.com/cognicore/metaload/pkg/metaload/processor"
	"github.com/cognicore/metaload/pkg/metaload/store"
	"github.com/cognicore/metaload/pkg/metaload/store/postgres"
	"github.com/cognicore/metaload/pkg/metaload/store/sqlite"
)

// Importer runs category imports against one store
type Importer struct {
	store       store.Store
	inputs      config.Inputs
	categories  []config.Category
	parallelism int
	log         *zap.Logger
}

// Options configures an Importer
type Options struct {
	Store       store.Store
	Inputs      config.Inputs
	Categories  []config.Category
	Parallelism int
	Logger      *zap.Logger
}

// New creates an Importer with the given dependencies
func New(opts Options) *Importer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	par := opts.Parallelism
	if par <= 0 {
		par = 1
	}
	return &Importer{
		store:       opts.Store,
		inputs:      opts.Inputs,
		categories:  opts.Categories,
		parallelism: par,
		log:         log,
	}
}

// Close cleanly shuts down the underlying store
func (im *Importer) Close() error {
	return im.store.Close()
}

// Report collects the outcome of every category, in configuration order
type Report struct {
	Summaries []processor.Summary
	Duration  time.Duration
}

// Failed returns the summaries that ended in the Failed state
func (r Report) Failed() []processor.Summary {
	var out []processor.Summary
	for _, s := range r.Summaries {
		if s.State == processor.Failed {
			out = append(out, s)
		}
	}
	return out
}

// Err joins the errors of all failed categories
func (r Report) Err() error {
	var errs []error
	for _, s := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", s.Category, s.Err))
	}
	return errors.Join(errs...)
}

// Import runs every configured category. A failed category does not stop
// the others; check Report.Err.
func (im *Importer) Import(ctx context.Context) Report {
	start := time.Now()
	rep := Report{Summaries: make([]processor.Summary, len(im.categories))}

	var g errgroup.Group
	g.SetLimit(im.parallelism)
	for i, cat := range im.categories {
		p := processor.New(im.store, processor.Config{Category: cat, Inputs: im.inputs}, im.log)
		g.Go(func() error {
			rep.Summaries[i] = p.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	rep.Duration = time.Since(start)
	im.log.Info("import run finished",
		zap.Int("categories", len(rep.Summaries)),
		zap.Int("failed", len(rep.Failed())),
		zap.Duration("elapsed", rep.Duration),
	)
	return rep
}

// CategoryStatus is the stored entity count of one category
type CategoryStatus struct {
	Category string
	Entities int64
}

// Status counts stored entities for every configured category
func (im *Importer) Status(ctx context.Context) ([]CategoryStatus, error) {
	out := make([]CategoryStatus, 0, len(im.categories))
	for _, cat := range im.categories {
		n, err := im.store.CountEntities(ctx, cat.Name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", cat.Name, err)
		}
		out = append(out, CategoryStatus{Category: cat.Name, Entities: n})
	}
	return out, nil
}

// Purge deletes the stored entities of every configured category so the next
// import starts fresh.
func (im *Importer) Purge(ctx context.Context) ([]CategoryStatus, error) {
	out := make([]CategoryStatus, 0, len(im.categories))
	for _, cat := range im.categories {
		n, err := im.store.PurgeCategory(ctx, cat.Name)
		if err != nil {
			return out, fmt.Errorf("purge %s: %w", cat.Name, err)
		}
		im.log.Info("category purged", zap.String("category", cat.Name), zap.Int64("deleted", n))
		out = append(out, CategoryStatus{Category: cat.Name, Entities: n})
	}
	return out, nil
}

// OpenStore opens the store selected by cfg
func OpenStore(ctx context.Context, cfg config.StoreConfig, log *zap.Logger) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.OpenSQLite(ctx, cfg.DSN)
	case "postgres":
		st, err := postgres.Open(ctx, cfg.DSN, postgres.Options{MaxConns: cfg.MaxConns, MaxIdle: cfg.MaxIdle}, log)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
