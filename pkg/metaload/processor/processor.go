// Package processor runs the import of one category from the two input
// files to the destination store.
package processor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/metaload/pkg/metaload/config"
	"github.com/cognicore/metaload/pkg/metaload/rrf"
	"github.com/cognicore/metaload/pkg/metaload/selector"
	"github.com/cognicore/metaload/pkg/metaload/semantic"
	"github.com/cognicore/metaload/pkg/metaload/store"
	"github.com/cognicore/metaload/pkg/metaload/terms"
	"github.com/cognicore/metaload/pkg/metaload/writer"
)

// State is the stage a processor is in.
type State int32

const (
	NotStarted State = iota
	FilteringCUIs
	CollectingTerms
	SelectingTerms
	WritingBatches
	Done
	AlreadyImported
	Failed
)

var stateNames = [...]string{
	NotStarted:      "NOT_STARTED",
	FilteringCUIs:   "FILTERING_CUIS",
	CollectingTerms: "COLLECTING_TERMS",
	SelectingTerms:  "SELECTING_TERMS",
	WritingBatches:  "WRITING_BATCHES",
	Done:            "DONE",
	AlreadyImported: "ALREADY_IMPORTED",
	Failed:          "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int32(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Done || s == AlreadyImported || s == Failed
}

// Config is everything one category run needs.
type Config struct {
	Category config.Category
	Inputs   config.Inputs
}

// Summary is the outcome of Run.
type Summary struct {
	Category string
	State    State
	// FailedIn is the stage that was active when the run failed.
	FailedIn State
	Err      error

	Existing      int64
	SemanticTypes rrf.Stats
	CUIs          int
	Concepts      terms.Stats
	Selected      int
	Write         writer.Result
	Duration      time.Duration
}

// Processor imports a single category. A Processor runs once.
type Processor struct {
	store store.Store
	cfg   Config
	base  *zap.Logger // without the category field
	log   *zap.Logger
	state atomic.Int32

	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to State)
}

// New returns a processor in the NotStarted state.
func New(st store.Store, cfg Config, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		store: st,
		cfg:   cfg,
		base:  log,
		log:   log.With(zap.String("category", cfg.Category.Name)),
	}
}

// State returns the current state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

func (p *Processor) transition(to State) {
	from := State(p.state.Swap(int32(to)))
	p.log.Debug("state change", zap.Stringer("from", from), zap.Stringer("to", to))
	if p.OnTransition != nil {
		p.OnTransition(from, to)
	}
}

// Run executes the pipeline. Errors, including panics, end in the Failed
// state and are reported through the Summary, never returned.
func (p *Processor) Run(ctx context.Context) (sum Summary) {
	start := time.Now()
	sum.Category = p.cfg.Category.Name

	defer func() {
		if r := recover(); r != nil {
			sum.Err = fmt.Errorf("panic: %v", r)
			sum.FailedIn = p.State()
			p.transition(Failed)
		}
		sum.State = p.State()
		sum.Duration = time.Since(start)
		if sum.Err != nil {
			p.log.Error("category import failed",
				zap.Stringer("stage", sum.FailedIn),
				zap.Duration("elapsed", sum.Duration),
				zap.Error(sum.Err),
			)
		}
	}()

	if p.State() != NotStarted {
		sum.Err = fmt.Errorf("processor for %s already ran", sum.Category)
		sum.FailedIn = p.State()
		return sum
	}

	if err := p.run(ctx, &sum); err != nil {
		sum.Err = err
		sum.FailedIn = p.State()
		p.transition(Failed)
	}
	return sum
}

func (p *Processor) run(ctx context.Context, sum *Summary) error {
	cat := p.cfg.Category
	w := writer.New(p.store, writer.Options{
		Category:        cat.Name,
		BatchSize:       cat.BatchSize,
		Delay:           cat.BatchDelay,
		MaxNameLength:   cat.MaxNameLength,
		Retries:         cat.BatchRetries,
		ContinueOnError: cat.ContinueOnBatchError,
		ProgressEvery:   cat.ProgressEvery,
	}, p.base)

	// Checked before either scan; the writer checks again before writing.
	done, existing, err := w.AlreadyImported(ctx)
	if err != nil {
		return err
	}
	if done {
		sum.Existing = existing
		p.log.Info("category already imported, skipping scans", zap.Int64("existing", existing))
		p.transition(AlreadyImported)
		return nil
	}

	p.transition(FilteringCUIs)
	cuis, styStats, err := semantic.NewLoader(cat.SemanticTypes, p.log).Load(ctx, p.cfg.Inputs.SemanticTypes)
	sum.SemanticTypes = styStats
	if err != nil {
		return err
	}
	sum.CUIs = len(cuis)

	p.transition(CollectingTerms)
	set, conStats, err := terms.NewCollector(p.log).Collect(ctx, p.cfg.Inputs.Concepts, cuis)
	sum.Concepts = conStats
	if err != nil {
		return err
	}

	p.transition(SelectingTerms)
	names := selector.New(cat.Sources, cat.TermTypes).SelectAll(set)
	sum.Selected = len(names)
	p.log.Info("names selected",
		zap.Int("concepts", len(set)),
		zap.Int("selected", len(names)),
		zap.Int("dropped", sum.CUIs-len(names)),
	)

	p.transition(WritingBatches)
	res, err := w.Write(ctx, names)
	sum.Write = res
	if err != nil {
		return err
	}
	if res.AlreadyImported {
		// Another writer filled the category between the guard and now.
		sum.Existing = res.Existing
		p.transition(AlreadyImported)
		return nil
	}

	p.transition(Done)
	p.log.Info("category import finished",
		zap.Int("cuis", sum.CUIs),
		zap.Int("persisted", res.Persisted),
		zap.Int("truncated", res.Truncated),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}
