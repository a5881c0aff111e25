package normalform

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nodeadmin/snomed-dnf/reasoner"
)

var tracer = otel.Tracer("snomed-dnf/normalform")

// parallelThreshold is the minimum layer width that uses worker fan-out.
// Narrower layers run sequentially.
const parallelThreshold = 32

// ComponentSource produces the two property sets compared for every concept.
type ComponentSource[T any] interface {
	// ExistingComponents returns the previously persisted properties.
	ExistingComponents(conceptID reasoner.ConceptID) ([]T, error)
	// GeneratedComponents computes the properties of a concept from its own
	// facts and the generated sets of its direct parents.
	GeneratedComponents(conceptID reasoner.ConceptID, parentIDs []reasoner.ConceptID) ([]T, error)
}

// Invalidator is implemented by sources that drop cache entries when a layer
// is complete. The engine passes the ids of the layer before the one just
// finished.
type Invalidator interface {
	Invalidate(ids []reasoner.ConceptID)
}

// LayerIndependent is implemented by sources that can tell whether concepts
// of one layer may be generated concurrently. Sources that do not implement
// it are assumed independent.
type LayerIndependent interface {
	LayerIndependent() bool
}

// Ordering is a total order over components, used only to match and report.
type Ordering[T any] func(a, b T) int

// ChangeProcessor receives the existing and generated sets of every concept.
// It must not keep the slices after returning.
type ChangeProcessor[T any] interface {
	Apply(ctx context.Context, conceptID reasoner.ConceptID, existing, generated []T, ordering Ordering[T]) error
}

// ChangeProcessorFunc adapts a function to ChangeProcessor.
type ChangeProcessorFunc[T any] func(ctx context.Context, conceptID reasoner.ConceptID, existing, generated []T, ordering Ordering[T]) error

func (f ChangeProcessorFunc[T]) Apply(ctx context.Context, conceptID reasoner.ConceptID, existing, generated []T, ordering Ordering[T]) error {
	return f(ctx, conceptID, existing, generated, ordering)
}

// Monitor observes the progress of a pass.
type Monitor interface {
	Begin(name string, total int)
	Worked(n int)
	Done()
}

type nopMonitor struct{}

func (nopMonitor) Begin(string, int) {}
func (nopMonitor) Worked(int)        {}
func (nopMonitor) Done()             {}

// State is the lifecycle of a Generator.
type State int32

const (
	Idle State = iota
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a Generator. The zero value runs sequentially without
// logging, progress or metrics.
type Options struct {
	// Name labels logs, spans and metrics.
	Name string
	// Workers > 1 computes generated components of wide layers concurrently.
	// Processor calls stay sequential in iteration order.
	Workers int
	Logger  *slog.Logger
	Monitor Monitor
	Metrics *Metrics
}

// Result summarises a pass.
type Result struct {
	Processed int
	Generated int
	Layers    int
	Cancelled bool
	Elapsed   time.Duration
}

// Generator walks a taxonomy layer by layer and feeds each concept's
// existing and generated components to a change processor. It runs once.
type Generator[T any] struct {
	taxonomy *reasoner.Taxonomy
	source   ComponentSource[T]
	opts     Options
	state    atomic.Int32
}

func NewGenerator[T any](t *reasoner.Taxonomy, source ComponentSource[T], opts Options) *Generator[T] {
	if opts.Name == "" {
		opts.Name = "normalform"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Monitor == nil {
		opts.Monitor = nopMonitor{}
	}
	return &Generator[T]{taxonomy: t, source: source, opts: opts}
}

func (g *Generator[T]) State() State { return State(g.state.Load()) }

// Run performs the pass. Cancellation is checked between concepts and yields
// a Result with Cancelled set and a nil error; changes already handed to the
// processor stay reported. Source and processor errors abort the pass.
func (g *Generator[T]) Run(ctx context.Context, processor ChangeProcessor[T], ordering Ordering[T]) (Result, error) {
	if !g.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return Result{}, ErrGeneratorDone
	}
	defer g.state.Store(int32(Done))

	ctx, span := tracer.Start(ctx, "normalform.Run",
		trace.WithAttributes(
			attribute.String("generator", g.opts.Name),
			attribute.Int("concepts", g.taxonomy.ConceptCount()),
			attribute.Int("workers", g.opts.Workers),
		),
	)
	defer span.End()

	log := g.opts.Logger.With(slog.String("generator", g.opts.Name))
	log.Info("normal form pass started", slog.Int("concepts", g.taxonomy.ConceptCount()))

	start := time.Now()
	g.opts.Monitor.Begin(g.opts.Name, g.taxonomy.ConceptCount())
	defer g.opts.Monitor.Done()

	var res Result
	err := g.walk(ctx, span, log, processor, ordering, &res)
	res.Elapsed = time.Since(start)

	outcome := "completed"
	switch {
	case err != nil:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("normal form pass failed", slog.Any("error", err), slog.Int("processed", res.Processed))
	case res.Cancelled:
		outcome = "cancelled"
		log.Warn("normal form pass cancelled",
			slog.Int("processed", res.Processed),
			slog.Int("generated", res.Generated),
		)
	default:
		log.Info("normal form pass finished",
			slog.Int("processed", res.Processed),
			slog.Int("generated", res.Generated),
			slog.Int("layers", res.Layers),
			slog.Duration("elapsed", res.Elapsed),
		)
	}
	span.SetAttributes(
		attribute.Int("processed", res.Processed),
		attribute.Int("generated", res.Generated),
		attribute.String("outcome", outcome),
	)
	g.opts.Metrics.passFinished(g.opts.Name, outcome, res.Elapsed)
	return res, err
}

func (g *Generator[T]) walk(ctx context.Context, span trace.Span, log *slog.Logger, processor ChangeProcessor[T], ordering Ordering[T], res *Result) error {
	invalidator, _ := g.source.(Invalidator)

	var previous, current []reasoner.ConceptID
	flush := func() (bool, error) {
		if len(current) == 0 {
			return true, nil
		}
		ok, err := g.processLayer(ctx, current, processor, ordering, res)
		if !ok || err != nil {
			return ok, err
		}
		res.Layers++
		span.AddEvent("layer", trace.WithAttributes(
			attribute.Int("depth", res.Layers-1),
			attribute.Int("width", len(current)),
		))
		log.Debug("layer done", slog.Int("depth", res.Layers-1), slog.Int("width", len(current)))
		if invalidator != nil && previous != nil {
			invalidator.Invalidate(previous)
		}
		previous, current = current, nil
		return true, nil
	}

	for _, id := range g.taxonomy.IterationOrder() {
		if id == reasoner.DepthChange {
			if ok, err := flush(); !ok || err != nil {
				return err
			}
			continue
		}
		current = append(current, id)
	}
	_, err := flush()
	return err
}

// processLayer handles one layer. It returns false when the context was
// cancelled before the layer completed.
func (g *Generator[T]) processLayer(ctx context.Context, ids []reasoner.ConceptID, processor ChangeProcessor[T], ordering Ordering[T], res *Result) (bool, error) {
	var generated [][]T
	if g.parallel() && len(ids) >= parallelThreshold {
		var err error
		if generated, err = g.generateParallel(ctx, ids); err != nil {
			return false, err
		}
	}

	for i, id := range ids {
		if ctx.Err() != nil {
			res.Cancelled = true
			return false, nil
		}
		var gen []T
		if generated != nil {
			gen = generated[i]
		} else {
			var err error
			if gen, err = g.source.GeneratedComponents(id, g.taxonomy.Parents(id)); err != nil {
				return false, err
			}
		}
		existing, err := g.source.ExistingComponents(id)
		if err != nil {
			return false, err
		}
		if err := processor.Apply(ctx, id, existing, gen, ordering); err != nil {
			return false, fmt.Errorf("concept %d: %w", id, err)
		}
		res.Processed++
		res.Generated += len(gen)
		g.opts.Metrics.conceptDone(g.opts.Name, len(gen))
		g.opts.Monitor.Worked(1)
	}
	return true, nil
}

func (g *Generator[T]) parallel() bool {
	if g.opts.Workers <= 1 {
		return false
	}
	if li, ok := g.source.(LayerIndependent); ok {
		return li.LayerIndependent()
	}
	return true
}

func (g *Generator[T]) generateParallel(ctx context.Context, ids []reasoner.ConceptID) ([][]T, error) {
	out := make([][]T, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i, id := range ids {
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return nil
			}
			gen, err := g.source.GeneratedComponents(id, g.taxonomy.Parents(id))
			if err != nil {
				return err
			}
			out[i] = gen
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
