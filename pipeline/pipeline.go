// Package pipeline orchestrates one generation run: validate sources, pick
// the adapter, build and finalize the graph, resolve the emission order,
// and fan the emitters out in parallel. A run either completes for every
// requested target or fails fast; no partial artifacts survive.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/typeforge/typeforge/emit"
	"github.com/typeforge/typeforge/emit/crate"
	"github.com/typeforge/typeforge/emit/header"
	"github.com/typeforge/typeforge/emit/interchange"
	"github.com/typeforge/typeforge/errors"
	"github.com/typeforge/typeforge/graph"
	"github.com/typeforge/typeforge/logger"
	"github.com/typeforge/typeforge/metadata"
	"github.com/typeforge/typeforge/naming"
	"github.com/typeforge/typeforge/order"
)

// Options configures one run.
type Options struct {
	// Source locates the metadata and native-image inputs.
	Source metadata.Source
	// FormatVersion selects the adapter through the registry.
	FormatVersion string
	// Targets names the requested outputs. Each target writes under
	// OutDir/<target>.
	Targets []string
	// OutDir is the root output directory.
	OutDir string
	// CrateName names the generated Cargo package for the source-crate
	// target.
	CrateName string
	// Excluded lists fully-qualified type names rendered as opaque
	// placeholders.
	Excluded []string
}

// Result summarizes a completed run.
type Result struct {
	RunID    string
	Types    int
	Edges    int
	Items    int
	Targets  []string
	OutDir   string
	Duration time.Duration
}

// Stage names appear in logs and in the terminal diagnostic on failure.
const (
	StageValidate = "validate"
	StageAdapt    = "adapt"
	StageBuild    = "build"
	StageFinalize = "finalize"
	StageOrder    = "order"
	StageEmit     = "emit"
)

// StageError ties a failure to the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

// Unwrap exposes the underlying condition for errors.Is checks.
func (e *StageError) Unwrap() error { return e.Err }

func stageFail(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Run executes the full pipeline. Graph state lives only for this call;
// nothing is cached across runs.
func Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	log := logger.Named("pipeline").With(logger.FieldRunID, runID)
	start := time.Now()

	if len(opts.Targets) == 0 {
		return nil, stageFail(StageValidate, errors.New("no output target requested"))
	}
	for _, target := range opts.Targets {
		if _, err := emitterFor(target, opts.CrateName); err != nil {
			return nil, stageFail(StageValidate, err)
		}
	}
	if err := opts.Source.Validate(); err != nil {
		return nil, stageFail(StageValidate, err)
	}

	factory, err := metadata.ForVersion(opts.FormatVersion)
	if err != nil {
		return nil, stageFail(StageAdapt, err)
	}
	adapter, err := factory(opts.Source)
	if err != nil {
		return nil, stageFail(StageAdapt, err)
	}
	log.Infow("adapter selected",
		logger.FieldStage, StageAdapt,
		"format_version", adapter.FormatVersion())

	g, err := graph.NewBuilder(adapter, opts.Excluded).Build()
	if err != nil {
		return nil, stageFail(StageBuild, err)
	}
	if err := graph.Finalize(g); err != nil {
		return nil, stageFail(StageFinalize, err)
	}
	log.Infow("graph finalized",
		logger.FieldStage, StageFinalize,
		logger.FieldNodeCount, g.Len(),
		logger.FieldEdgeCount, len(g.Edges()))

	ord, err := order.Resolve(g)
	if err != nil {
		return nil, stageFail(StageOrder, err)
	}

	if err := runEmitters(ctx, g, ord, opts, log); err != nil {
		return nil, stageFail(StageEmit, err)
	}

	res := &Result{
		RunID:    runID,
		Types:    g.Len(),
		Edges:    len(g.Edges()),
		Items:    len(ord.Items),
		Targets:  opts.Targets,
		OutDir:   opts.OutDir,
		Duration: time.Since(start),
	}
	log.Infow("run complete",
		logger.FieldStage, StageEmit,
		logger.FieldCount, res.Types,
		logger.FieldDurationMS, res.Duration.Milliseconds())
	return res, nil
}

// runEmitters renders every requested target in parallel. The graph and
// order are immutable by now; each emitter owns a disjoint output
// directory, so the only coordination needed is the error group itself.
func runEmitters(ctx context.Context, g *graph.Graph, ord *order.EmissionOrder, opts Options, log *zap.SugaredLogger) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, target := range opts.Targets {
		em, err := emitterFor(target, opts.CrateName)
		if err != nil {
			return err
		}
		names, err := naming.NewTable(g, target)
		if err != nil {
			return err
		}
		outDir := TargetDir(opts.OutDir, target)
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			log.Infow("emitting target",
				logger.FieldStage, StageEmit,
				logger.FieldTarget, em.Target(),
				logger.FieldDir, outDir)
			return em.Emit(g, ord, names, outDir)
		})
	}
	return group.Wait()
}

// TargetDir is where one target's artifacts land under the output root.
func TargetDir(outDir, target string) string {
	return filepath.Join(outDir, target)
}

func emitterFor(target, crateName string) (emit.Emitter, error) {
	switch target {
	case emit.TargetHeader:
		return header.New(), nil
	case emit.TargetCrate:
		return crate.New(crateName), nil
	case emit.TargetInterchange:
		return interchange.New(), nil
	}
	return nil, errors.Newf("unknown output target %q", target)
}
