// Package runner executes publish analyses and tarball rebuilds with
// bounded concurrency, wrapping each run in a tracer span and recording
// its outcome as metrics and logs.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pkggate/pkggate/internal/observability"
	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/tarball"
)

// tracerName is the default OTel tracer name for the runner package.
const tracerName = "pkggate"

// Operation names stamped on spans, metrics, and logs.
const (
	OpAnalyze = "analyze"
	OpRebuild = "rebuild"
)

// Runner executes analysis runs. Each run gets a fresh pipeline engine;
// the Runner itself carries only shared limits and telemetry, so one
// Runner serves concurrent callers.
type Runner struct {
	// Workers bounds module loads in flight within one run's graph build.
	// Zero selects the builder default.
	Workers int

	// MaxRuns bounds concurrent runs. Zero or negative leaves runs
	// unbounded.
	MaxRuns int

	// Tracer is the OTel tracer for run spans. When nil, falls back to
	// otel.Tracer("pkggate").
	Tracer trace.Tracer

	// Metrics records run outcomes. Nil disables recording.
	Metrics *observability.RunMetrics

	// Logger receives run lifecycle records. Nil selects slog.Default.
	Logger *slog.Logger

	semOnce sync.Once
	sem     chan struct{}
}

// tracer returns the configured tracer, falling back to the global provider.
func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}

	return otel.Tracer(tracerName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.Default()
}

// acquire claims a run slot, blocking until one frees or ctx is done.
func (r *Runner) acquire(ctx context.Context) (func(), error) {
	r.semOnce.Do(func() {
		if r.MaxRuns > 0 {
			r.sem = make(chan struct{}, r.MaxRuns)
		}
	})

	if r.sem == nil {
		return func() {}, nil
	}

	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AnalyzePackage runs the full publish pipeline for one uploaded package
// version. Rejections come back as *diag.Error; other errors are
// infrastructure failures.
func (r *Runner) AnalyzePackage(ctx context.Context, req analysis.Request) (*analysis.Output, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := r.tracer().Start(ctx, "pkggate.analyze",
		trace.WithAttributes(
			attribute.String("package.name", req.Member.DisplayName()),
			attribute.String("package.version", req.Member.Version.String()),
			attribute.Int("package.files", req.Files.Len()),
		))
	defer span.End()

	log := r.logger().With(
		"op", OpAnalyze,
		"package", req.Member.DisplayName(),
		"version", req.Member.Version.String(),
	)
	log.InfoContext(ctx, "run started", "files", req.Files.Len())

	if r.Metrics != nil {
		done := r.Metrics.TrackInflight(ctx, OpAnalyze)
		defer done()
	}

	start := time.Now()

	engine := &analysis.Analyzer{Workers: r.Workers, Logger: log}
	out, runErr := engine.AnalyzePackage(ctx, req)

	r.finish(ctx, span, log, OpAnalyze, start, runErr)

	if runErr != nil {
		return nil, runErr
	}

	return out, nil
}

// RebuildTarball reassembles the canonical npm tarball of an
// already-published version from object storage.
func (r *Runner) RebuildTarball(ctx context.Context, req analysis.RebuildRequest) (*tarball.Tarball, error) {
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := r.tracer().Start(ctx, "pkggate.rebuild",
		trace.WithAttributes(
			attribute.String("package.name", req.Member.DisplayName()),
			attribute.String("package.version", req.Member.Version.String()),
			attribute.Int("package.files", req.Paths.Len()),
		))
	defer span.End()

	log := r.logger().With(
		"op", OpRebuild,
		"package", req.Member.DisplayName(),
		"version", req.Member.Version.String(),
	)
	log.InfoContext(ctx, "run started", "files", req.Paths.Len())

	if r.Metrics != nil {
		done := r.Metrics.TrackInflight(ctx, OpRebuild)
		defer done()
	}

	start := time.Now()

	engine := &analysis.Analyzer{Workers: r.Workers, Logger: log}
	tb, runErr := engine.RebuildTarball(ctx, req)

	r.finish(ctx, span, log, OpRebuild, start, runErr)

	if runErr != nil {
		return nil, runErr
	}

	return tb, nil
}

// finish derives the run status from err and records it on the span, the
// metrics, and the log. Rejections carry a diagnostic kind; everything
// else that fails is an infrastructure error.
func (r *Runner) finish(
	ctx context.Context, span trace.Span, log *slog.Logger, op string, start time.Time, err error,
) {
	duration := time.Since(start)

	status := observability.StatusOK

	switch {
	case err == nil:
	case diag.KindOf(err) != "":
		status = observability.StatusRejected
	default:
		status = observability.StatusError
	}

	span.SetAttributes(attribute.String("run.status", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if r.Metrics != nil {
		r.Metrics.RecordRun(ctx, op, status, duration)

		if de, ok := diag.As(err); ok {
			r.Metrics.RecordRejection(ctx, op, string(de.Kind))
		}
	}

	switch status {
	case observability.StatusOK:
		log.InfoContext(ctx, "run finished", "status", status, "duration", duration)
	case observability.StatusRejected:
		log.WarnContext(ctx, "package version rejected",
			"status", status, "duration", duration, "reason", err.Error())
	default:
		log.ErrorContext(ctx, "run failed",
			"status", status, "duration", duration, "error", err.Error())
	}
}
