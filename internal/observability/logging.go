// Package observability provides logging, metrics and tracing for the
// background jobs and outgoing calls of the API.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// JobLogger writes the log lines of background jobs.
var JobLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

type runIDKey struct{}

// WithRunID tags ctx with the id of one job run.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the job run id in ctx, if any.
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Run is one execution of a background job. Its log lines share a run id
// and the run is traced as an internal span.
type Run struct {
	job     string
	started time.Time
	span    *Span
	ctx     context.Context
}

// StartRun logs the start of job and returns the run with a derived context.
func StartRun(ctx context.Context, job string) (*Run, context.Context) {
	if RunID(ctx) == "" {
		ctx = WithRunID(ctx, uuid.NewString())
	}
	span, ctx := StartInternalSpan(ctx, "job."+job, attribute.String("job.run_id", RunID(ctx)))
	r := &Run{job: job, started: time.Now(), span: span, ctx: ctx}
	JobLogger.InfoContext(ctx, "job started", r.attrs()...)
	return r, ctx
}

func (r *Run) attrs(extra ...any) []any {
	return append([]any{
		slog.String("job", r.job),
		slog.String("run_id", RunID(r.ctx)),
	}, extra...)
}

// Done logs a successful run with its result fields.
func (r *Run) Done(fields ...slog.Attr) {
	extra := []any{slog.Duration("elapsed", time.Since(r.started))}
	for _, f := range fields {
		extra = append(extra, f)
	}
	JobLogger.InfoContext(r.ctx, "job completed", r.attrs(extra...)...)
	r.span.End()
}

// Fail logs and traces a failed run.
func (r *Run) Fail(err error) {
	JobLogger.ErrorContext(r.ctx, "job failed", r.attrs(
		slog.Duration("elapsed", time.Since(r.started)),
		slog.String("error", err.Error()),
	)...)
	r.span.SetError(err)
	r.span.End()
}
