package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "littletimes-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := StartClientSpan(context.Background(), "toss", "confirm")
	span.SetError(errors.New("declined"))
	span.End()
	assert.NotNil(t, ctx)
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "littletimes-test", Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "zipkin")
}

func captureJobLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := JobLogger
	JobLogger = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(func() { JobLogger = prev })
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestRunSharesRunID(t *testing.T) {
	buf := captureJobLogs(t)

	run, ctx := StartRun(context.Background(), "pending_order_sweep")
	run.Done(slog.Int64("cancelled", 2))

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "job started", lines[0]["msg"])
	assert.Equal(t, "job completed", lines[1]["msg"])
	assert.Equal(t, RunID(ctx), lines[0]["run_id"])
	assert.Equal(t, lines[0]["run_id"], lines[1]["run_id"])
	assert.Equal(t, float64(2), lines[1]["cancelled"])
}

func TestRunKeepsGivenRunID(t *testing.T) {
	buf := captureJobLogs(t)

	run, _ := StartRun(WithRunID(context.Background(), "sweep-1"), "pending_order_sweep")
	run.Fail(errors.New("db down"))

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "sweep-1", lines[1]["run_id"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "db down", lines[1]["error"])
}

func TestResultLabel(t *testing.T) {
	before := testutil.ToFloat64(LikeToggles.WithLabelValues("liked"))
	LikeToggles.WithLabelValues("liked").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LikeToggles.WithLabelValues("liked")))

	assert.Equal(t, ResultOK, ResultLabel(nil))
	assert.Equal(t, ResultError, ResultLabel(errors.New("x")))
}
