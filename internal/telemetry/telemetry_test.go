package telemetry_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slogctx "github.com/veqryn/slog-context"

	"InterviewGuru/internal/telemetry"
)

func TestInitLogger_WritesContextAttributes(t *testing.T) {
	dir := t.TempDir()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, cleanup, err := telemetry.InitLogger(telemetry.LoggerOptions{Dir: dir, File: "test.log"})
	require.NoError(t, err)

	ctx := slogctx.With(t.Context(), "session_id", "abc")
	slogctx.Info(ctx, "hello")
	slogctx.Debug(ctx, "hidden")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"session_id":"abc"`)
	assert.Contains(t, string(data), `"service":"interviewguru"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestInitTelemetry(t *testing.T) {
	dir := t.TempDir()

	tracer, meter, cleanup, err := telemetry.InitTelemetry(t.Context(), dir)
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, meter)

	_, span := tracer.Start(t.Context(), "test")
	span.End()
	cleanup()

	_, err = os.Stat(filepath.Join(dir, "interviewguru_traces.log"))
	assert.NoError(t, err)
}
