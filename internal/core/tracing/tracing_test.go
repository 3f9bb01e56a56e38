package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInit_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), "inventory", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInjectExtract_RoundTrip(t *testing.T) {
	_, err := Init(context.Background(), "inventory", "")
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := map[string]string{}
	Inject(ctx, headers)
	require.Contains(t, headers, "traceparent")

	remote := trace.SpanContextFromContext(Extract(context.Background(), headers))
	assert.Equal(t, span.SpanContext().TraceID(), remote.TraceID())
	assert.True(t, remote.IsRemote())
}

func TestExtract_EmptyHeaders(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, Extract(ctx, nil))
}
