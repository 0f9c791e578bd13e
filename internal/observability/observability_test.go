package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern/lectern/internal/log"
)

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	shutdown := Setup(context.Background(), "", log.NewNop())

	require.NotNil(t, shutdown)

	// No-op shutdown must return immediately.
	shutdown()
}

func TestSetup_CustomEndpoint(t *testing.T) {
	t.Parallel()

	shutdown := Setup(context.Background(), "custom-host:4318", log.NewNop())

	require.NotNil(t, shutdown)

	// Shutdown flushes an empty span queue and must not block.
	assert.NotPanics(t, shutdown)
}

func TestSetup_EndpointUnavailable_GracefulDegradation(t *testing.T) {
	t.Parallel()

	// Nothing listens here. Exporter creation still succeeds; spans
	// would fail to export silently.
	shutdown := Setup(context.Background(), "localhost:49999", log.NewNop())

	require.NotNil(t, shutdown)
	assert.NotPanics(t, shutdown)
}
