package otel

import (
	"context"
	"testing"

	"recsys-orchestrator/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitProvider_DisabledIsNoop(t *testing.T) {
	shutdown, err := InitProvider(context.Background(), "test", config.OTelConfig{Enabled: false})

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
