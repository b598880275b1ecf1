package observability

import (
	"context"
	"testing"

	"materialhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	tc := config.GetDefaultConfig().Monitoring.Tracing
	tc.Enabled = false
	shutdown, err := SetupTracing(context.Background(), tc)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:4317", "localhost:4317"},
		{"https://otel-collector:4317", "otel-collector:4317"},
		{"127.0.0.1:4317", "127.0.0.1:4317"},
		{"", ""},
		{"http://", "http://"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointHost(tt.in), tt.in)
	}
}

func TestServiceNameAndRatio(t *testing.T) {
	assert.Equal(t, "materialhub", ServiceName(config.TracingConfig{}))
	assert.Equal(t, "svc", ServiceName(config.TracingConfig{ServiceName: "svc"}))
	assert.Equal(t, 0.1, sampleRatio(0))
	assert.Equal(t, 0.1, sampleRatio(1.5))
	assert.Equal(t, 0.5, sampleRatio(0.5))
}
