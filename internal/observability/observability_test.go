package observability

import (
	"context"
	"testing"

	"humanizer/internal/models"
	"humanizer/internal/version"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_MetricsOnly(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{ServiceName: "test-service"}

	provider, err := Setup(metrics, obs, version.Info{}, WithRegistry(promclient.NewRegistry()))
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.promExporter)
	assert.Nil(t, provider.tracerProvider)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_TracingStdout(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: false}
	obs := models.ObservabilityConfig{
		ServiceName: "test-service",
		Tracing:     models.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.0},
	}

	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	assert.NotNil(t, provider.tracerProvider)
	assert.Nil(t, provider.promExporter)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_BothDisabled(t *testing.T) {
	provider, err := Setup(models.MetricsConfig{}, models.ObservabilityConfig{ServiceName: "test"}, version.Info{})
	require.NoError(t, err)
	assert.Nil(t, provider.tracerProvider)
	assert.Nil(t, provider.meterProvider)
	assert.Equal(t, promclient.DefaultGatherer, provider.Gatherer())
}

func TestSetup_InvalidExporter(t *testing.T) {
	obs := models.ObservabilityConfig{
		ServiceName: "test-service",
		Tracing:     models.TracingConfig{Enabled: true, Exporter: "invalid", SampleRate: 1.0},
	}

	provider, err := Setup(models.MetricsConfig{}, obs, version.Info{})
	require.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestSetup_SamplerConfigurations(t *testing.T) {
	for _, rate := range []float64{1.0, 0.0, 0.5} {
		obs := models.ObservabilityConfig{
			ServiceName: "test",
			Tracing:     models.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: rate},
		}

		provider, err := Setup(models.MetricsConfig{}, obs, version.Info{})
		require.NoError(t, err, "sample rate %v", rate)
		assert.NoError(t, provider.Shutdown(context.Background()))
	}
}

func TestProvider_ShutdownNilProviders(t *testing.T) {
	p := &Provider{}
	assert.NoError(t, p.Shutdown(context.Background()))
}
