package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		level     string
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{name: "production info", mode: "production", level: "info", wantLevel: zapcore.InfoLevel},
		{name: "development debug", mode: "development", level: "debug", wantLevel: zapcore.DebugLevel},
		{name: "upper case level", mode: "production", level: "WARN", wantLevel: zapcore.WarnLevel},
		{name: "unknown level", mode: "production", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.mode, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
			}
		})
	}
}

func TestInitTracing(t *testing.T) {
	original := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(original) })

	t.Run("disabled leaves provider untouched", func(t *testing.T) {
		shutdown, err := InitTracing(TracingOptions{}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, original, otel.GetTracerProvider())
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("enabled exports spans", func(t *testing.T) {
		var buf bytes.Buffer
		shutdown, err := InitTracing(TracingOptions{
			Enabled:     true,
			ServiceName: "agrisense-test",
			SampleRatio: 1,
			Writer:      &buf,
		}, zap.NewNop())
		require.NoError(t, err)

		_, span := otel.Tracer("test").Start(context.Background(), "Advisor.GenerateRecommendation")
		span.End()

		require.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), "Advisor.GenerateRecommendation")
		assert.Contains(t, buf.String(), "agrisense-test")
	})
}
