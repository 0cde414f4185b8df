package analysis

import (
	"context"
	"testing"

	"github.com/moolen/vigil/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictTrend(t *testing.T) {
	tests := []struct {
		name           string
		values         []float64
		wantNil        bool
		wantDirection  string
		wantChange     float64
		wantConfidence float64
	}{
		{name: "empty", values: nil, wantNil: true},
		{name: "two samples", values: []float64{1, 100}, wantNil: true},
		{name: "three samples compare with themselves", values: []float64{1, 5, 9}, wantNil: true},
		{name: "flat", values: []float64{10, 10, 10, 10, 10, 10}, wantNil: true},
		{name: "below threshold", values: []float64{10, 10, 10, 11, 11, 11}, wantNil: true},
		{name: "zero baseline", values: []float64{0, 0, 0, 5, 5, 5}, wantNil: true},
		{name: "negative baseline", values: []float64{-4, -4, 5, 5, 5}, wantNil: true},
		{
			name:           "increasing",
			values:         []float64{10, 10, 10, 10, 13, 13, 13},
			wantDirection:  DirectionIncreasing,
			wantChange:     30,
			wantConfidence: 0.6,
		},
		{
			name:           "decreasing caps confidence",
			values:         []float64{10, 10, 10, 5, 5, 5},
			wantDirection:  DirectionDecreasing,
			wantChange:     50,
			wantConfidence: 0.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictTrend("cpu_trend", tt.values)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDirection, got.Direction)
			assert.InDelta(t, tt.wantChange, got.ChangePercent, 1e-9)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Contains(t, got.Message, "cpu_trend trending "+tt.wantDirection)
		})
	}
}

func TestPredict(t *testing.T) {
	queries := metrics.TrendQueries("shop")
	q := &fakeQuerier{series: map[string][]float64{
		exprFor(queries, metrics.TrendCPU):     {1, 1, 1, 1, 2, 2, 2},
		exprFor(queries, metrics.TrendMemory):  {100, 100, 100, 150, 150, 150},
		exprFor(queries, metrics.TrendRequest): {50, 50, 50, 10, 10, 10},
		exprFor(queries, metrics.TrendError):   {0.1, 0.1},
	}}

	result := NewPredictor(clusterProfile(), q, testOptions()).Predict(context.Background())

	assert.True(t, result.DataAvailable)
	assert.Equal(t, "1h0m0s", result.Window)
	assert.Equal(t, map[string]int{
		metrics.TrendCPU:     7,
		metrics.TrendMemory:  6,
		metrics.TrendRequest: 6,
		metrics.TrendError:   2,
	}, result.SeriesAnalyzed)

	var metricNames []string
	for _, p := range result.Predictions {
		metricNames = append(metricNames, p.Metric)
	}
	assert.Equal(t, []string{metrics.TrendCPU, metrics.TrendMemory, metrics.TrendRequest}, metricNames)

	var actionNames []string
	for _, a := range result.RecommendedActions {
		actionNames = append(actionNames, a.Action)
	}
	assert.Equal(t, []string{"scale_up_cpu", "investigate_memory_leak"}, actionNames)
}

func TestPredict_NoBackend(t *testing.T) {
	result := NewPredictor(simulatedProfile(), nil, testOptions()).Predict(context.Background())

	assert.False(t, result.DataAvailable)
	assert.True(t, result.Synthetic)
	assert.Empty(t, result.Predictions)
	assert.Empty(t, result.RecommendedActions)
}

func TestPredict_FailingBackend(t *testing.T) {
	q := &fakeQuerier{err: metrics.ErrUnavailable}

	result := NewPredictor(clusterProfile(), q, testOptions()).Predict(context.Background())

	assert.False(t, result.DataAvailable)
	assert.Empty(t, result.Error)
}
