package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/metrics"
)

// Trend directions
const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
)

// TrendChangeThreshold is the minimum absolute percent change that yields a prediction.
const TrendChangeThreshold = 20.0

// TrendPrediction reports a significant change in a metric series.
type TrendPrediction struct {
	Metric        string  `json:"metric"`
	Direction     string  `json:"trend"`
	ChangePercent float64 `json:"change_percent"`
	Confidence    float64 `json:"confidence"`
	Message       string  `json:"prediction"`
}

// PredictTrend compares the mean of the last three samples with the mean of
// the rest. It returns nil for fewer than three samples and for changes of at
// most TrendChangeThreshold percent. A non-positive baseline counts as no change.
func PredictTrend(metric string, values []float64) *TrendPrediction {
	if len(values) < 3 {
		return nil
	}

	recent := values[len(values)-3:]
	older := values[:len(values)-3]
	if len(older) == 0 {
		older = recent
	}

	recentAvg := mean(recent)
	olderAvg := mean(older)

	change := 0.0
	if olderAvg > 0 {
		change = (recentAvg - olderAvg) / olderAvg * 100
	}
	if math.IsNaN(change) || math.IsInf(change, 0) || math.Abs(change) <= TrendChangeThreshold {
		return nil
	}

	direction := DirectionIncreasing
	if change < 0 {
		direction = DirectionDecreasing
	}
	abs := math.Abs(change)

	return &TrendPrediction{
		Metric:        metric,
		Direction:     direction,
		ChangePercent: abs,
		Confidence:    math.Min(0.9, abs/50),
		Message:       fmt.Sprintf("%s trending %s by %.1f%%", metric, direction, abs),
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ProactiveAction is a recommendation derived from a trend.
type ProactiveAction struct {
	Action          string `json:"action"`
	Description     string `json:"description"`
	Urgency         string `json:"urgency"`
	TimeToImplement string `json:"time_to_implement"`
}

// BehaviorPrediction is the output of one prediction pass.
type BehaviorPrediction struct {
	Timestamp          time.Time         `json:"timestamp"`
	Window             string            `json:"window"`
	SeriesAnalyzed     map[string]int    `json:"series_analyzed"`
	Predictions        []TrendPrediction `json:"predictions"`
	RecommendedActions []ProactiveAction `json:"recommended_actions"`
	DataAvailable      bool              `json:"data_available"`
	Synthetic          bool              `json:"synthetic,omitempty"`
	Error              string            `json:"error,omitempty"`
}

// Predictor runs trend analysis over recent metric history.
type Predictor struct {
	profile environment.Profile
	metrics metrics.Querier
	opts    Options
	window  time.Duration
	step    time.Duration
	logger  *logging.Logger
}

// NewPredictor looks back one hour at five minute resolution.
func NewPredictor(profile environment.Profile, querier metrics.Querier, opts Options) *Predictor {
	if querier == nil {
		querier = metrics.Disabled{}
	}
	return &Predictor{
		profile: profile,
		metrics: querier,
		opts:    opts.withDefaults(),
		window:  time.Hour,
		step:    5 * time.Minute,
		logger:  logging.GetLogger("analysis.trend"),
	}
}

// Predict never fails; series that cannot be fetched are skipped.
func (p *Predictor) Predict(ctx context.Context) (result BehaviorPrediction) {
	now := p.opts.Now()
	result = BehaviorPrediction{
		Timestamp:          now,
		Window:             p.window.String(),
		SeriesAnalyzed:     map[string]int{},
		Predictions:        []TrendPrediction{},
		RecommendedActions: []ProactiveAction{},
		Synthetic:          p.profile.Kind().Synthetic(),
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Prediction panicked: %v", r)
			result.Error = fmt.Sprintf("%v", r)
		}
	}()

	if !p.metrics.Available() {
		return result
	}

	for _, q := range metrics.TrendQueries(p.opts.Namespace) {
		samples, err := p.metrics.Range(ctx, q.Expr, now.Add(-p.window), now, p.step)
		if err != nil {
			p.logger.Debug("Range query %s failed: %v", q.Name, err)
			continue
		}
		if len(samples) == 0 {
			continue
		}
		result.DataAvailable = true
		result.SeriesAnalyzed[q.Name] = len(samples)

		if pred := PredictTrend(q.Name, metrics.Values(samples)); pred != nil {
			result.Predictions = append(result.Predictions, *pred)
		}
	}

	result.RecommendedActions = proactiveActions(result.Predictions)
	return result
}

func proactiveActions(predictions []TrendPrediction) []ProactiveAction {
	actions := []ProactiveAction{}
	for _, pred := range predictions {
		if pred.Direction != DirectionIncreasing {
			continue
		}
		switch {
		case strings.Contains(pred.Metric, "cpu"):
			actions = append(actions, ProactiveAction{
				Action:          "scale_up_cpu",
				Description:     "CPU usage trending up - consider horizontal pod autoscaling",
				Urgency:         "medium",
				TimeToImplement: "5 minutes",
			})
		case strings.Contains(pred.Metric, "memory"):
			actions = append(actions, ProactiveAction{
				Action:          "investigate_memory_leak",
				Description:     "Memory usage increasing - check for memory leaks",
				Urgency:         "high",
				TimeToImplement: "immediate",
			})
		}
	}
	return actions
}
