package analysis

import (
	"fmt"
)

var simulatedRoles = []string{"frontend", "backend", "api", "worker"}

// analyzeSimulated fills snap with a generated dataset. Every unit and record
// is marked synthetic.
func (a *HealthAnalyzer) analyzeSimulated(snap *HealthSnapshot) {
	seed := a.seed()
	rng := newRand(seed)
	snap.Synthetic = true

	lo, hi := a.opts.SimulationMinUnits, a.opts.SimulationMaxUnits
	n := lo + rng.IntN(hi-lo+1)

	ready := 0
	for i := range n {
		name := fmt.Sprintf("app-%s-%d", simulatedRoles[rng.IntN(len(simulatedRoles))], 1000+rng.IntN(9000))
		if _, exists := snap.Units[name]; exists {
			// Suffixed names never collide with each other or with unsuffixed ones.
			name = fmt.Sprintf("%s-%d", name, i)
		}

		u := WorkloadUnit{
			Name:       name,
			Phase:      PhaseRunning,
			Ready:      rng.Float64() > 0.1,
			AgeMinutes: 10 + rng.IntN(1431),
			Synthetic:  true,
		}
		if u.Ready {
			u.RiskScore = float64(rng.IntN(31))
			ready++
		} else {
			u.Phase = []Phase{PhasePending, PhaseFailed}[rng.IntN(2)]
			u.RestartCount = rng.IntN(3)
			u.RiskScore = float64(40 + rng.IntN(41))
			u.Issues = []string{"ImagePullBackOff: Failed to pull image"}
		}
		snap.Units[name] = u
	}

	snap.Score = float64(ready * 100 / n)

	snap.Insights = append(snap.Insights,
		syntheticInsight(NewInsight(InsightSimulationMode,
			"Running in simulation mode - data is generated for demonstration", 1.0, "info")),
		syntheticInsight(NewInsight(InsightEnvironmentDetected,
			fmt.Sprintf("Environment auto-detected as %s", a.profile), 1.0, "info")),
	)

	if snap.Score < 90 {
		p := NewPrediction(PredictionPerformanceTrend,
			"Simulated performance trending stable with minor fluctuations expected", 0.75, "next 30 minutes")
		p.Synthetic = true
		snap.Predictions = append(snap.Predictions, p)
	}

	snap.Recommendations = append(snap.Recommendations,
		Recommendation{
			Priority:        "info",
			Action:          "simulation_validation",
			Description:     "Simulation mode exercises the pipeline without infrastructure",
			EstimatedImpact: "educational",
			Synthetic:       true,
		},
		Recommendation{
			Priority:        "medium",
			Action:          "setup_real_monitoring",
			Description:     "Configure real monitoring endpoints for production use",
			EstimatedImpact: "high",
			Synthetic:       true,
		},
	)

	snap.Traceability = append(snap.Traceability, TraceRecord{
		Source:         "simulation_engine",
		Timestamp:      a.opts.Now(),
		PipelineID:     a.opts.Labels.PipelineID,
		RunID:          snap.RunID,
		DataPoints:     len(snap.Units),
		SimulationSeed: seed,
	})
}

func syntheticInsight(in Insight) Insight {
	in.Synthetic = true
	return in
}
