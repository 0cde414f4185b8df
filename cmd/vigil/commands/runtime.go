package commands

import (
	"context"
	"fmt"

	"github.com/moolen/vigil/internal/cluster"
	"github.com/moolen/vigil/internal/lifecycle"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/moolen/vigil/internal/telemetry"
)

// runtime bundles the collaborators and background components of a command.
type runtime struct {
	deps    pipeline.Deps
	manager *lifecycle.Manager
}

// startRuntime connects to the cluster and starts tracing and run metrics.
// The caller must call stop.
func startRuntime(ctx context.Context) (*runtime, error) {
	deps := pipeline.SystemDeps(cluster.Options{
		Kubeconfig: kubeconfig,
		Context:    kubeContext,
		Timeout:    cfg.ClusterTimeout(),
	})

	tracing, err := telemetry.NewTracing(telemetry.TracingConfig{
		Endpoint:    cfg.TracingEndpoint,
		TLSInsecure: cfg.TracingInsecure,
		Version:     Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	deps.Metrics = telemetry.NewRunMetrics(cfg.PushgatewayURL, cfg.PipelineID)

	manager := lifecycle.NewManager()
	// Stop runs in reverse order: metrics are pushed before the tracer flushes.
	for _, c := range []lifecycle.Component{tracing, deps.Metrics} {
		if err := manager.Register(c); err != nil {
			return nil, err
		}
	}
	if err := manager.Start(ctx); err != nil {
		return nil, err
	}
	return &runtime{deps: deps, manager: manager}, nil
}

func (r *runtime) stop() {
	r.manager.Stop(context.Background())
}
