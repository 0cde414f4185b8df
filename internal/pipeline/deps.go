package pipeline

import (
	"time"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/cluster"
	"github.com/moolen/vigil/internal/config"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/metrics"
	"github.com/moolen/vigil/internal/narrative"
	"github.com/moolen/vigil/internal/notify"
	"github.com/moolen/vigil/internal/telemetry"
)

// Deps are the collaborators of a run. Nil fields are built from the config.
type Deps struct {
	Host    environment.Host
	Source  analysis.Source
	Querier metrics.Querier

	Narrator narrative.Generator
	Notifier notify.Sender
	Metrics  *telemetry.RunMetrics

	// Seed fixes simulated data; zero is time based.
	Seed uint64
	Now  func() time.Time
}

// SystemDeps connects to the cluster described by opts. A cluster that cannot
// be configured leaves Source nil and the host without a cluster.
func SystemDeps(opts cluster.Options) Deps {
	client, err := cluster.New(opts)
	if err != nil {
		logging.GetLogger("pipeline").Debug("No Kubernetes client: %v", err)
		return Deps{Host: environment.NewSystemHost(nil)}
	}
	return Deps{
		Host:   environment.NewSystemHost(client),
		Source: client,
	}
}

func (d Deps) withDefaults(cfg *config.Config) Deps {
	if d.Host == nil {
		d.Host = environment.NewSystemHost(nil)
	}
	if d.Metrics == nil {
		d.Metrics = telemetry.NewRunMetrics(cfg.PushgatewayURL, cfg.PipelineID)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}
