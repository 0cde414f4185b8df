package commands

import (
	"github.com/moolen/vigil/internal/cluster"
	"github.com/moolen/vigil/internal/endpoints"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/moolen/vigil/internal/report"
	"github.com/spf13/cobra"
)

var detectOutput string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the execution environment and print setup instructions",
	Args:  cobra.NoArgs,
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", "text", "Output format: text, json or yaml")
}

func runDetect(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(detectOutput)
	if err != nil {
		return err
	}

	deps := pipeline.SystemDeps(cluster.Options{
		Kubeconfig: kubeconfig,
		Context:    kubeContext,
		Timeout:    cfg.ClusterTimeout(),
	})
	profile := environment.NewClassifier(deps.Host, environment.Options{
		Simulation:   cfg.Simulation,
		ProbeTimeout: cfg.ProbeTimeout,
	}).Detect(cmd.Context())

	detection := report.Detection{
		Profile: profile.Data(),
		Endpoints: endpoints.Resolve(profile, endpoints.Overrides{
			environment.EndpointMetrics:   cfg.MetricsURL,
			environment.EndpointDashboard: cfg.DashboardURL,
		}),
		Instructions: environment.Instructions(profile),
	}

	if format == report.FormatText {
		report.NewPrinter(cmd.OutOrStdout()).RenderDetect(detection)
		return nil
	}
	return report.Encode(cmd.OutOrStdout(), detection, format)
}
