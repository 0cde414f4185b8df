package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/moolen/vigil/internal/report"
	"github.com/spf13/cobra"
)

var checkOutput string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the deployment health check",
	Long: `Detect the environment, analyze workload health, explain critical issues,
optionally narrate and notify, then exit with the gate decision:

  0  health acceptable, non-blocking mode, or simulation
  1  blocked: critical units or health score below threshold
  2  the check itself failed`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "text", "Output format: text, json or yaml")
	checkCmd.Flags().Bool("blocking", true, "Fail the pipeline on critical issues (env BLOCKING_MODE)")
	checkCmd.Flags().Float64("threshold", 70, "Minimum acceptable health score")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(checkOutput)
	if err != nil {
		return err
	}
	logger := logging.GetLogger("check")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := startRuntime(ctx)
	if err != nil {
		exitCode = pipeline.ExitError
		logger.Error("Failed to start: %v", err)
		return nil
	}
	defer rt.stop()

	res := pipeline.New(cfg, rt.deps).Run(ctx)
	exitCode = res.Verdict.ExitCode

	out := cmd.OutOrStdout()
	if format == report.FormatText {
		report.NewPrinter(out).RenderCheck(res)
		return nil
	}
	if err := report.Encode(out, res, format); err != nil {
		logger.Error("Failed to write report: %v", err)
		exitCode = pipeline.ExitError
	}
	return nil
}
