package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/report"
	"github.com/spf13/cobra"
)

var chaosOutput string

var chaosCmd = &cobra.Command{
	Use:   "chaos <scenario>",
	Short: "Print the plan for a chaos scenario",
	Long: fmt.Sprintf(`Print the expected impacts, monitoring points and success criteria of a
chaos scenario. Nothing is injected into the cluster.

Scenarios: %s`, strings.Join(analysis.ChaosScenarioNames(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: analysis.ChaosScenarioNames(),
	RunE:      runChaos,
}

func init() {
	chaosCmd.Flags().StringVarP(&chaosOutput, "output", "o", "text", "Output format: text, json or yaml")
}

func runChaos(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(chaosOutput)
	if err != nil {
		return err
	}
	plan, err := analysis.PlanChaos(args[0], time.Now().UTC())
	if err != nil {
		return err
	}

	if format == report.FormatText {
		report.NewPrinter(cmd.OutOrStdout()).RenderChaos(plan)
		return nil
	}
	return report.Encode(cmd.OutOrStdout(), plan, format)
}
