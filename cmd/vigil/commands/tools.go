package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/moolen/vigil/internal/pipeline"
	"github.com/moolen/vigil/internal/report"
	"github.com/spf13/cobra"
)

var (
	toolArgs   map[string]string
	toolOutput string
)

var toolsCmd = &cobra.Command{
	Use:   "tools [name]",
	Short: "Run a single tool once and print its result",
	Long: `Run one of the analysis tools once, outside of a full check. Without a
name the available tools are listed.

Examples:
  vigil tools analyze_system_health
  vigil tools explain_failure_with_context --arg failure_description="502 on checkout"
  vigil tools send_cicd_notification --arg message="hello" --arg severity=info`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTool,
}

func init() {
	toolsCmd.Flags().StringToStringVar(&toolArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	toolsCmd.Flags().StringVarP(&toolOutput, "output", "o", "json", "Output format: json or yaml")
}

func runTool(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, name := range pipeline.ToolNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	name := args[0]
	if !slices.Contains(pipeline.ToolNames(), name) {
		return fmt.Errorf("unknown tool %q (known: %s)", name, strings.Join(pipeline.ToolNames(), ", "))
	}
	format, err := report.ParseFormat(toolOutput)
	if err != nil {
		return err
	}
	if format == report.FormatText {
		format = report.FormatJSON
	}

	rt, err := startRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.stop()

	tb, err := pipeline.NewToolbox(cmd.Context(), cfg, rt.deps)
	if err != nil {
		return err
	}

	callArgs := make(map[string]any, len(toolArgs))
	for k, v := range toolArgs {
		callArgs[k] = v
	}
	result, err := tb.Call(cmd.Context(), name, callArgs)
	if err != nil {
		return err
	}
	return report.Encode(cmd.OutOrStdout(), result, format)
}
