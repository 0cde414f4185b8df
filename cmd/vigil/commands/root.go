package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/moolen/vigil/internal/config"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/pipeline"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configFile    string
	envFile       string
	kubeconfig    string
	kubeContext   string

	// cfg is loaded once in PersistentPreRunE and shared by all subcommands
	cfg *config.Config

	// exitCode is what the process exits with after a successful command run
	exitCode = pipeline.ExitPass
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "vigil - deployment health gate for CI/CD pipelines",
	Long: `vigil detects where it runs (CI runner, cloud or local Kubernetes, container
runtime or simulation), analyzes workload health and metrics, explains failures
and decides whether a deployment may proceed.

Exit codes: 0 pass, 1 blocked, 2 internal error.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return pipeline.ExitError
	}
	return exitCode
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level environment=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level environment=debug --log-level analysis=warn")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig (default $KUBECONFIG or ~/.kube/config)")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "context", "", "Kubeconfig context to use")

	rootCmd.PersistentFlags().String("namespace", "", "Namespace to analyze (env NAMESPACE)")
	rootCmd.PersistentFlags().String("metrics-url", "", "Metrics backend URL override (env PROM_URL)")
	rootCmd.PersistentFlags().String("dashboard-url", "", "Dashboard URL override (env GRAFANA_URL)")
	rootCmd.PersistentFlags().Bool("simulation", false, "Force simulation mode (env AI_OBSERVABILITY_SIMULATION)")
	rootCmd.PersistentFlags().String("narrative-provider", "", "Narrative backend: bedrock, anthropic, gemini or none (env NARRATIVE_PROVIDER)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(chaosCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	loaded, err := config.Load(config.LoadOptions{
		ConfigFile: configFile,
		EnvFile:    envFile,
	})
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, loaded); err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"namespace":          &c.Namespace,
		"metrics-url":        &c.MetricsURL,
		"dashboard-url":      &c.DashboardURL,
		"narrative-provider": &c.NarrativeProvider,
	}
	for name, dst := range stringFlags {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	boolFlags := map[string]*bool{
		"simulation": &c.Simulation,
		"blocking":   &c.BlockingMode,
	}
	for name, dst := range boolFlags {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	if flags.Lookup("threshold") != nil && flags.Changed("threshold") {
		v, err := flags.GetFloat64("threshold")
		if err != nil {
			return err
		}
		c.BlockingThreshold = v
	}
	return nil
}

// setupLog initializes the logging system with parsed log level flags
// Priority: CLI flags > Environment variables > default
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags, os.Environ())
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags parses CLI flags and LOG_LEVEL_* environment variables.
//
// CLI format: ["debug"], ["default=info", "analysis=debug"], or ["info"]
// Env vars: LOG_LEVEL_ANALYSIS_ANOMALY=debug (package name uppercased, dots to underscores)
func parseLogLevelFlags(flags, environ []string) (string, map[string]string, error) {
	result := make(map[string]string)

	for _, envPair := range environ {
		if !strings.HasPrefix(envPair, "LOG_LEVEL_") {
			continue
		}
		parts := strings.SplitN(envPair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		result[convertEnvKeyToPackageName(parts[0])] = parts[1]
	}

	for _, flag := range flags {
		if !strings.Contains(flag, "=") {
			result["default"] = flag
			continue
		}
		parts := strings.SplitN(flag, "=", 2)
		result[parts[0]] = parts[1]
	}

	defaultLevel := "info"
	if level, exists := result["default"]; exists {
		defaultLevel = level
		delete(result, "default")
	}

	if err := validateLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range result {
		if err := validateLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}

	return defaultLevel, result, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_ANALYSIS_ANOMALY -> analysis.anomaly
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func validateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
	}
	return nil
}
