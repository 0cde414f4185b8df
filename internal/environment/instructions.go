package environment

import "fmt"

// SetupInstructions tells an operator how to get the most out of the detected environment.
type SetupInstructions struct {
	Environment     string            `json:"environment" yaml:"environment"`
	Complexity      string            `json:"complexity" yaml:"complexity"`
	Approach        string            `json:"approach" yaml:"approach"`
	Steps           []string          `json:"steps" yaml:"steps"`
	RequiredSecrets map[string]string `json:"required_secrets" yaml:"required_secrets"`
	OptionalConfig  map[string]string `json:"optional_configs" yaml:"optional_configs"`
	ExampleUsage    string            `json:"example_usage" yaml:"example_usage"`
}

// Instructions derives setup instructions from a profile.
func Instructions(p Profile) SetupInstructions {
	data := p.Data()
	return SetupInstructions{
		Environment:     p.String(),
		Complexity:      data.Complexity,
		Approach:        data.Approach,
		Steps:           data.NextSteps,
		RequiredSecrets: requiredSecrets(p),
		OptionalConfig: map[string]string{
			"TELEGRAM_BOT_TOKEN":          "For notifications (optional)",
			"TELEGRAM_CHAT_ID":            "For notifications (optional)",
			"NAMESPACE":                   "Kubernetes namespace to monitor (default: default)",
			"AI_OBSERVABILITY_SIMULATION": "Enable simulation mode (true/false)",
			"PUSHGATEWAY_URL":             "Push run metrics to a Prometheus Pushgateway (optional)",
		},
		ExampleUsage: exampleUsage(p),
	}
}

func requiredSecrets(p Profile) map[string]string {
	secrets := map[string]string{
		"BEDROCK_REGION":   "AWS region for Bedrock (e.g., us-east-1)",
		"BEDROCK_MODEL_ID": "Bedrock model ID (e.g., us.anthropic.claude-sonnet-4-20250514-v1:0)",
	}

	switch p.CloudProvider() {
	case CloudAWS:
		secrets["AWS_ACCESS_KEY_ID"] = "AWS access key (or use IAM roles)"
		secrets["AWS_SECRET_ACCESS_KEY"] = "AWS secret key (or use IAM roles)"
	case CloudGCP:
		secrets["GOOGLE_APPLICATION_CREDENTIALS"] = "Path to GCP service account key"
	case CloudAzure:
		secrets["AZURE_CLIENT_ID"] = "Azure client ID"
		secrets["AZURE_CLIENT_SECRET"] = "Azure client secret"
		secrets["AZURE_TENANT_ID"] = "Azure tenant ID"
	}

	if !p.ClusterReachable() {
		secrets["PROM_URL"] = "External Prometheus URL (optional)"
		secrets["GRAFANA_URL"] = "External Grafana URL (optional)"
	}
	return secrets
}

func exampleUsage(p Profile) string {
	switch p.Kind() {
	case KindCIPlatform:
		return `# Example GitHub Actions step
- name: Observability gate
  run: vigil check
  env:
    NAMESPACE: production
    CI_ENVIRONMENT: prod
    BLOCKING_MODE: "true"
    AWS_ACCESS_KEY_ID: ${{ secrets.AWS_ACCESS_KEY_ID }}
    AWS_SECRET_ACCESS_KEY: ${{ secrets.AWS_SECRET_ACCESS_KEY }}
    BEDROCK_REGION: us-east-1
    BEDROCK_MODEL_ID: us.anthropic.claude-sonnet-4-20250514-v1:0
`
	case KindSimulated, KindUnknown:
		return `# Example simulation step
- name: Observability gate (simulation)
  run: vigil check
  env:
    NAMESPACE: test
    CI_ENVIRONMENT: simulation
    AI_OBSERVABILITY_SIMULATION: "true"
    NARRATIVE_PROVIDER: none
`
	default:
		return fmt.Sprintf(`# Example for %s
vigil check --namespace production --environment prod
`, p.String())
	}
}
