// Package anomaly classifies Kubernetes events by how likely they are to break workloads.
package anomaly

// Severity indicates the impact level of an anomaly
type Severity string

const (
	SeverityLow      Severity = "low"      // Informational or historical
	SeverityMedium   Severity = "medium"   // Potential contributor
	SeverityHigh     Severity = "high"     // Likely contributor
	SeverityCritical Severity = "critical" // Actively breaking workloads
)

// Rank orders severities, higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// EventSeverityMap maps Kubernetes event reasons to their severity levels
var EventSeverityMap = map[string]Severity{
	// Critical - actively breaking workloads
	"FailedScheduling":         SeverityCritical,
	"FailedMount":              SeverityCritical,
	"FailedAttachVolume":       SeverityCritical,
	"FailedCreatePodSandBox":   SeverityCritical,
	"FailedCreatePodContainer": SeverityCritical,
	"NetworkNotReady":          SeverityCritical,
	"ImageNotFound":            SeverityCritical,
	"RegistryAuthFailed":       SeverityCritical,

	// High - likely contributors
	"BackOff":            SeverityHigh,
	"CrashLoopBackOff":   SeverityHigh,
	"ImagePullBackOff":   SeverityHigh,
	"ErrImagePull":       SeverityHigh,
	"Failed":             SeverityHigh,
	"FailedCreate":       SeverityHigh,
	"OOMKilled":          SeverityHigh,
	"OOMKilling":         SeverityHigh,
	"NodeNotReady":       SeverityHigh,
	"Unhealthy":          SeverityHigh,
	"FailedSync":         SeverityHigh,
	"FailedValidation":   SeverityHigh,
	"Evicted":            SeverityHigh,
	"Forbidden":          SeverityHigh,
	"ProbeError":         SeverityHigh,
	"VolumeOutOfSpace":   SeverityHigh,
	"ReadOnlyFilesystem": SeverityHigh,

	// Medium - potential contributors
	"Killing":             SeverityMedium,
	"Preempting":          SeverityMedium,
	"FreeDiskSpaceFailed": SeverityMedium,
	"InsufficientMemory":  SeverityMedium,
	"InsufficientCPU":     SeverityMedium,
	"FailedGetScale":      SeverityMedium,

	// Low - informational
	"Pulled":            SeverityLow,
	"Scheduled":         SeverityLow,
	"Started":           SeverityLow,
	"Created":           SeverityLow,
	"ScalingReplicaSet": SeverityLow,
	"SuccessfulCreate":  SeverityLow,
	"SuccessfulDelete":  SeverityLow,
	"SuccessfulUpdate":  SeverityLow,
}

// ClassifyEventSeverity returns the severity for an event reason
func ClassifyEventSeverity(reason string) Severity {
	if severity, ok := EventSeverityMap[reason]; ok {
		return severity
	}
	// Default to medium for unknown event reasons
	return SeverityMedium
}

var benignReasons = map[string]bool{
	"ScalingReplicaSet":     true,
	"SuccessfulCreate":      true,
	"SuccessfulDelete":      true,
	"Scheduled":             true,
	"Pulling":               true,
	"Pulled":                true,
	"Created":               true,
	"Started":               true,
	"NoPods":                true, // Informational, not an error
	"ProvisioningSucceeded": true,
}

// IsBenignEventReason checks if an event reason is a normal operational event
func IsBenignEventReason(reason string) bool {
	return benignReasons[reason]
}
