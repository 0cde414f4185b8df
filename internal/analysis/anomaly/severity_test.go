package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func TestClassifyEventSeverity(t *testing.T) {
	tests := []struct {
		reason           string
		expectedSeverity Severity
	}{
		{"FailedScheduling", SeverityCritical},
		{"BackOff", SeverityHigh},
		{"Evicted", SeverityHigh},
		{"Pulled", SeverityLow},
		{"UnknownReason", SeverityMedium}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			result := ClassifyEventSeverity(tt.reason)
			assert.Equal(t, tt.expectedSeverity, result,
				"ClassifyEventSeverity(%q) = %v, want %v",
				tt.reason, result, tt.expectedSeverity)
		})
	}
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
}

func warning(name, reason string, count int32) corev1.Event {
	return corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name + "." + reason},
		Type:           corev1.EventTypeWarning,
		Reason:         reason,
		Count:          count,
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: name},
	}
}

func TestDetectEventAnomalies(t *testing.T) {
	events := []corev1.Event{
		warning("api-1", "BackOff", 3),
		warning("api-2", "BackOff", 0),
		warning("api-1", "BackOff", 1),
		warning("db-0", "FailedScheduling", 1),
		warning("api-1", "Pulled", 1),
		{Type: corev1.EventTypeNormal, Reason: "Killing"},
	}

	got := DetectEventAnomalies(events)

	if assert.Len(t, got, 2) {
		assert.Equal(t, "FailedScheduling", got[0].Reason)
		assert.Equal(t, SeverityCritical, got[0].Severity)

		assert.Equal(t, "BackOff", got[1].Reason)
		assert.Equal(t, 5, got[1].Count)
		assert.Equal(t, []string{"Pod/api-1", "Pod/api-2"}, got[1].Objects)
		assert.Equal(t, "5 BackOff warning(s) on 2 object(s)", got[1].Summary)
	}
}

func TestDetectEventAnomalies_Empty(t *testing.T) {
	assert.Empty(t, DetectEventAnomalies(nil))
}
