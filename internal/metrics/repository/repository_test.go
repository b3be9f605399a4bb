package repository

import (
	"strings"
	"testing"
)

// The overview average measures creation-to-answer latency over every lead
// that got an answer, including rejected ones. Rejection sets responded_at,
// so the filter must be on responded_at alone, never on status.
func TestOverviewResponseTimeMeasuredFromCreation(t *testing.T) {
	if !strings.Contains(overviewLeadQuery, "responded_at - created_at") {
		t.Fatalf("overview average must measure from lead creation:\n%s", overviewLeadQuery)
	}
	if strings.Contains(overviewLeadQuery, "responded_at - reserved_at") {
		t.Fatalf("overview average must not measure from reservation:\n%s", overviewLeadQuery)
	}

	idx := strings.Index(overviewLeadQuery, "AVG(")
	if idx < 0 {
		t.Fatalf("overview query has no average:\n%s", overviewLeadQuery)
	}
	avgFilter := overviewLeadQuery[idx:]
	if end := strings.Index(avgFilter, "::BIGINT"); end >= 0 {
		avgFilter = avgFilter[:end]
	}
	if !strings.Contains(avgFilter, "responded_at IS NOT NULL") {
		t.Fatalf("overview average must cover responded leads:\n%s", avgFilter)
	}
	if strings.Contains(avgFilter, "status") {
		t.Fatalf("overview average must not restrict by status, rejected responders count:\n%s", avgFilter)
	}
}
