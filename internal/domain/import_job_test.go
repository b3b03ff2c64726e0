package domain

import (
	"testing"
)

// TestCanTransition verifies the job state machine accepts exactly the legal edges
func TestCanTransition(t *testing.T) {
	testCases := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{name: "pending to analyzing", from: JobStatusPending, to: JobStatusAnalyzing, want: true},
		{name: "analyzing to pending_review", from: JobStatusAnalyzing, to: JobStatusPendingReview, want: true},
		{name: "analyzing to failed", from: JobStatusAnalyzing, to: JobStatusFailed, want: true},
		{name: "pending_review to processing", from: JobStatusPendingReview, to: JobStatusProcessing, want: true},
		{name: "processing to completed", from: JobStatusProcessing, to: JobStatusCompleted, want: true},
		{name: "processing to failed", from: JobStatusProcessing, to: JobStatusFailed, want: true},
		{name: "pending straight to processing", from: JobStatusPending, to: JobStatusProcessing, want: false},
		{name: "pending to failed", from: JobStatusPending, to: JobStatusFailed, want: false},
		{name: "pending_review to completed", from: JobStatusPendingReview, to: JobStatusCompleted, want: false},
		{name: "pending_review back to analyzing", from: JobStatusPendingReview, to: JobStatusAnalyzing, want: false},
		{name: "completed is terminal", from: JobStatusCompleted, to: JobStatusPending, want: false},
		{name: "failed is terminal", from: JobStatusFailed, to: JobStatusAnalyzing, want: false},
		{name: "self transition rejected", from: JobStatusProcessing, to: JobStatusProcessing, want: false},
		{name: "unknown status", from: JobStatus("bogus"), to: JobStatusAnalyzing, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestTerminalJobStatus(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed}
	for _, status := range terminal {
		if !TerminalJobStatus(status) {
			t.Errorf("TerminalJobStatus(%s) = false, want true", status)
		}
	}

	active := []JobStatus{JobStatusPending, JobStatusAnalyzing, JobStatusPendingReview, JobStatusProcessing}
	for _, status := range active {
		if TerminalJobStatus(status) {
			t.Errorf("TerminalJobStatus(%s) = true, want false", status)
		}
	}
}

func TestValidImportMode(t *testing.T) {
	for _, mode := range []ImportMode{ImportModeSafe, ImportModeBalanced, ImportModeTurbo} {
		if !ValidImportMode(mode) {
			t.Errorf("ValidImportMode(%s) = false, want true", mode)
		}
	}
	for _, mode := range []ImportMode{"", "fast", "TURBO"} {
		if ValidImportMode(mode) {
			t.Errorf("ValidImportMode(%q) = true, want false", mode)
		}
	}
}
