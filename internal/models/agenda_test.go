package models

import (
	"testing"
)

func TestItemStatus_CanAdvanceTo(t *testing.T) {
	tests := []struct {
		name     string
		from     ItemStatus
		to       ItemStatus
		expected bool
	}{
		{"not-started to in-progress", StatusNotStarted, StatusInProgress, true},
		{"not-started to covered", StatusNotStarted, StatusCovered, true},
		{"in-progress to covered", StatusInProgress, StatusCovered, true},
		{"covered to in-progress regression", StatusCovered, StatusInProgress, false},
		{"in-progress to not-started regression", StatusInProgress, StatusNotStarted, false},
		{"covered to not-started regression", StatusCovered, StatusNotStarted, false},
		{"same status is a no-op", StatusInProgress, StatusInProgress, false},
		{"not-started to skipped", StatusNotStarted, StatusSkipped, true},
		{"in-progress to skipped", StatusInProgress, StatusSkipped, true},
		{"covered to skipped", StatusCovered, StatusSkipped, false},
		{"skipped is terminal", StatusSkipped, StatusInProgress, false},
		{"skipped to covered", StatusSkipped, StatusCovered, false},
		{"unknown proposed status", StatusNotStarted, ItemStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.expected {
				t.Errorf("CanAdvanceTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestPromptPriority_Rank(t *testing.T) {
	if PriorityHigh.Rank() <= PriorityMedium.Rank() {
		t.Error("high priority should outrank medium")
	}
	if PriorityMedium.Rank() <= PriorityLow.Rank() {
		t.Error("medium priority should outrank low")
	}
	if PromptPriority("bogus").Rank() != 0 {
		t.Error("unknown priority should rank zero")
	}
}

func TestItemStatus_IsValid(t *testing.T) {
	for _, s := range []ItemStatus{StatusNotStarted, StatusInProgress, StatusCovered, StatusSkipped} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if ItemStatus("done").IsValid() {
		t.Error("unknown status should not be valid")
	}
}
