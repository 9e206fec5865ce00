package models

import (
	"strings"
	"testing"
)

func testItems() []AgendaItem {
	return []AgendaItem{
		{ID: "item_1", Title: "Budget Allocation", Status: StatusNotStarted},
		{ID: "item_2", Title: "Timeline & Deadlines", Status: StatusNotStarted},
	}
}

func TestAnalysisResult_ValidateAccepts(t *testing.T) {
	result := AnalysisResult{
		CurrentTopic:    "Budget Allocation",
		ItemsInProgress: []string{"item_1"},
		ItemsMissed:     []string{"item_2"},
		Prompts: []PromptCandidate{
			{
				Type:          PromptMissing,
				Message:       "Shall we circle back to the timeline?",
				RelatedItemID: "Timeline & Deadlines",
				Priority:      PriorityMedium,
			},
		},
	}

	if err := result.Validate(testItems()); err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}
}

func TestAnalysisResult_ValidateRejects(t *testing.T) {
	goodPrompt := PromptCandidate{
		Type:          PromptExpand,
		Message:       "Want to dig into the budget details?",
		RelatedItemID: "Budget Allocation",
		Priority:      PriorityLow,
	}

	tests := []struct {
		name    string
		result  AnalysisResult
		wantErr string
	}{
		{
			name:    "unknown id in covered set",
			result:  AnalysisResult{ItemsCovered: []string{"item_99"}},
			wantErr: "unknown item id",
		},
		{
			name:    "unknown id in missed set",
			result:  AnalysisResult{ItemsMissed: []string{"nope"}},
			wantErr: "unknown item id",
		},
		{
			name: "too many prompts",
			result: AnalysisResult{Prompts: []PromptCandidate{
				goodPrompt,
				{Type: PromptMissing, Message: "a", RelatedItemID: "Budget Allocation", Priority: PriorityLow},
				{Type: PromptMissing, Message: "b", RelatedItemID: "Budget Allocation", Priority: PriorityLow},
			}},
			wantErr: "prompts",
		},
		{
			name: "empty prompt message",
			result: AnalysisResult{Prompts: []PromptCandidate{
				{Type: PromptMissing, Message: "   ", RelatedItemID: "Budget Allocation", Priority: PriorityLow},
			}},
			wantErr: "empty message",
		},
		{
			name: "unknown prompt type",
			result: AnalysisResult{Prompts: []PromptCandidate{
				{Type: PromptType("nudge"), Message: "hi", RelatedItemID: "Budget Allocation", Priority: PriorityLow},
			}},
			wantErr: "unknown type",
		},
		{
			name: "unknown priority",
			result: AnalysisResult{Prompts: []PromptCandidate{
				{Type: PromptMissing, Message: "hi", RelatedItemID: "Budget Allocation", Priority: PromptPriority("urgent")},
			}},
			wantErr: "unknown priority",
		},
		{
			name: "prompt title matches no item",
			result: AnalysisResult{Prompts: []PromptCandidate{
				{Type: PromptMissing, Message: "hi", RelatedItemID: "Roadmap", Priority: PriorityHigh},
			}},
			wantErr: "unknown item title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate(testItems())
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}
