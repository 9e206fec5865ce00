package models

import (
	"fmt"
	"strings"
)

// MaxPromptsPerResult caps how many candidate prompts a single analysis result
// may carry. Results that exceed it fail validation and are discarded whole.
const MaxPromptsPerResult = 2

// PromptCandidate is an analysis-suggested prompt before admission.
// RelatedItemID references the agenda item by TITLE (see Prompt).
type PromptCandidate struct {
	Type          PromptType     `json:"type"`
	Message       string         `json:"message"`
	RelatedItemID string         `json:"related_item_id"`
	Priority      PromptPriority `json:"priority"`
}

// AnalysisResult is the structured output of one analysis cycle. The status
// sets reference items by id; prompt candidates reference items by title.
type AnalysisResult struct {
	CurrentTopic    string            `json:"current_topic"`
	ItemsInProgress []string          `json:"items_in_progress"`
	ItemsCovered    []string          `json:"items_covered"`
	ItemsMissed     []string          `json:"items_missed"`
	Prompts         []PromptCandidate `json:"prompts"`
}

// Validate checks the result against the session's agenda before it is
// applied. Any deviation rejects the entire result: a wrong inference is
// worse than a missing one, so nothing is applied partially.
func (r *AnalysisResult) Validate(items []AgendaItem) error {
	knownIDs := make(map[string]struct{}, len(items))
	knownTitles := make(map[string]struct{}, len(items))
	for _, item := range items {
		knownIDs[item.ID] = struct{}{}
		knownTitles[item.Title] = struct{}{}
	}

	for _, set := range [][]string{r.ItemsInProgress, r.ItemsCovered, r.ItemsMissed} {
		for _, id := range set {
			if _, ok := knownIDs[id]; !ok {
				return fmt.Errorf("analysis references unknown item id %q", id)
			}
		}
	}

	if len(r.Prompts) > MaxPromptsPerResult {
		return fmt.Errorf("analysis returned %d prompts, max is %d", len(r.Prompts), MaxPromptsPerResult)
	}

	for i, p := range r.Prompts {
		if strings.TrimSpace(p.Message) == "" {
			return fmt.Errorf("prompt %d has an empty message", i)
		}
		if !p.Type.IsValid() {
			return fmt.Errorf("prompt %d has unknown type %q", i, p.Type)
		}
		if !p.Priority.IsValid() {
			return fmt.Errorf("prompt %d has unknown priority %q", i, p.Priority)
		}
		if _, ok := knownTitles[p.RelatedItemID]; !ok {
			return fmt.Errorf("prompt %d references unknown item title %q", i, p.RelatedItemID)
		}
	}

	return nil
}
