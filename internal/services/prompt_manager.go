package services

import (
	"sort"

	"remi/internal/models"
)

// MaxActivePrompts caps the active prompt set after any mutation
const MaxActivePrompts = 3

// PromptManager owns the active prompt set for one session: admission with
// dedup, auto-dismissal when a related item gets addressed, and priority-based
// capping. Not safe for concurrent use on its own; the owning agenda store
// serializes all access.
type PromptManager struct {
	active []models.Prompt
}

// NewPromptManager creates an empty prompt set
func NewPromptManager() *PromptManager {
	return &PromptManager{active: make([]models.Prompt, 0, MaxActivePrompts)}
}

// Active returns a copy of the active prompts in insertion order
func (pm *PromptManager) Active() []models.Prompt {
	out := make([]models.Prompt, len(pm.active))
	copy(out, pm.active)
	return out
}

// Count returns the number of active prompts
func (pm *PromptManager) Count() int {
	return len(pm.active)
}

// AutoDismiss removes active prompts whose related item title is in the
// addressed set. Returns how many prompts were dismissed.
func (pm *PromptManager) AutoDismiss(addressedTitles map[string]struct{}) int {
	if len(addressedTitles) == 0 {
		return 0
	}

	kept := pm.active[:0]
	for _, p := range pm.active {
		if _, addressed := addressedTitles[p.RelatedItemID]; !addressed {
			kept = append(kept, p)
		}
	}
	dismissed := len(pm.active) - len(kept)
	pm.active = kept
	return dismissed
}

// Admit adds the prompt unless an active prompt already shares its exact
// message or its related item title. Returns true if the prompt was admitted.
func (pm *PromptManager) Admit(prompt models.Prompt) bool {
	for _, p := range pm.active {
		if p.Message == prompt.Message || p.RelatedItemID == prompt.RelatedItemID {
			return false
		}
	}
	pm.active = append(pm.active, prompt)
	return true
}

// Cap trims the active set to MaxActivePrompts, keeping the highest-priority
// prompts. Ties are broken by insertion order (earliest created wins), which
// the stable sort preserves.
func (pm *PromptManager) Cap() int {
	if len(pm.active) <= MaxActivePrompts {
		return 0
	}

	sort.SliceStable(pm.active, func(i, j int) bool {
		return pm.active[i].Priority.Rank() > pm.active[j].Priority.Rank()
	})
	dropped := len(pm.active) - MaxActivePrompts
	pm.active = pm.active[:MaxActivePrompts]
	return dropped
}

// Dismiss removes the prompt with the given id. Dismissing an absent id is
// not an error since explicit dismissal races with auto-dismissal.
func (pm *PromptManager) Dismiss(promptID string) bool {
	for i, p := range pm.active {
		if p.ID == promptID {
			pm.active = append(pm.active[:i], pm.active[i+1:]...)
			return true
		}
	}
	return false
}
