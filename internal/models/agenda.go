package models

import (
	"time"
)

// ItemStatus represents the discussion state of an agenda item
type ItemStatus string

const (
	StatusNotStarted ItemStatus = "not-started"
	StatusInProgress ItemStatus = "in-progress"
	StatusCovered    ItemStatus = "covered"
	StatusSkipped    ItemStatus = "skipped"
)

// statusRank orders the forward progression of an item. Skipped is a terminal
// side-branch and has no rank; it is handled separately in CanAdvanceTo.
var statusRank = map[ItemStatus]int{
	StatusNotStarted: 0,
	StatusInProgress: 1,
	StatusCovered:    2,
}

// IsValid returns true if the status is one of the known values
func (s ItemStatus) IsValid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCovered, StatusSkipped:
		return true
	}
	return false
}

// CanAdvanceTo reports whether a transition from s to proposed is allowed.
// Transitions are strictly monotone under not-started < in-progress < covered.
// Skipped is reachable only from not-started or in-progress, and is terminal.
// A proposal that would regress an item is not an error, just not allowed:
// the analysis is probabilistic and must never erase confirmed progress.
func (s ItemStatus) CanAdvanceTo(proposed ItemStatus) bool {
	if s == StatusSkipped || s == proposed {
		return false
	}
	if proposed == StatusSkipped {
		return s == StatusNotStarted || s == StatusInProgress
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[proposed]
	if !ok {
		return false
	}
	return to > from
}

// AgendaItem is a discrete topic expected to be discussed in the meeting.
// Items are created once at session start and mutated only by the agenda store.
type AgendaItem struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Keywords         []string   `json:"keywords"`
	Status           ItemStatus `json:"status"`
	CoveredAt        *time.Time `json:"coveredAt"`
	EstimatedMinutes int        `json:"estimatedMinutes"`
}

// PromptType classifies why a coaching prompt was raised
type PromptType string

const (
	PromptMissing  PromptType = "missing"
	PromptExpand   PromptType = "expand"
	PromptOffTrack PromptType = "off-track"
)

// IsValid returns true if the prompt type is one of the known values
func (t PromptType) IsValid() bool {
	return t == PromptMissing || t == PromptExpand || t == PromptOffTrack
}

// PromptPriority controls eviction order when the active prompt set is capped
type PromptPriority string

const (
	PriorityLow    PromptPriority = "low"
	PriorityMedium PromptPriority = "medium"
	PriorityHigh   PromptPriority = "high"
)

// Rank returns the numeric weight used when capping the active prompt set
func (p PromptPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// IsValid returns true if the priority is one of the known values
func (p PromptPriority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Prompt is a user-facing suggestion generated from an analysis cycle.
// RelatedItemID carries the agenda item's TITLE, not its id. The analysis
// contract references items by title in prompts, and auto-dismissal and dedup
// match on that title across the whole pipeline.
type Prompt struct {
	ID            string         `json:"id"`
	Type          PromptType     `json:"type"`
	Message       string         `json:"message"`
	RelatedItemID string         `json:"relatedItemId"`
	Priority      PromptPriority `json:"priority"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TranscriptionChunk is one piece of live transcription. Immutable once created.
type TranscriptionChunk struct {
	Timestamp time.Time `json:"timestamp"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
}

// AgendaDefinition is the agenda file format consumed once at session start
type AgendaDefinition struct {
	MeetingTitle string                 `json:"meetingTitle" yaml:"meetingTitle"`
	Items        []AgendaItemDefinition `json:"items" yaml:"items"`
}

// AgendaItemDefinition is a single item entry in the agenda definition file
type AgendaItemDefinition struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Keywords         []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	EstimatedMinutes int      `json:"estimatedMinutes,omitempty" yaml:"estimatedMinutes,omitempty"`
}

// StateSnapshot is an immutable point-in-time copy of session state sent to
// clients. Holds copies only, never references into live store collections.
type StateSnapshot struct {
	MeetingTitle      string       `json:"meetingTitle"`
	Items             []AgendaItem `json:"items"`
	Prompts           []Prompt     `json:"prompts"`
	ConversationCount int          `json:"conversationCount"`
}
