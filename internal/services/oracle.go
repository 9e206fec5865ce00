package services

import (
	"context"

	"remi/internal/models"
)

// AnalysisRequest carries everything the oracle needs for one cycle: the
// agenda with current statuses plus the recent conversation. KeywordMatches
// is the diagnostic pre-check result, passed along for logging only.
type AnalysisRequest struct {
	MeetingTitle   string
	Items          []models.AgendaItem
	Conversation   []models.TranscriptionChunk
	KeywordMatches []string
}

// AnalysisOracle is the external semantic judge that classifies conversation
// state against the agenda and drafts candidate prompts. Implementations must
// be safe for concurrent use; the agenda store serializes calls per session
// but multiple sessions share one oracle.
type AnalysisOracle interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error)
}
