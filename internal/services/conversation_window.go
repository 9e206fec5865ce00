package services

import (
	"strings"
	"sync"

	"remi/internal/models"
)

// Conversation window constants
const (
	// MaxWindowChunks bounds the transcript history kept per session
	MaxWindowChunks = 50
	// AnalysisContextChunks is how many recent chunks the oracle sees
	AnalysisContextChunks = 10
	// PrecheckChunks is how many recent chunks the keyword pre-check scans
	PrecheckChunks = 3
)

// ConversationWindow is a bounded, append-only window over the live
// transcription. Oldest chunks are evicted once the cap is reached.
type ConversationWindow struct {
	mu     sync.Mutex
	chunks []models.TranscriptionChunk
	max    int
}

// NewConversationWindow creates a window capped at MaxWindowChunks
func NewConversationWindow() *ConversationWindow {
	return &ConversationWindow{
		chunks: make([]models.TranscriptionChunk, 0, MaxWindowChunks),
		max:    MaxWindowChunks,
	}
}

// Append adds a chunk at the tail, evicting from the head past the cap
func (w *ConversationWindow) Append(chunk models.TranscriptionChunk) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.chunks = append(w.chunks, chunk)
	if len(w.chunks) > w.max {
		overflow := len(w.chunks) - w.max
		w.chunks = append(w.chunks[:0], w.chunks[overflow:]...)
	}
}

// Len returns the number of chunks currently held
func (w *ConversationWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.chunks)
}

// Recent returns a copy of the last n chunks (or fewer if the window holds
// less), preserving insertion order
func (w *ConversationWindow) Recent(n int) []models.TranscriptionChunk {
	w.mu.Lock()
	defer w.mu.Unlock()

	if n > len(w.chunks) {
		n = len(w.chunks)
	}
	out := make([]models.TranscriptionChunk, n)
	copy(out, w.chunks[len(w.chunks)-n:])
	return out
}

// KeywordPrecheck does a case-insensitive substring match of each item's
// keywords against the concatenated text of the last PrecheckChunks chunks.
// The result is a diagnostic signal only; the analysis oracle remains the
// sole authority on status changes.
func (w *ConversationWindow) KeywordPrecheck(items []models.AgendaItem) map[string]struct{} {
	recent := w.Recent(PrecheckChunks)

	var sb strings.Builder
	for i, chunk := range recent {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(chunk.Text)
	}
	text := strings.ToLower(sb.String())

	mentioned := make(map[string]struct{})
	for _, item := range items {
		for _, keyword := range item.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(keyword)) {
				mentioned[item.ID] = struct{}{}
				break
			}
		}
	}
	return mentioned
}
