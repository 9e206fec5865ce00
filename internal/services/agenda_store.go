package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"remi/internal/models"
)

// analysisQueueSize bounds how many analysis cycles may queue behind an
// in-flight oracle call. Cycles past the bound are dropped (the chunk itself
// is already in the window, so only the inference is lost).
const analysisQueueSize = 64

// ErrInvalidAgenda is returned when an agenda definition is malformed
var ErrInvalidAgenda = errors.New("invalid agenda definition")

// StateNotifier receives the new state snapshot after any session mutation.
// The connection manager implements this to fan the snapshot out to clients.
type StateNotifier interface {
	StateChanged(sessionID string, snapshot models.StateSnapshot)
}

// AgendaStore owns the authoritative agenda and prompt state for one meeting
// session. All mutations are serialized behind one mutex, and analysis cycles
// run on a single worker goroutine so results apply in ingestion order.
type AgendaStore struct {
	sessionID    string
	meetingTitle string
	oracle       AnalysisOracle
	notifier     StateNotifier

	mu            sync.Mutex
	items         []*models.AgendaItem
	prompts       *PromptManager
	window        *ConversationWindow
	promptCounter int
	lastActivity  time.Time

	jobs      chan AnalysisRequest
	done      chan struct{}
	closeOnce sync.Once
}

// NewAgendaStore creates a session store from an agenda definition. The
// oracle may be nil, in which case transcription is recorded but never
// analyzed. Fails with ErrInvalidAgenda on a malformed definition.
func NewAgendaStore(sessionID string, def *models.AgendaDefinition, oracle AnalysisOracle, notifier StateNotifier) (*AgendaStore, error) {
	items, err := itemsFromDefinition(def)
	if err != nil {
		return nil, err
	}

	s := &AgendaStore{
		sessionID:    sessionID,
		meetingTitle: def.MeetingTitle,
		oracle:       oracle,
		notifier:     notifier,
		items:        items,
		prompts:      NewPromptManager(),
		window:       NewConversationWindow(),
		lastActivity: time.Now(),
		jobs:         make(chan AnalysisRequest, analysisQueueSize),
		done:         make(chan struct{}),
	}

	go s.analysisLoop()

	log.Printf("🎯 [AGENDA] Session %s initialized: %q with %d items", sessionID, s.meetingTitle, len(items))
	return s, nil
}

// itemsFromDefinition validates the definition and builds the item list in
// definition order
func itemsFromDefinition(def *models.AgendaDefinition) ([]*models.AgendaItem, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: empty definition", ErrInvalidAgenda)
	}

	items := make([]*models.AgendaItem, 0, len(def.Items))
	seen := make(map[string]struct{}, len(def.Items))
	for i, itemDef := range def.Items {
		if itemDef.ID == "" {
			return nil, fmt.Errorf("%w: item %d is missing an id", ErrInvalidAgenda, i)
		}
		if itemDef.Title == "" {
			return nil, fmt.Errorf("%w: item %q is missing a title", ErrInvalidAgenda, itemDef.ID)
		}
		if _, dup := seen[itemDef.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidAgenda, itemDef.ID)
		}
		seen[itemDef.ID] = struct{}{}

		keywords := make([]string, len(itemDef.Keywords))
		copy(keywords, itemDef.Keywords)

		estimated := itemDef.EstimatedMinutes
		if estimated <= 0 {
			estimated = 5
		}

		items = append(items, &models.AgendaItem{
			ID:               itemDef.ID,
			Title:            itemDef.Title,
			Description:      itemDef.Description,
			Keywords:         keywords,
			Status:           models.StatusNotStarted,
			EstimatedMinutes: estimated,
		})
	}
	return items, nil
}

// SessionID returns the owning session's id
func (s *AgendaStore) SessionID() string {
	return s.sessionID
}

// MeetingTitle returns the meeting title from the agenda definition
func (s *AgendaStore) MeetingTitle() string {
	return s.meetingTitle
}

// LastActivity returns the time of the most recent ingestion or mutation
func (s *AgendaStore) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Close stops the analysis worker. Queued cycles are abandoned; an in-flight
// oracle call runs to completion but its result is discarded.
func (s *AgendaStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Ingest appends a transcription chunk and queues one analysis cycle. The
// chunk append always succeeds even if the analysis later fails; the
// transcript record is favored over inferred status.
func (s *AgendaStore) Ingest(speaker, text string) {
	chunk := models.TranscriptionChunk{
		Timestamp: time.Now(),
		Speaker:   speaker,
		Text:      text,
	}
	s.window.Append(chunk)

	s.mu.Lock()
	s.lastActivity = time.Now()
	req := AnalysisRequest{
		MeetingTitle: s.meetingTitle,
		Items:        s.itemsCopyLocked(),
		Conversation: s.window.Recent(AnalysisContextChunks),
	}

	// The enqueue happens under the same lock as the snapshot so queue order
	// matches snapshot order; the worker then applies results in ingestion
	// order. The send is non-blocking, holding the lock across it is safe.
	enqueued := true
	if s.oracle != nil {
		if matches := s.window.KeywordPrecheck(req.Items); len(matches) > 0 {
			ids := make([]string, 0, len(matches))
			for id := range matches {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			req.KeywordMatches = ids
		}
		select {
		case s.jobs <- req:
		default:
			enqueued = false
		}
	}
	s.mu.Unlock()

	// The chunk append alone changes conversationCount, so clients get the
	// transcript immediately even while the analysis is still in flight.
	s.notifyState()

	if len(req.KeywordMatches) > 0 {
		log.Printf("🎯 [AGENDA] Session %s keyword matches: %v", s.sessionID, req.KeywordMatches)
	}
	if !enqueued {
		if m := GetMetrics(); m != nil {
			m.RecordAnalysisDropped()
		}
		log.Printf("⚠️ [AGENDA] Session %s analysis queue full, dropping cycle (chunk retained)", s.sessionID)
	}
}

// analysisLoop runs queued analysis cycles one at a time, in ingestion order
func (s *AgendaStore) analysisLoop() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.jobs:
			s.runAnalysis(req)
		}
	}
}

// runAnalysis performs one oracle round trip and applies the validated result
func (s *AgendaStore) runAnalysis(req AnalysisRequest) {
	start := time.Now()
	result, err := s.oracle.Analyze(context.Background(), req)
	if m := GetMetrics(); m != nil {
		m.RecordOracleLatency(time.Since(start).Seconds())
	}
	if err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordAnalysisError("oracle_call")
		}
		log.Printf("⚠️ [AGENDA] Session %s analysis failed: %v", s.sessionID, err)
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	mutated, err := s.ApplyAnalysisResult(result)
	if err != nil {
		if m := GetMetrics(); m != nil {
			m.RecordAnalysisError("validation")
		}
		log.Printf("⚠️ [AGENDA] Session %s discarding analysis result: %v", s.sessionID, err)
		return
	}
	if m := GetMetrics(); m != nil {
		m.RecordAnalysisCycle()
	}
	if mutated {
		s.notifyState()
	}
}

// ApplyAnalysisResult validates and applies one analysis result atomically:
// status promotion, prompt auto-dismissal, prompt admission, then capping.
// A result that fails validation mutates nothing. Returns whether any state
// changed.
func (s *AgendaStore) ApplyAnalysisResult(result *models.AnalysisResult) (bool, error) {
	if result == nil {
		return false, fmt.Errorf("nil analysis result")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := result.Validate(s.itemsCopyLocked()); err != nil {
		return false, err
	}

	covered := toSet(result.ItemsCovered)
	inProgress := toSet(result.ItemsInProgress)

	// (a) Status promotion: strictly forward transitions only. Regression
	// proposals are silently ignored.
	mutated := false
	addressedTitles := make(map[string]struct{})
	for _, item := range s.items {
		if _, ok := covered[item.ID]; ok {
			addressedTitles[item.Title] = struct{}{}
			if item.Status.CanAdvanceTo(models.StatusCovered) {
				item.Status = models.StatusCovered
				if item.CoveredAt == nil {
					now := time.Now()
					item.CoveredAt = &now
				}
				mutated = true
				log.Printf("✅ [AGENDA] Session %s covered: %s", s.sessionID, item.Title)
			}
			continue
		}
		if _, ok := inProgress[item.ID]; ok {
			addressedTitles[item.Title] = struct{}{}
			if item.Status.CanAdvanceTo(models.StatusInProgress) {
				item.Status = models.StatusInProgress
				mutated = true
				log.Printf("🔵 [AGENDA] Session %s started: %s", s.sessionID, item.Title)
			}
		}
	}

	// (b) Auto-dismiss prompts whose related title was addressed this cycle
	if dismissed := s.prompts.AutoDismiss(addressedTitles); dismissed > 0 {
		mutated = true
		log.Printf("🗑️ [AGENDA] Session %s auto-dismissed %d prompts", s.sessionID, dismissed)
	}

	// (c) Prompt admission with dedup on exact message and related title
	for _, candidate := range result.Prompts {
		prompt := models.Prompt{
			ID:            s.nextPromptIDLocked(),
			Type:          candidate.Type,
			Message:       candidate.Message,
			RelatedItemID: candidate.RelatedItemID,
			Priority:      candidate.Priority,
			CreatedAt:     time.Now(),
		}
		if s.prompts.Admit(prompt) {
			mutated = true
			log.Printf("💡 [AGENDA] Session %s new prompt: %s", s.sessionID, prompt.Message)
		}
	}

	// (d) Cap the active set, dropping lowest priority first
	if dropped := s.prompts.Cap(); dropped > 0 {
		mutated = true
	}

	if mutated {
		s.lastActivity = time.Now()
	}
	return mutated, nil
}

// DismissPrompt removes the prompt with the given id. Dismissing an id that
// is no longer active is a no-op: explicit dismissal races with
// auto-dismissal and must not fault.
func (s *AgendaStore) DismissPrompt(promptID string) {
	s.mu.Lock()
	removed := s.prompts.Dismiss(promptID)
	if removed {
		s.lastActivity = time.Now()
	}
	s.mu.Unlock()

	if removed {
		log.Printf("🗑️ [AGENDA] Session %s dismissed prompt: %s", s.sessionID, promptID)
		s.notifyState()
	}
}

// GetState returns an immutable snapshot of the session state. The snapshot
// shares no references with the store's internal collections.
func (s *AgendaStore) GetState() models.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.StateSnapshot{
		MeetingTitle:      s.meetingTitle,
		Items:             s.itemsCopyLocked(),
		Prompts:           s.prompts.Active(),
		ConversationCount: s.window.Len(),
	}
}

// itemsCopyLocked deep-copies the item list. Caller must hold s.mu.
func (s *AgendaStore) itemsCopyLocked() []models.AgendaItem {
	out := make([]models.AgendaItem, 0, len(s.items))
	for _, item := range s.items {
		copied := *item
		copied.Keywords = append([]string(nil), item.Keywords...)
		if item.CoveredAt != nil {
			at := *item.CoveredAt
			copied.CoveredAt = &at
		}
		out = append(out, copied)
	}
	return out
}

// nextPromptIDLocked generates a unique prompt id from the monotonic counter
// plus a timestamp. Caller must hold s.mu.
func (s *AgendaStore) nextPromptIDLocked() string {
	s.promptCounter++
	return fmt.Sprintf("prompt_%d_%d", s.promptCounter, time.Now().UnixMilli())
}

func (s *AgendaStore) notifyState() {
	if s.notifier == nil {
		return
	}
	s.notifier.StateChanged(s.sessionID, s.GetState())
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
