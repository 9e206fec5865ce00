package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"remi/internal/models"
)

const analysisSystemPrompt = "You are a meeting agenda tracking assistant. Always respond with valid JSON only."

// OpenAIOracleConfig configures the OpenAI-backed analysis oracle
type OpenAIOracleConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Rate     float64 // calls per second across all sessions
	CacheTTL time.Duration
}

// OpenAIOracle implements AnalysisOracle against an OpenAI-compatible chat
// completions endpoint. Identical analysis inputs within the cache TTL are
// served from cache instead of re-calling the provider, and all calls pass
// through a global rate limiter.
type OpenAIOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	cache   *gocache.Cache
}

// NewOpenAIOracle creates an oracle client for the given provider config
func NewOpenAIOracle(cfg OpenAIOracleConfig) *OpenAIOracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 2.0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}

	return &OpenAIOracle{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), int(cfg.Rate*2)+1),
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
	}
}

// Analyze runs one analysis cycle against the provider
func (o *OpenAIOracle) Analyze(ctx context.Context, req AnalysisRequest) (*models.AnalysisResult, error) {
	userPrompt := buildAnalysisPrompt(req)

	// Identical window + identical statuses means an identical verdict; skip
	// the round trip when the transcript repeats within the TTL.
	cacheKey := promptFingerprint(userPrompt)
	if cached, ok := o.cache.Get(cacheKey); ok {
		result := cached.(models.AnalysisResult)
		return &result, nil
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("oracle rate limiter: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   500,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}

	content := resp.Choices[0].Message.Content
	result, err := parseAnalysisResult(content, req.Items)
	if err != nil {
		log.Printf("⚠️ [ORACLE] Discarding response: %v (raw: %.200s)", err, content)
		return nil, err
	}

	o.cache.SetDefault(cacheKey, *result)
	return result, nil
}

// parseAnalysisResult decodes and validates one oracle response. Only
// validated results reach the cache; a schema-invalid response must fail
// once, not for a whole cache TTL.
func parseAnalysisResult(content string, items []models.AgendaItem) (*models.AnalysisResult, error) {
	content = stripCodeFences(content)

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("oracle returned non-JSON output: %w", err)
	}
	if err := result.Validate(items); err != nil {
		return nil, fmt.Errorf("oracle returned invalid result: %w", err)
	}
	return &result, nil
}

// buildAnalysisPrompt renders the agenda context and recent conversation into
// the analysis instruction. Status sets in the response use item ids; prompt
// references use item titles.
func buildAnalysisPrompt(req AnalysisRequest) string {
	var agenda strings.Builder
	for _, item := range req.Items {
		fmt.Fprintf(&agenda, "- %s (Status: %s)\n", item.Title, item.Status)
		fmt.Fprintf(&agenda, "   Description: %s\n", item.Description)
		fmt.Fprintf(&agenda, "   Keywords: %s\n", strings.Join(item.Keywords, ", "))
	}

	var conversation strings.Builder
	for _, chunk := range req.Conversation {
		fmt.Fprintf(&conversation, "%s: %s\n", chunk.Speaker, chunk.Text)
	}

	return fmt.Sprintf(`You are an AI meeting assistant tracking agenda items in real-time.

CURRENT AGENDA STATUS (PRESERVE THESE STATES):
%s
NOTE: If an item shows "Status: in-progress" or "Status: covered", you MUST keep it that way in your response.
Never downgrade from covered/in-progress back to missed.

RECENT CONVERSATION:
%s
Analyze the conversation and determine:
1. Which agenda item(s) are currently being discussed (if any)
2. Which items have been fully covered
3. Which items are being missed or skipped
4. Whether the conversation is on-track or off-topic

COVERAGE DETECTION:
- If an item's keywords appear in the last few messages, mark it "in_progress"
- If keywords appear together with details (numbers, decisions, discussion), mark it "covered"
- Phrases like "should", "need to", "let's", "think about" plus a keyword mean "in_progress"
- Once marked "in_progress" or "covered", NEVER revert to "missed"

PROMPT TONE & STYLE:
- Be warm, friendly, and supportive like a helpful colleague
- Make suggestions feel natural and conversational, not robotic
- Keep messages concise but personable (10-15 words ideal)

Respond ONLY with valid JSON in this exact format:
{
  "current_topic": "agenda item title or 'off-topic'",
  "items_in_progress": ["item_1"],
  "items_covered": ["item_2"],
  "items_missed": ["item_3"],
  "prompts": [
    {
      "type": "missing",
      "message": "Warm, friendly suggestion about the topic",
      "related_item_id": "Budget Allocation",
      "priority": "medium"
    }
  ]
}

CRITICAL RULES:
- items_in_progress, items_covered, items_missed use item IDs (like "item_1", "item_2")
- related_item_id in prompts uses item TITLES (like "Budget Allocation")
- Generate 0-2 prompts ONLY. Do NOT always generate prompts.
- NEVER generate prompts for items in items_covered or items_in_progress
- NEVER generate multiple prompts for the same item
- Only generate prompts for items in items_missed that are truly being ignored
`, agenda.String(), conversation.String())
}

// stripCodeFences removes a surrounding markdown code fence if the provider
// wrapped the JSON payload in one despite JSON mode
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

func promptFingerprint(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
