package lorem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"

	"chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// Berlin; the mock always asks for the same place
const (
	mockLatitude  = 52.52
	mockLongitude = 13.41
)

// Provider is a mock LLM provider that generates lorem ipsum text.
// Used for testing and development without requiring real API keys.
//
// When the getWeather tool is offered and the latest user message mentions
// the weather, it requests one tool call first and answers after the result
// arrives, so the whole step loop can be exercised offline.
type Provider struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	delay     func(model string) time.Duration
	now       func() time.Time
}

var _ domainllm.LLMProvider = (*Provider)(nil)

// NewProvider creates a new lorem ipsum provider.
func NewProvider() *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     responseDelay,
		now:       time.Now,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-cutoff"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// GenerateResponse generates a complete lorem ipsum response after a
// model-dependent delay. This simulates a blocking API call.
func (p *Provider) GenerateResponse(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	if d := p.delay(req.Model); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	resp := &domainllm.GenerateResponse{
		Model:       req.Model,
		ResponseID:  "lorem_" + uuid.NewString(),
		CreatedAt:   p.now(),
		InputTokens: estimateTokens(req.Messages),
		StopReason:  "end_turn",
	}

	last := lastMessage(req.Messages)
	switch {
	case last.Role == domainllm.MessageRoleTool:
		resp.Text = "Here is what the forecast service returned. " + p.sentence(8, 14)

	case last.Role == domainllm.MessageRoleUser && offersWeather(req.Tools) && mentionsWeather(last.Text):
		resp.Text = p.sentence(4, 8)
		resp.ToolCalls = []domainllm.ToolCall{{
			ID:    "toolu_lorem_" + uuid.NewString(),
			Name:  llm.ToolGetWeather,
			Input: map[string]any{"latitude": mockLatitude, "longitude": mockLongitude},
		}}
		resp.StopReason = "tool_use"

	default:
		if isCutoffModel(req.Model) {
			resp.Text = p.words(maxTokens)
			resp.StopReason = "max_tokens"
		} else {
			resp.Text = p.paragraph(maxTokens)
		}
	}

	resp.OutputTokens = len(strings.Fields(resp.Text)) // Word count as proxy
	resp.FinishReason = llm.FinishReasonFromStopReason(resp.StopReason)
	return resp, nil
}

// responseDelay returns the simulated latency based on the model name.
// - lorem-slow: 2s
// - lorem-fast: none
// - default: 300ms
func responseDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 2 * time.Second
	}
	if strings.Contains(model, "fast") {
		return 0
	}
	return 300 * time.Millisecond
}

// isCutoffModel returns true if the model should simulate max_tokens cutoff.
func isCutoffModel(model string) bool {
	return strings.Contains(model, "cutoff") || strings.Contains(model, "small")
}

func offersWeather(tools []llm.ToolDefinition) bool {
	for _, t := range tools {
		if t.Name() == llm.ToolGetWeather {
			return true
		}
	}
	return false
}

func mentionsWeather(text string) bool {
	text = strings.ToLower(text)
	for _, word := range []string{"weather", "temperature", "forecast"} {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// lastMessage returns the latest non-system message
func lastMessage(messages []domainllm.Message) domainllm.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != domainllm.MessageRoleSystem {
			return messages[i]
		}
	}
	return domainllm.Message{}
}

// golorem is not safe for concurrent use

func (p *Provider) sentence(min, max int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generator.Sentence(min, max)
}

// paragraph generates one to three paragraphs, bounded by maxWords
func (p *Provider) paragraph(maxWords int) string {
	p.mu.Lock()
	text := p.generator.Paragraph(2, 4)
	p.mu.Unlock()
	return truncateWords(text, maxWords)
}

// words generates text past maxWords and cuts it there
func (p *Provider) words(maxWords int) string {
	var sb strings.Builder
	wordCount := 0

	p.mu.Lock()
	for wordCount < maxWords+maxWords/2 {
		sentence := p.generator.Sentence(5, 15)
		sb.WriteString(sentence)
		sb.WriteString(" ")
		wordCount += len(strings.Fields(sentence))
	}
	p.mu.Unlock()

	return truncateWords(sb.String(), maxWords)
}

func truncateWords(text string, maxWords int) string {
	fields := strings.Fields(text)
	if len(fields) <= maxWords {
		return strings.TrimSpace(text)
	}
	return strings.Join(fields[:maxWords], " ")
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func estimateTokens(messages []domainllm.Message) int {
	totalWords := 0
	for _, msg := range messages {
		totalWords += len(strings.Fields(msg.Text))
		for _, res := range msg.ToolResults {
			totalWords += len(strings.Fields(res.Result))
		}
	}
	return totalWords
}
