// Package aimodel implements ModelProvider, the circuit-breaking
// ModelRouter fallback chain, and the filesystem-backed ResponseCache that
// sits in front of every provider.
package aimodel

import "context"

// Turn is one entry of conversation_history: an alternating user/assistant
// message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	TurnUser      = "user"
	TurnAssistant = "assistant"
)

// RoleContext carries the persona fields verbatim plus an optional
// SentimentAnalyzer tone hint.
type RoleContext struct {
	Name           string `json:"name"`
	Personality    string `json:"personality"`
	SpeakingStyle  string `json:"speaking_style"`
	KnowledgeAreas string `json:"knowledge_areas"`
	Behaviors      string `json:"behaviors"`
	ToneGuidance   string `json:"tone_guidance,omitempty"`
}

// Options bounds a single generate() call. Only MaxTokens falls back to a
// provider default when zero or negative; Temperature and TopP are always
// sent as given (TopK too, by the Gemini provider), so a zero there is
// passed to the provider as zero.
type Options struct {
	Temperature    float64
	MaxTokens      int
	TopP           float64
	TopK           int
	StopSequences  []string
	BypassCache    bool
}

// cacheable reports whether this call's caching band applies: caching is
// only safe for temperatures that are not intentionally non-deterministic.
func (o Options) cacheable() bool {
	return !o.BypassCache && o.Temperature >= 0.6 && o.Temperature <= 0.8
}

// Capabilities is the static introspection surface a ModelProvider reports.
type Capabilities struct {
	Name              string
	Provider          string
	MaxContextLength  int
	SupportsStreaming bool
	CostPer1KTokens   float64
}

// ModelProvider converts (prompt, role, history, memory context) into
// response text for one backend.
type ModelProvider interface {
	Generate(ctx context.Context, prompt string, role RoleContext, history []Turn, memoryContext string, opts Options) (string, error)
	Capabilities() Capabilities
	Available(ctx context.Context) bool
}
