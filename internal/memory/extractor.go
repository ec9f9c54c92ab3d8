// Package memory extracts structured facts from user utterances and
// implements the retrieval/ingest pipeline, consolidation, decay, and
// sentiment analysis over them.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"jyra/internal/aimodel"
)

// ExtractedMemory is one candidate record MemoryExtractor produces.
type ExtractedMemory struct {
	Content    string `json:"content"`
	Category   string `json:"category"`
	Importance int    `json:"importance"`
}

// Extractor asks a ModelProvider (via router) for a JSON array of
// candidate memories found in an utterance.
type Extractor struct {
	router *aimodel.ModelRouter
}

func NewExtractor(router *aimodel.ModelRouter) *Extractor {
	return &Extractor{router: router}
}

var extractorRole = aimodel.RoleContext{
	Name:           "Memory Extractor",
	Personality:    "Analytical and precise",
	SpeakingStyle:  "Structured",
	KnowledgeAreas: "Personal facts, preferences, events, relationships",
	Behaviors:      "Extracts only information worth remembering, in strict JSON",
}

// Extract asks the model for {content, category, importance} records found
// in utterance. It never returns an error: any parse failure degrades to an
// empty list.
func (e *Extractor) Extract(ctx context.Context, utterance string, userContext map[string]string) []ExtractedMemory {
	prompt := buildExtractionPrompt(utterance, userContext)
	text, _, err := e.router.Generate(ctx, prompt, extractorRole, nil, "", aimodel.Options{
		Temperature: 0.2,
		MaxTokens:   500,
		TopP:        0.95,
	}, true)
	if err != nil {
		return nil
	}
	return parseExtractionResponse(text)
}

func buildExtractionPrompt(utterance string, userContext map[string]string) string {
	var ctxBlock strings.Builder
	if len(userContext) > 0 {
		ctxBlock.WriteString("User context:\n")
		for k, v := range userContext {
			ctxBlock.WriteString("- " + k + ": " + v + "\n")
		}
	}
	return fmt.Sprintf(`Extract facts, preferences, personal details, and other important information from the following message. Focus on information useful to remember for future conversations.

For each piece of information, provide the exact content, a category (personal, preference, fact, event, relationship, etc.), and an importance score 1-5 where 5 is most important.

Respond with a JSON array of objects: [{"content": "...", "category": "...", "importance": N}]. If nothing is worth remembering, return [].

%sUser message: %s

Extracted memories (JSON array only):`, ctxBlock.String(), utterance)
}

// parseExtractionResponse locates the outermost [...] span, decodes it, and
// keeps only elements carrying all three required keys, clamping importance
// to [1,5] and silently dropping the rest. It returns nil when nothing
// survives.
func parseExtractionResponse(response string) []ExtractedMemory {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || end < start {
		return nil
	}

	var raw []map[string]any
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil
	}

	out := make([]ExtractedMemory, 0, len(raw))
	for _, m := range raw {
		content, ok1 := m["content"].(string)
		category, ok2 := m["category"].(string)
		if !ok1 || !ok2 || content == "" {
			continue
		}
		importance, ok3 := numericField(m["importance"])
		if !ok3 {
			continue
		}
		if importance < 1 {
			importance = 1
		} else if importance > 5 {
			importance = 5
		}
		out = append(out, ExtractedMemory{Content: content, Category: category, Importance: importance})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// numericField accepts the importance field whether the model emitted a
// JSON number or a quoted numeric string.
func numericField(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
