package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"jyra/internal/aimodel"
)

// Sentiment is the classification result Analyze produces.
type Sentiment struct {
	PrimaryEmotion string `json:"primary_emotion"`
	Intensity      int    `json:"intensity"`
	Explanation    string `json:"explanation"`
}

// Adjustment is the {temperature, tone_guidance} pair the handler feeds
// back into ModelProvider.Generate's Options/RoleContext.
type Adjustment struct {
	Temperature  float64
	ToneGuidance string
}

var neutralSentiment = Sentiment{PrimaryEmotion: "neutral", Intensity: 3, Explanation: ""}

var sentimentRole = aimodel.RoleContext{
	Name:           "Sentiment Analyzer",
	Personality:    "Analytical and perceptive",
	SpeakingStyle:  "Precise and structured",
	KnowledgeAreas: "Emotional intelligence, psychology, language patterns",
	Behaviors:      "Analyzes emotions accurately, responds in strict JSON",
}

var firstJSONObject = regexp.MustCompile(`(?s)\{.*\}`)

// SentimentAnalyzer classifies the emotional tone of an utterance.
type SentimentAnalyzer struct {
	router *aimodel.ModelRouter
}

func NewSentimentAnalyzer(router *aimodel.ModelRouter) *SentimentAnalyzer {
	return &SentimentAnalyzer{router: router}
}

// Analyze never fails: any parse or call error degrades to neutralSentiment.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, text string) Sentiment {
	prompt := fmt.Sprintf(`Analyze the emotional tone of the following message:

%q

Identify the primary emotion and rate its intensity 1-5 (1 mild, 5 intense). Respond in JSON: {"primary_emotion": "...", "intensity": N, "explanation": "..."}`, text)

	response, _, err := a.router.Generate(ctx, prompt, sentimentRole, nil, "", aimodel.Options{
		Temperature: 0.1,
		MaxTokens:   200,
		TopP:        0.95,
		TopK:        40,
	}, true)
	if err != nil {
		return neutralSentiment
	}

	match := firstJSONObject.FindString(response)
	if match == "" {
		return neutralSentiment
	}

	var raw struct {
		PrimaryEmotion any `json:"primary_emotion"`
		Intensity      any `json:"intensity"`
		Explanation    any `json:"explanation"`
	}
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return neutralSentiment
	}

	emotion, _ := raw.PrimaryEmotion.(string)
	if emotion == "" {
		emotion = "neutral"
	}
	explanation, _ := raw.Explanation.(string)

	intensity := 3
	switch v := raw.Intensity.(type) {
	case float64:
		intensity = int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			intensity = n
		}
	}
	if intensity < 1 {
		intensity = 1
	} else if intensity > 5 {
		intensity = 5
	}

	return Sentiment{PrimaryEmotion: strings.ToLower(strings.TrimSpace(emotion)), Intensity: intensity, Explanation: explanation}
}

// emotionFamily groups a raw emotion label into one of seven adjustment
// families used by Adjust.
func emotionFamily(emotion string) string {
	switch emotion {
	case "happiness", "excitement", "gratitude":
		return "positive"
	case "sadness", "disappointment":
		return "sad"
	case "anger", "disgust":
		return "angry"
	case "fear", "anxiety":
		return "fearful"
	case "confusion":
		return "confused"
	case "surprise":
		return "surprised"
	default:
		return "neutral"
	}
}

// Adjust maps a Sentiment to a {temperature, tone_guidance} pair: small
// temperature shifts scaled by intensity, clamped to [0.4, 0.9].
func Adjust(s Sentiment) Adjustment {
	intensity := float64(s.Intensity)
	clamp := func(t float64) float64 {
		if t < 0.4 {
			return 0.4
		}
		if t > 0.9 {
			return 0.9
		}
		return t
	}

	switch emotionFamily(s.PrimaryEmotion) {
	case "positive":
		return Adjustment{
			Temperature:  clamp(0.6 + intensity*0.05),
			ToneGuidance: fmt.Sprintf("The user seems %s. Respond with matching positive energy and enthusiasm.", s.PrimaryEmotion),
		}
	case "sad":
		return Adjustment{
			Temperature:  clamp(0.7 - intensity*0.05),
			ToneGuidance: fmt.Sprintf("The user seems %s. Respond with empathy, warmth, and support.", s.PrimaryEmotion),
		}
	case "angry":
		return Adjustment{
			Temperature:  clamp(0.7 - intensity*0.06),
			ToneGuidance: fmt.Sprintf("The user seems %s. Respond calmly and with understanding, avoiding escalation.", s.PrimaryEmotion),
		}
	case "fearful":
		return Adjustment{
			Temperature:  clamp(0.7 - intensity*0.04),
			ToneGuidance: fmt.Sprintf("The user seems %s. Respond with reassurance and support.", s.PrimaryEmotion),
		}
	case "confused":
		return Adjustment{
			Temperature:  clamp(0.7 - intensity*0.05),
			ToneGuidance: "The user seems confused. Respond with clarity and helpful guidance.",
		}
	case "surprised":
		return Adjustment{
			Temperature:  clamp(0.6 + intensity*0.04),
			ToneGuidance: "The user seems surprised. Acknowledge this and provide context or explanation.",
		}
	default:
		return Adjustment{
			Temperature:  0.7,
			ToneGuidance: "Respond in a balanced, conversational tone.",
		}
	}
}
