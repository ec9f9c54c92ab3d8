package aimodel

import "strings"

// buildSystemPrompt composes the system prompt every provider shares:
// fixed agent identity, the persona fields injected verbatim, and the
// tone_guidance block under its own header when present. One shared builder
// instead of three near-identical copies across the Go providers.
func buildSystemPrompt(role RoleContext) string {
	name := role.Name
	if name == "" {
		name = "AI Assistant"
	}
	personality := role.Personality
	if personality == "" {
		personality = "Helpful and friendly"
	}
	speakingStyle := role.SpeakingStyle
	if speakingStyle == "" {
		speakingStyle = "Conversational"
	}
	knowledgeAreas := role.KnowledgeAreas
	if knowledgeAreas == "" {
		knowledgeAreas = "General knowledge"
	}
	behaviors := role.Behaviors
	if behaviors == "" {
		behaviors = "Responds helpfully"
	}

	var b strings.Builder
	b.WriteString("You are Jyra, an emotionally intelligent AI companion, currently roleplaying as " + name + ".\n\n")
	b.WriteString("Your core identity: you are Jyra, designed to be emotionally aware, to remember important details about the user, and to adapt to their needs.\n\n")
	b.WriteString("Current roleplay persona:\n")
	b.WriteString("- Name: " + name + "\n")
	b.WriteString("- Personality: " + personality + "\n")
	b.WriteString("- Speaking Style: " + speakingStyle + "\n")
	b.WriteString("- Knowledge Areas: " + knowledgeAreas + "\n")
	b.WriteString("- Behaviors: " + behaviors + "\n\n")
	b.WriteString("Guidelines: stay in character while keeping your core identity as Jyra; be emotionally perceptive; keep responses concise but meaningful; never break the fourth wall by mentioning you are an AI.")

	if strings.TrimSpace(role.ToneGuidance) != "" {
		b.WriteString("\n\nCurrent Emotional Context:\n")
		b.WriteString(role.ToneGuidance)
	}
	return b.String()
}

// memoryContextMessage wraps a non-empty memory_context block the way every
// provider prepends it to the message list, as a second system turn.
func memoryContextMessage(memoryContext string) (string, bool) {
	if strings.TrimSpace(memoryContext) == "" {
		return "", false
	}
	return "Important context about the user:\n" + memoryContext, true
}
