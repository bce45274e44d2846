package routing

import (
	"fmt"
	"strings"

	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/models"
)

const (
	askTemperature  = 0.2
	chatTemperature = 0.4
	askMaxTokens    = 700
	chatMaxTokens   = 600
)

func formatSnippets(sources []models.RetrievedSource, numbered bool) string {
	parts := make([]string, 0, len(sources))
	for i, s := range sources {
		label := ""
		if numbered {
			label = fmt.Sprintf("[Source %d] ", i+1)
		}
		parts = append(parts, fmt.Sprintf("%sTitle: %s\nURL: %s\nSnippet: %s", label, s.Title, s.URL, s.Snippet))
	}
	return strings.Join(parts, "\n\n")
}

func groundedAskPrompt(query string, lang models.Lang, sources []models.RetrievedSource) completion.Prompt {
	return completion.Prompt{
		System: "You are a kiosk assistant. Use only the provided snippets. " +
			"Avoid madhhab comparisons. Be informational, not a fatwa. " +
			"Return concise blocks suitable for a kiosk. " +
			"Suggest up to 3 short follow-up questions.",
		Messages: []completion.Message{{
			Role: completion.RoleUser,
			Content: fmt.Sprintf("Language: %s\nQuestion: %s\nSnippets:\n%s\n\nReturn JSON only.",
				lang.Name(), query, formatSnippets(sources, false)),
		}},
		Temperature: askTemperature,
		MaxTokens:   askMaxTokens,
	}
}

func ungroundedAskPrompt(query string, lang models.Lang) completion.Prompt {
	return completion.Prompt{
		System: "You are a kiosk assistant. Provide cautious, general guidance when official sources are unavailable. " +
			"Avoid madhhab comparisons. Be informational, not a fatwa. " +
			"Do not invent citations or claim a source. " +
			"Return concise blocks suitable for a kiosk.",
		Messages: []completion.Message{{
			Role: completion.RoleUser,
			Content: fmt.Sprintf("Language: %s\nQuestion: %s\nStart the direct answer with exactly this sentence: %q\nReturn JSON only.",
				lang.Name(), query, Disclaimer(lang)),
		}},
		Temperature: askTemperature,
		MaxTokens:   askMaxTokens,
	}
}

func clarifyPrompt(query string, lang models.Lang) completion.Prompt {
	return completion.Prompt{
		System: "You are a kiosk assistant. Ask one concise clarifying question to narrow the user's intent. " +
			"Provide 3 short button options that are likely interpretations. " +
			"Do not include citations. Keep it brief and relevant.",
		Messages: []completion.Message{{
			Role:    completion.RoleUser,
			Content: fmt.Sprintf("Language: %s\nUser question: %s\nReturn JSON only.", lang.Name(), query),
		}},
		Temperature: askTemperature,
		MaxTokens:   200,
	}
}

func formattingRules(h headings) string {
	var b strings.Builder
	b.WriteString("FORMATTING (you MUST follow this exactly):\n")
	b.WriteString("- Use markdown. Put each heading, bullet, and paragraph on its own line.\n")
	b.WriteString("- Always put a blank line before every ## heading.\n")
	b.WriteString("- Always put each bullet (- ) on its own line.\n")
	b.WriteString("- Use only these sections (skip any that don't apply):\n")
	fmt.Fprintf(&b, "  ## %s\n  ## %s\n  ## %s\n", h.direct, h.steps, h.mistakes)
	b.WriteString("- Keep bullets short and practical.\n")
	fmt.Fprintf(&b, "- For simple questions, use ## %s with a short paragraph and skip the other sections.\n", h.direct)
	return b.String()
}

func groundedChatSystem(lang models.Lang, sources []models.RetrievedSource) string {
	h := phrasesFor(lang).headings
	var b strings.Builder
	b.WriteString("You are Tayyib, a friendly and knowledgeable Umrah assistant on a public kiosk. ")
	b.WriteString("You help pilgrims with Umrah steps, Nusuk permits, Rawdah visits, and related guidance.\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Respond in %s.\n", lang.Name())
	b.WriteString("- Be conversational but concise. This is a kiosk - people are standing.\n")
	b.WriteString("- Do not give fatwas. Do not compare madhahib.\n")
	b.WriteString("- Be informational and compassionate.\n")
	b.WriteString("- If you reference a source, cite it as [Source N] inline.\n")
	b.WriteString("- If you don't know something, say so honestly.\n")
	b.WriteString("- Do not invent citations.\n")
	b.WriteString("- Keep responses under 200 words unless the user asks for detail.\n\n")
	b.WriteString(formattingRules(h))
	b.WriteString("\nExample of correct formatting:\n\n")
	fmt.Fprintf(&b, "## %s\nTawaf is the act of circling the Kaaba seven times.\n\n", h.direct)
	fmt.Fprintf(&b, "## %s\n- Start from the Black Stone corner\n- Walk counter-clockwise around the Kaaba\n- Complete seven full circuits\n\n", h.steps)
	fmt.Fprintf(&b, "## %s\n- Not starting from the correct corner\n- Miscounting the number of circuits\n", h.mistakes)
	if len(sources) > 0 {
		fmt.Fprintf(&b, "\nAvailable sources:\n%s\n", formatSnippets(sources, true))
	}
	return b.String()
}

func ungroundedChatSystem(lang models.Lang) string {
	var b strings.Builder
	b.WriteString("You are Tayyib, a friendly Umrah assistant on a public kiosk. ")
	b.WriteString("No official sources are available for this question. Provide cautious, general guidance.\n\n")
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Respond in %s.\n", lang.Name())
	b.WriteString("- Be conversational but concise.\n")
	b.WriteString("- Do not give fatwas. Do not compare madhahib.\n")
	b.WriteString("- Do not invent citations or claim a source.\n")
	fmt.Fprintf(&b, "- The visitor has already been shown this sentence: %q. Continue after it without repeating it.\n", Disclaimer(lang))
	b.WriteString("- Keep responses under 200 words.\n\n")
	b.WriteString(formattingRules(phrasesFor(lang).headings))
	return b.String()
}

func chatPrompt(system string, history []models.ChatMessage) completion.Prompt {
	msgs := make([]completion.Message, 0, len(history))
	for _, m := range history {
		role := completion.RoleUser
		if m.Role == models.RoleAssistant {
			role = completion.RoleAssistant
		}
		msgs = append(msgs, completion.Message{Role: role, Content: m.Content})
	}
	return completion.Prompt{
		System:      system,
		Messages:    msgs,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	}
}

// OfflineProse renders a curated answer as markdown sections.
func OfflineProse(answer models.Answer, lang models.Lang) string {
	h := phrasesFor(lang).headings
	var parts []string
	if answer.Direct != "" {
		parts = append(parts, "## "+h.direct, answer.Direct)
	}
	if len(answer.Steps) > 0 {
		parts = append(parts, "## "+h.steps, bullets(answer.Steps))
	}
	if len(answer.Mistakes) > 0 {
		parts = append(parts, "## "+h.mistakes, bullets(answer.Mistakes))
	}
	return strings.Join(parts, "\n\n")
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}
