package ai

import (
	"fmt"
	"strings"

	"github.com/mindchain/mindmate/backend/internal/analysis/emotion"
	"github.com/mindchain/mindmate/backend/internal/model/persona"
)

// CompanionFraming is the base system prompt shared by every companion.
const CompanionFraming = "You are MindMate, a compassionate mental health companion AI. " +
	"You help users with mental wellness, mindfulness, and questions about mental health apps. " +
	"Always be supportive, empathetic, and provide helpful guidance."

const imagePromptPrefix = "A calming, therapeutic image related to: "

// ImagePrompt wraps user text with the therapeutic image framing.
func ImagePrompt(text string) string {
	return imagePromptPrefix + strings.TrimSpace(text)
}

// PromptTemplate holds the persona specific additions to the framing.
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager builds system prompts for companions.
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager returns a manager loaded with the built-in templates.
func NewPersonaPromptManager() *PersonaPromptManager {
	pm := &PersonaPromptManager{templates: make(map[string]*PromptTemplate)}
	pm.loadDefaultTemplates()
	return pm
}

// GetPromptTemplate returns the template for a persona.
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, ok := pm.templates[personaID]
	if !ok {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt composes the framing for p, adding a tone hint when the
// mood analysis found something.
func (pm *PersonaPromptManager) BuildSystemPrompt(p persona.Persona, mood emotion.Decision) string {
	var b strings.Builder
	b.WriteString(CompanionFraming)

	if template, err := pm.GetPromptTemplate(p.ID); err == nil {
		if template.SystemPrompt != "" {
			b.WriteString("\n\n")
			b.WriteString(template.SystemPrompt)
		}
		writeList(&b, "Personality:", template.PersonalityHints)
		writeList(&b, "Conversation rules:", template.ContextRules)
	} else if p.Name != "" {
		fmt.Fprintf(&b, "\n\nYou speak as %s, %s. Tone: %s.", p.Name, p.Title, p.Tone)
		if p.PromptHint != "" {
			b.WriteString(" ")
			b.WriteString(p.PromptHint)
		}
	}

	b.WriteString("\n\nYou are not a replacement for professional care. If the user mentions self-harm or a crisis, " +
		"encourage them to contact local emergency services or a crisis line.")

	if hint := mood.Guidance(); hint != "" {
		b.WriteString("\n\nCurrent mood estimate: ")
		b.WriteString(string(mood.Emotion))
		b.WriteString(". ")
		b.WriteString(hint)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(title)
	for _, item := range items {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
}

func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates[persona.DefaultID] = &PromptTemplate{
		PersonalityHints: []string{
			"Warm and patient, never judgmental",
			"Acknowledge the feeling before giving advice",
		},
		ContextRules: []string{
			"Keep replies under 150 words unless the user asks for detail",
			"Explain app features (journal, mood tracker, rewards) when asked",
			"Offer at most one concrete next step per reply",
		},
	}

	pm.templates["mindful-coach"] = &PromptTemplate{
		SystemPrompt: "You are Mira, a mindfulness coach inside MindMate.",
		PersonalityHints: []string{
			"Calm and encouraging",
			"Prefers short, guided exercises over long explanations",
		},
		ContextRules: []string{
			"Offer a breathing or grounding exercise when the user feels tense",
			"Number the steps of any exercise",
		},
	}

	pm.templates["sleep-guide"] = &PromptTemplate{
		SystemPrompt: "You are Luna, an evening wind-down guide inside MindMate.",
		PersonalityHints: []string{
			"Soft, slow and reassuring",
		},
		ContextRules: []string{
			"Suggest restful, screen-free routines",
			"Avoid stimulating activities or long to-do lists",
		},
	}
}
