package chatbot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"medichat-backend/internal/models"
)

const (
	// ragTopK is the fixed number of references requested per question.
	ragTopK = 2

	// contextTruncateLen caps how much of a reference span is rendered
	// into the prompt. The stored source keeps the full text.
	contextTruncateLen = 450

	noReferencesText = "No relevant references found."
)

// LLM is the chat-completion collaborator. It receives the assembled
// system prompt, the prior turns and the new user message, and returns
// the generated text. No retries happen at this level.
type LLM interface {
	Chat(ctx context.Context, system string, history []models.ChatMessage, message string) (string, error)
}

// Searcher is the retrieval collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.PubMedSource, error)
}

// Bot owns the conversation state for one session: chat history, the
// active patient-context text, and whether answers are grounded with
// corpus references.
//
// Bot is not safe for concurrent Ask calls; the host must serialize
// calls per session.
type Bot struct {
	llm            LLM
	searcher       Searcher
	useRAG         bool
	patientContext string
	history        []models.ChatMessage
}

func New(llm LLM, searcher Searcher, useRAG bool) *Bot {
	return &Bot{
		llm:      llm,
		searcher: searcher,
		useRAG:   useRAG,
	}
}

// SetPatientContext replaces the patient-context text used in subsequent
// prompts. An empty string removes the section content.
func (b *Bot) SetPatientContext(patientContext string) {
	b.patientContext = patientContext
}

// ClearHistory resets the conversation to empty. Idempotent.
func (b *Bot) ClearHistory() {
	b.history = nil
}

// History returns a copy of the conversation so far.
func (b *Bot) History() []models.ChatMessage {
	out := make([]models.ChatMessage, len(b.history))
	copy(out, b.history)
	return out
}

// Ask produces one grounded response for the user message. On success the
// (user, assistant) pair is appended to the history; on model failure the
// history is left untouched and the error is returned to the host.
func (b *Bot) Ask(ctx context.Context, prompt string) (*models.ChatResponse, error) {
	var sources []models.PubMedSource

	ragContext := ""
	if b.useRAG {
		found, err := b.searcher.Search(ctx, prompt, ragTopK)
		if err != nil {
			// Retrieval failures degrade to an unreferenced answer
			// instead of aborting the turn.
			log.Printf("chatbot: retrieval failed, answering without references: %v", err)
		} else {
			sources = found
		}
		ragContext = buildRAGContext(sources)
	}

	system := systemPrompt(b.patientContext, ragContext, b.useRAG)

	reply, err := b.llm.Chat(ctx, system, b.history, prompt)
	if err != nil {
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	b.history = append(b.history,
		models.ChatMessage{Role: models.RoleUser, Content: prompt},
		models.ChatMessage{Role: models.RoleAssistant, Content: reply},
	)

	return &models.ChatResponse{Reply: reply, Sources: sources}, nil
}

// buildRAGContext renders retrieved sources into the reference section of
// the prompt. Spans longer than contextTruncateLen are cut with a trailing
// ellipsis at render time only.
func buildRAGContext(sources []models.PubMedSource) string {
	if len(sources) == 0 {
		return noReferencesText
	}

	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		var b strings.Builder
		fmt.Fprintf(&b, "[PMID: %s, Year: %s]\n", src.PMID, src.Year)
		fmt.Fprintf(&b, "Question: %s\n", src.Question)

		n := len(src.Contexts)
		if len(src.Labels) < n {
			n = len(src.Labels)
		}
		for i := 0; i < n; i++ {
			span := src.Contexts[i]
			// Character count, not bytes: multibyte spans must not be
			// cut early or mid-rune.
			if runes := []rune(span); len(runes) > contextTruncateLen {
				span = string(runes[:contextTruncateLen]) + "..."
			}
			fmt.Fprintf(&b, "%s: %s\n", src.Labels[i], span)
		}

		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n---\n")
}

func systemPrompt(patientContext, ragContext string, withRAG bool) string {
	var b strings.Builder

	b.WriteString("You are an AI medical information assistant.\n\n")
	b.WriteString("CURRENT ACTIVE MEDICATIONS:\n")
	if patientContext == "" {
		patientContext = "No active medications."
	}
	b.WriteString(patientContext)
	b.WriteString("\n")

	if withRAG {
		b.WriteString("\nREFERENCE KNOWLEDGE BASE (use this to inform your answer):\n")
		b.WriteString(ragContext)
		b.WriteString("\n")
	}

	b.WriteString("\nSTRICT RULES:\n")
	b.WriteString("1. Answer in 2-4 short sentences maximum. Be direct.\n")
	b.WriteString("2. NEVER diagnose conditions or prescribe/recommend medications the patient does not already take.\n")
	b.WriteString("3. NEVER invent disease names, drug names, or mix medical information.\n")
	b.WriteString("4. NEVER mention institution names, signatures, or introduce yourself.\n")
	b.WriteString("5. If asked about treatment, say \"Consult a healthcare professional.\"\n\n")
	b.WriteString("If unsure, say \"I don't have reliable information on this topic. Please consult a healthcare professional.\"\n")

	return b.String()
}
