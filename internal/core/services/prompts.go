package services

import (
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// defaultExtractionPrompt is the fallback when no PromptStore is configured.
// Placeholders: entity types, relation types, text.
const defaultExtractionPrompt = `You are an entity and relation extraction system. Extract named entities and the relationships between them from the text below.

Entity types (use exactly one of): %s
Relation types (use exactly one of): %s

Rules:
- Every relation "source" and "target" MUST be the exact "name" of an entity in your "entities" list.
- Do not invent facts that are not stated in the text.
- Return ONLY a JSON object, no explanations, no markdown.

Format:
{"entities": [{"name": "Apple Inc.", "type": "ORGANIZATION"}], "relations": [{"source": "Apple Inc.", "relation": "OPERATES_IN", "target": "Technology"}]}

Text:
%s`

// defaultExtractionRepairPrompt re-asks after unparseable output.
// Placeholders: entity types, relation types, text, previous output.
const defaultExtractionRepairPrompt = `You previously returned invalid output for an extraction task. Return the corrected result.

Entity types (use exactly one of): %s
Relation types (use exactly one of): %s

RULES:
- Output ONLY valid JSON with the keys "entities" and "relations".
- Output MUST start with '{' and end with '}'.
- Every relation "source" and "target" MUST be the exact "name" of an entity in "entities".
- Do NOT include explanations or markdown.

Text:
%s

INVALID OUTPUT:
<<<
%s
>>>

Return the corrected JSON only.`

// defaultSynthesisPrompt asks for an answer grounded in retrieved evidence.
// Placeholders: context, question.
const defaultSynthesisPrompt = `You are a helpful assistant answering questions based on the provided context.
Use ONLY the information from the context below to answer. If the context doesn't contain
enough information, say so clearly.

CONTEXT:
%s

QUESTION: %s

Instructions:
1. Answer the question directly and concisely
2. Reference specific sources when possible (e.g., "According to [Source 1]...")
3. Use the knowledge graph relationships to connect facts across sources
4. If you're uncertain, express that uncertainty

ANSWER:`

// DefaultPrompts returns the built-in prompt templates keyed by name.
func DefaultPrompts() map[string]string {
	return map[string]string{
		driven.PromptExtraction:       defaultExtractionPrompt,
		driven.PromptExtractionRepair: defaultExtractionRepairPrompt,
		driven.PromptSynthesis:        defaultSynthesisPrompt,
	}
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func loadPrompt(store driven.PromptStore, name, fallback string) string {
	if store == nil {
		return fallback
	}
	prompt, err := store.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
