package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptExtraction asks for entities and relations as JSON.
	// Placeholders: %s entity types, %s relation types, %s text.
	PromptExtraction = "extraction"

	// PromptExtractionRepair re-asks after unparseable output.
	// Placeholders: %s entity types, %s relation types, %s text, %s previous output.
	PromptExtractionRepair = "extraction_repair"

	// PromptSynthesis asks for a grounded answer.
	// Placeholders: %s context, %s question.
	PromptSynthesis = "synthesis"
)

// PromptStoreAware is an optional interface for services that can use custom prompts.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable prompts.
	SetPromptStore(store PromptStore)
}
