package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names fall back to an embedded default when one exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names. None of them carry format placeholders;
// context and questions are sent as separate messages.
const (
	// PromptQuerySystem answers a question from retrieved context.
	PromptQuerySystem = "query_system"

	// PromptSuggestSystem proposes a reply and scores it as JSON.
	PromptSuggestSystem = "suggest_system"

	// PromptCalendarSystem turns a command into a calendar action as JSON.
	PromptCalendarSystem = "calendar_system"

	// PromptDiffSystem summarises a code change.
	PromptDiffSystem = "diff_system"

	// PromptReduce condenses a group of context blocks into notes for the next tree level.
	PromptReduce = "reduce"

	// PromptTranscriptFix fixes spelling and punctuation of a transcript.
	PromptTranscriptFix = "transcript_fix"
)
