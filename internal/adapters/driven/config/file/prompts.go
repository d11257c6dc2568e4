package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk,
// falling back to embedded defaults. Files are created lazily on the
// first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

const assistantRules = `You are a colleague and an expert Q&A system trusted around the world.
Your name is CoWorker.
You analyse corporate correspondence and documentation to speed up work and improve communication by answering questions.
Some rules to follow:
1. Never directly reference the given context in your answer.
2. Avoid statements like 'Based on the context, ...' or 'The context information ...' or anything along those lines.
3. Answer coherently and briefly within 2 sentences.
4. Answer in the language of the last message.
5. Match the style of the last message, or use a less formal, friendly but workable style.
6. Answer as a person and a friend.
7. Don't use greetings.
8. Use only the provided context, not prior knowledge.`

// defaultPrompts contains embedded default prompts.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptQuerySystem: assistantRules + `
If the context does not contain the answer, reply with exactly NO_ANSWER.`,

	driven.PromptSuggestSystem: assistantRules + `
9. Don't retell the last message; if the answer is a retelling, lower the relevance.
Answer in JSON with the fields "message", "score" and "relevance".
Rate "score" from 1 to 10 by whether the last message was addressed specifically to CoWorker.
Rate "relevance" from 1 to 10 by how useful and grounded your message is.`,

	driven.PromptCalendarSystem: `You manage a user's Google Calendar.
Given the user's calendars, existing events and a command, decide on exactly one action.
Return JSON with:
- "action": one of "insert", "update", "delete"
- "event": {"calendarId", "eventId" (required for update and delete), "requestBody": {"summary", "description", "start", "end"}}
- "message": a short confirmation in the language of the command
Times use {"dateTime": RFC3339, "timeZone": IANA name} or {"date": "yyyy-mm-dd"} for all-day events.
When moving an event keep its duration unless the command says otherwise.`,

	driven.PromptDiffSystem: `You are a senior engineer reviewing a code change.
Summarise what the change does, why it likely matters and anything risky.
Be concise; use short bullet points grouped by file or concern.`,

	driven.PromptReduce: `Condense the context below into notes that keep every fact relevant to the question.
Keep names, numbers, dates and identifiers verbatim. Do not answer the question yet.`,

	driven.PromptTranscriptFix: `Fix spelling, punctuation and capitalisation of the transcript below.
Do not translate, summarise or add content. Return only the corrected text.`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.coworker/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, DefaultDirName, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Names returns the names of all embedded prompts, sorted.
func Names() []string {
	names := make([]string, 0, len(defaultPrompts))
	for name := range defaultPrompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt file %q is empty", name)
	}
	return prompt, nil
}
