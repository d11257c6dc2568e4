package file

import (
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/coworker/internal/core/ports/driven"
)

// Ensure EnvStore implements the interface.
var _ driven.ConfigStore = (*EnvStore)(nil)

// EnvPrefix qualifies environment overrides: "retrieval.keyword_top_k"
// is read from COWORKER_RETRIEVAL_KEYWORD_TOP_K.
const EnvPrefix = "COWORKER_"

// aliases maps well-known variables onto config keys.
//
//nolint:gosec // G101: These are variable names, not credentials.
var aliases = map[string]string{
	"openai.api_key":                   "OPENAI_API_KEY",
	"store.dsn":                        "DOCUMENT_DATABASE_URL",
	"integrations.github_token":        "GITHUB_TOKEN",
	"integrations.google_access_token": "GOOGLE_ACCESS_TOKEN",
}

// EnvStore overlays environment variables on a backing ConfigStore.
// Reads prefer the environment; writes go to the backing store.
type EnvStore struct {
	driven.ConfigStore
	lookup func(string) (string, bool)
}

// NewEnvStore wraps base with environment overrides.
func NewEnvStore(base driven.ConfigStore) *EnvStore {
	return &EnvStore{ConfigStore: base, lookup: os.LookupEnv}
}

// EnvName returns the environment variable consulted for key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *EnvStore) env(key string) (string, bool) {
	if v, ok := s.lookup(EnvName(key)); ok {
		return v, true
	}
	if alias, ok := aliases[key]; ok {
		return s.lookup(alias)
	}
	return "", false
}

// Get returns the environment value as a string when set.
func (s *EnvStore) Get(key string) (any, bool) {
	if v, ok := s.env(key); ok {
		return v, true
	}
	return s.ConfigStore.Get(key)
}

// GetString retrieves a string value.
func (s *EnvStore) GetString(key string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	return s.ConfigStore.GetString(key)
}

// GetInt retrieves an integer value. Unparseable overrides are ignored.
func (s *EnvStore) GetInt(key string) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return s.ConfigStore.GetInt(key)
}

// GetFloat retrieves a numeric value. Unparseable overrides are ignored.
func (s *EnvStore) GetFloat(key string) float64 {
	if v, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return s.ConfigStore.GetFloat(key)
}

// GetBool retrieves a boolean value. Unparseable overrides are ignored.
func (s *EnvStore) GetBool(key string) bool {
	if v, ok := s.env(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return s.ConfigStore.GetBool(key)
}
