package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyStoreDriver  = "store.driver"
	KeyStoreDSN     = "store.dsn"
	KeyStoreDataDir = "store.data_dir"

	KeyOpenAIKey            = "openai.api_key"
	KeyOpenAIBaseURL        = "openai.base_url"
	KeyEmbeddingModel       = "openai.embedding_model"
	KeyChatModel            = "openai.chat_model"
	KeyAudioModel           = "openai.audio_model"
	KeyEmbeddingDimensions  = "openai.dimensions"
	KeyOpenAIRequestsPerSec = "openai.requests_per_second"

	KeyChunkBufferSize  = "chunker.buffer_size"
	KeyChunkPercentile  = "chunker.breakpoint_percentile"
	KeyChunkMaxChars    = "chunker.max_chunk_chars"
	KeyEmbeddingTopK    = "retrieval.embedding_top_k"
	KeyKeywordTopK      = "retrieval.keyword_top_k"
	KeyContextLimit     = "retrieval.context_limit"
	KeyContextWindow    = "retrieval.context_window"
	KeyExcludeQueryText = "retrieval.exclude_query_text"
	KeyMinSimilarity    = "retrieval.min_similarity"
	KeyFusion           = "retrieval.fusion"
	KeyRerankEnabled    = "retrieval.rerank_enabled"
	KeyRerankTopK       = "retrieval.rerank_top_k"
	KeyRerankURL        = "retrieval.rerank_url"
	KeyRerankModel      = "retrieval.rerank_model"
	KeyRerankAPIKey     = "retrieval.rerank_api_key"
	KeyHistorySize      = "retrieval.history_size"

	KeySynthesisBudget = "synthesis.budget_chars"
	KeySynthesisFanIn  = "synthesis.fan_in"

	KeySuggestMinScore      = "suggest.min_score"
	KeySuggestMinRelevance  = "suggest.min_relevance"
	KeySuggestMinSimilarity = "suggest.min_similarity"

	KeyTempQuery      = "temperature.query"
	KeyTempSuggest    = "temperature.suggest"
	KeyTempCalendar   = "temperature.calendar"
	KeyTempDiff       = "temperature.diff"
	KeyTempTranscript = "temperature.transcript"

	KeyGitHubToken       = "integrations.github_token"
	KeyGoogleAccessToken = "integrations.google_access_token"

	KeyServerAddr  = "server.addr"
	KeyWatchDir    = "server.watch_dir"
	KeyWatchTenant = "server.watch_tenant"
)

// keyKind is the value type accepted by Set.
type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

var knownKeys = map[string]keyKind{
	KeyStoreDriver: kindString, KeyStoreDSN: kindString, KeyStoreDataDir: kindString,
	KeyOpenAIKey: kindString, KeyOpenAIBaseURL: kindString, KeyEmbeddingModel: kindString,
	KeyChatModel: kindString, KeyAudioModel: kindString, KeyEmbeddingDimensions: kindInt,
	KeyOpenAIRequestsPerSec: kindFloat,
	KeyChunkBufferSize:      kindInt, KeyChunkPercentile: kindFloat, KeyChunkMaxChars: kindInt,
	KeyEmbeddingTopK: kindInt, KeyKeywordTopK: kindInt, KeyContextLimit: kindInt,
	KeyContextWindow: kindDuration, KeyExcludeQueryText: kindBool, KeyFusion: kindString,
	KeyRerankEnabled: kindBool, KeyRerankTopK: kindInt, KeyRerankURL: kindString,
	KeyRerankModel: kindString, KeyRerankAPIKey: kindString, KeyHistorySize: kindInt, KeyMinSimilarity: kindFloat,
	KeySynthesisBudget: kindInt, KeySynthesisFanIn: kindInt,
	KeySuggestMinScore: kindInt, KeySuggestMinRelevance: kindInt, KeySuggestMinSimilarity: kindFloat,
	KeyTempQuery: kindFloat, KeyTempSuggest: kindFloat, KeyTempCalendar: kindFloat,
	KeyTempDiff: kindFloat, KeyTempTranscript: kindFloat,
	KeyGitHubToken: kindString, KeyGoogleAccessToken: kindString,
	KeyServerAddr: kindString, KeyWatchDir: kindString, KeyWatchTenant: kindString,
}

// Keys returns every recognised configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService resolves application settings from a ConfigStore.
// Missing or invalid values fall back to domain.DefaultAppSettings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Store: domain.StoreSettings{
			Driver:  s.getDriver(d.Store.Driver),
			DSN:     s.getString(KeyStoreDSN, d.Store.DSN),
			DataDir: s.getString(KeyStoreDataDir, d.Store.DataDir),
		},
		OpenAI: domain.OpenAISettings{
			APIKey:            s.configStore.GetString(KeyOpenAIKey),
			BaseURL:           s.getString(KeyOpenAIBaseURL, d.OpenAI.BaseURL),
			EmbeddingModel:    s.getString(KeyEmbeddingModel, d.OpenAI.EmbeddingModel),
			ChatModel:         s.getString(KeyChatModel, d.OpenAI.ChatModel),
			AudioModel:        s.getString(KeyAudioModel, d.OpenAI.AudioModel),
			Dimensions:        s.getInt(KeyEmbeddingDimensions, d.OpenAI.Dimensions),
			RequestsPerSecond: s.getFloat(KeyOpenAIRequestsPerSec, d.OpenAI.RequestsPerSecond),
		},
		Chunker: domain.ChunkerSettings{
			BufferSize:           s.getInt(KeyChunkBufferSize, d.Chunker.BufferSize),
			BreakpointPercentile: s.getFloat(KeyChunkPercentile, d.Chunker.BreakpointPercentile),
			MaxChunkChars:        s.getInt(KeyChunkMaxChars, d.Chunker.MaxChunkChars),
		},
		Retrieval: domain.RetrievalSettings{
			EmbeddingTopK:    s.getInt(KeyEmbeddingTopK, d.Retrieval.EmbeddingTopK),
			KeywordTopK:      s.getInt(KeyKeywordTopK, d.Retrieval.KeywordTopK),
			ContextLimit:     s.getInt(KeyContextLimit, d.Retrieval.ContextLimit),
			ContextWindow:    s.getDuration(KeyContextWindow, d.Retrieval.ContextWindow),
			ExcludeQueryText: s.getBool(KeyExcludeQueryText, d.Retrieval.ExcludeQueryText),
			MinSimilarity:    s.getFloat(KeyMinSimilarity, d.Retrieval.MinSimilarity),
			Fusion:           s.getFusion(d.Retrieval.Fusion),
			RerankEnabled:    s.getBool(KeyRerankEnabled, d.Retrieval.RerankEnabled),
			RerankTopK:       s.getInt(KeyRerankTopK, d.Retrieval.RerankTopK),
			RerankURL:        s.getString(KeyRerankURL, d.Retrieval.RerankURL),
			RerankModel:      s.getString(KeyRerankModel, d.Retrieval.RerankModel),
			RerankAPIKey:     s.configStore.GetString(KeyRerankAPIKey),
			HistorySize:      s.getInt(KeyHistorySize, d.Retrieval.HistorySize),
		},
		Synthesis: domain.SynthesisSettings{
			BudgetChars: s.getInt(KeySynthesisBudget, d.Synthesis.BudgetChars),
			FanIn:       s.getInt(KeySynthesisFanIn, d.Synthesis.FanIn),
		},
		Suggest: domain.SuggestThresholds{
			MinScore:      s.getInt(KeySuggestMinScore, d.Suggest.MinScore),
			MinRelevance:  s.getInt(KeySuggestMinRelevance, d.Suggest.MinRelevance),
			MinSimilarity: s.getFloat(KeySuggestMinSimilarity, d.Suggest.MinSimilarity),
		},
		Temperatures: domain.Temperatures{
			Query:      s.getFloat(KeyTempQuery, d.Temperatures.Query),
			Suggest:    s.getFloat(KeyTempSuggest, d.Temperatures.Suggest),
			Calendar:   s.getFloat(KeyTempCalendar, d.Temperatures.Calendar),
			Diff:       s.getFloat(KeyTempDiff, d.Temperatures.Diff),
			Transcript: s.getFloat(KeyTempTranscript, d.Temperatures.Transcript),
		},
		Integrations: domain.IntegrationSettings{
			GitHubToken:       s.configStore.GetString(KeyGitHubToken),
			GoogleAccessToken: s.configStore.GetString(KeyGoogleAccessToken),
		},
		Server: domain.ServerSettings{
			Addr:        s.getString(KeyServerAddr, d.Server.Addr),
			WatchDir:    s.getString(KeyWatchDir, d.Server.WatchDir),
			WatchTenant: s.getString(KeyWatchTenant, d.Server.WatchTenant),
		},
	}

	return settings, nil
}

// Set validates and stores one configuration key.
// String values are parsed into the key's type.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := knownKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrValidation, key)
	}
	parsed, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrValidation, key, err)
	}
	switch key {
	case KeyStoreDriver:
		if !domain.StoreDriver(parsed.(string)).IsValid() {
			return fmt.Errorf("%w: unknown store driver %q", domain.ErrValidation, parsed)
		}
	case KeyFusion:
		if !domain.FusionPolicy(parsed.(string)).IsValid() {
			return fmt.Errorf("%w: unknown fusion policy %q", domain.ErrValidation, parsed)
		}
	case KeyMinSimilarity, KeySuggestMinSimilarity:
		if v := parsed.(float64); v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1", domain.ErrValidation, key)
		}
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys lists every recognised configuration key, sorted.
func (s *SettingsService) Keys() []string {
	return Keys()
}

// ConfigPath returns the path of the backing configuration file.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func parseValue(kind keyKind, value any) (any, error) {
	str, isString := value.(string)
	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		}
		if isString {
			return strconv.ParseInt(strings.TrimSpace(str), 10, 64)
		}
	case kindFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
		if isString {
			return strconv.ParseFloat(strings.TrimSpace(str), 64)
		}
	case kindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
		if isString {
			return strconv.ParseBool(strings.TrimSpace(str))
		}
	case kindDuration:
		if v, ok := value.(time.Duration); ok {
			return v.String(), nil
		}
		if isString {
			if _, err := time.ParseDuration(str); err != nil {
				return nil, err
			}
			return str, nil
		}
	default:
		if isString {
			return str, nil
		}
	}
	return nil, fmt.Errorf("unexpected value type %T", value)
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	if val := s.configStore.GetInt(key); val > 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getDriver(defaultVal domain.StoreDriver) domain.StoreDriver {
	driver := domain.StoreDriver(s.configStore.GetString(KeyStoreDriver))
	if !driver.IsValid() {
		return defaultVal
	}
	return driver
}

func (s *SettingsService) getFusion(defaultVal domain.FusionPolicy) domain.FusionPolicy {
	policy := domain.FusionPolicy(s.configStore.GetString(KeyFusion))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}
