package domain

import "time"

// StoreDriver selects the VectorStore implementation.
type StoreDriver string

// Available store drivers.
const (
	StoreMemory   StoreDriver = "memory"
	StoreSQLite   StoreDriver = "sqlite"
	StorePostgres StoreDriver = "postgres"
)

// IsValid returns true if the driver is recognised.
func (d StoreDriver) IsValid() bool {
	switch d {
	case StoreMemory, StoreSQLite, StorePostgres:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the driver.
func (d StoreDriver) Description() string {
	switch d {
	case StoreMemory:
		return "Memory (ephemeral)"
	case StoreSQLite:
		return "SQLite (local file)"
	case StorePostgres:
		return "PostgreSQL + pgvector"
	default:
		return "Unknown"
	}
}

// StoreSettings configures persistence.
type StoreSettings struct {
	Driver StoreDriver

	// DSN is the Postgres connection string.
	DSN string

	// DataDir holds the SQLite database file.
	DataDir string
}

// OpenAISettings configures the OpenAI-compatible API.
type OpenAISettings struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	AudioModel     string

	// Dimensions is the embedding vector size.
	Dimensions int

	// RequestsPerSecond caps outbound API calls; 0 disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if an API key is present.
func (o OpenAISettings) IsConfigured() bool {
	return o.APIKey != ""
}

// ChunkerSettings configures both chunking strategies.
type ChunkerSettings struct {
	BufferSize           int
	BreakpointPercentile float64
	MaxChunkChars        int
}

// RetrievalSettings configures multi-source retrieval.
type RetrievalSettings struct {
	EmbeddingTopK    int
	KeywordTopK      int
	ContextLimit     int
	ContextWindow    time.Duration
	ExcludeQueryText bool
	MinSimilarity    float64
	Fusion           FusionPolicy
	RerankEnabled    bool
	RerankTopK       int
	RerankURL        string
	RerankModel      string
	RerankAPIKey     string
	HistorySize      int
}

// SynthesisSettings configures tree reduction.
type SynthesisSettings struct {
	BudgetChars int
	FanIn       int
}

// Temperatures fixes generation variability per use case.
type Temperatures struct {
	Query      float64
	Suggest    float64
	Calendar   float64
	Diff       float64
	Transcript float64
}

// IntegrationSettings holds credentials for optional integrations.
type IntegrationSettings struct {
	GitHubToken       string
	GoogleAccessToken string
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr        string
	WatchDir    string
	WatchTenant string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Store        StoreSettings
	OpenAI       OpenAISettings
	Chunker      ChunkerSettings
	Retrieval    RetrievalSettings
	Synthesis    SynthesisSettings
	Suggest      SuggestThresholds
	Temperatures Temperatures
	Integrations IntegrationSettings
	Server       ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The OpenAI key is left empty; it must come from config or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Store: StoreSettings{
			Driver: StoreSQLite,
		},
		OpenAI: OpenAISettings{
			BaseURL:           "https://api.openai.com/v1",
			EmbeddingModel:    "text-embedding-3-small",
			ChatModel:         "gpt-4o",
			AudioModel:        "whisper-1",
			Dimensions:        1536,
			RequestsPerSecond: 5,
		},
		Chunker: ChunkerSettings{
			BufferSize:           1,
			BreakpointPercentile: 95,
			MaxChunkChars:        2000,
		},
		Retrieval: RetrievalSettings{
			EmbeddingTopK:    15,
			KeywordTopK:      5,
			ContextLimit:     20,
			ContextWindow:    24 * time.Hour,
			ExcludeQueryText: true,
			Fusion:           FusionKeepAll,
			RerankTopK:       5,
			HistorySize:      10,
		},
		Synthesis: SynthesisSettings{
			BudgetChars: 12000,
			FanIn:       4,
		},
		Suggest: DefaultSuggestThresholds(),
		Temperatures: Temperatures{
			Query:      0.5,
			Suggest:    0.2,
			Calendar:   0.1,
			Diff:       0.3,
			Transcript: 0,
		},
		Server: ServerSettings{
			Addr: ":8080",
		},
	}
}
