// Command coworker is the CoWorker server and CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/coworker/cgo/treesitter"
	"github.com/custodia-labs/coworker/internal/adapters/driven/ai"
	"github.com/custodia-labs/coworker/internal/adapters/driven/config/file"
	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/coworker/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/coworker/internal/adapters/driving/cli"
	"github.com/custodia-labs/coworker/internal/connectors/github"
	"github.com/custodia-labs/coworker/internal/connectors/google"
	"github.com/custodia-labs/coworker/internal/connectors/google/calendar"
	"github.com/custodia-labs/coworker/internal/core/domain"
	"github.com/custodia-labs/coworker/internal/core/ports/driven"
	"github.com/custodia-labs/coworker/internal/core/services"
	"github.com/custodia-labs/coworker/internal/logger"
	"github.com/custodia-labs/coworker/internal/normalisers"
	"github.com/custodia-labs/coworker/internal/normalisers/audio"
	"github.com/custodia-labs/coworker/internal/normalisers/code"
	"github.com/custodia-labs/coworker/internal/normalisers/markdown"
	"github.com/custodia-labs/coworker/internal/normalisers/pdf"
	"github.com/custodia-labs/coworker/internal/normalisers/plaintext"
	"github.com/custodia-labs/coworker/internal/postprocessors"
	"github.com/custodia-labs/coworker/internal/postprocessors/chunker"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configStore, err := file.NewConfigStore(os.Getenv("COWORKER_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	settingsService := services.NewSettingsService(file.NewEnvStore(configStore))

	app := &application{settings: settingsService}
	defer app.close()

	cli.SetVersion(version)
	cli.SetServices(cli.Services{Settings: settingsService})
	cli.SetBootstrap(app.build)

	if err := cli.Execute(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// application owns the resources opened by build.
type application struct {
	settings *services.SettingsService
	closers  []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build wires every service from the resolved settings.
func (a *application) build(ctx context.Context) (cli.Services, error) {
	settings, err := a.settings.Get()
	if err != nil {
		return cli.Services{}, fmt.Errorf("load settings: %w", err)
	}

	aiServices, err := ai.Init(settings)
	if err != nil {
		return cli.Services{}, err
	}
	a.closers = append(a.closers, aiServices.Close)

	store, err := openStore(ctx, settings)
	if err != nil {
		return cli.Services{}, err
	}
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store: %v", err)
		}
	})

	prompts, err := file.NewPromptStore(os.Getenv("COWORKER_PROMPT_DIR"))
	if err != nil {
		return cli.Services{}, fmt.Errorf("prompts: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, postprocessors.Deps{
		Embedder:    aiServices.EmbeddingService,
		CodeParsers: []driven.CodeParser{chunker.GoParser{}, treesitter.New()},
	})
	pipeline, err := registry.BuildPipeline(postprocessors.DefaultStages(settings.Chunker)...)
	if err != nil {
		return cli.Services{}, fmt.Errorf("ingestion pipeline: %w", err)
	}

	fixPrompt, err := prompts.Load(driven.PromptTranscriptFix)
	if err != nil {
		return cli.Services{}, fmt.Errorf("prompts: %w", err)
	}
	extractors := normalisers.NewRegistry(
		plaintext.New(),
		markdown.New(),
		code.New(),
		pdf.New(),
		audio.New(audio.Config{
			Transcriber: aiServices.Transcriber,
			LLM:         aiServices.LLMService,
			FixPrompt:   fixPrompt,
			Temperature: settings.Temperatures.Transcript,
		}),
	)

	retrieval := services.NewRetrievalService(store, aiServices.EmbeddingService, settings.Retrieval)
	synthesizer := services.NewResponseSynthesizer(aiServices.LLMService, prompts, settings.Synthesis)

	diffSource, err := openDiffSource(settings.Integrations)
	if err != nil {
		return cli.Services{}, err
	}
	calendarClient, err := openCalendarClient(ctx, settings.Integrations)
	if err != nil {
		return cli.Services{}, err
	}

	ingestion := services.NewIngestionService(store, pipeline, extractors)
	ingestion.SetEmbeddingModel(aiServices.EmbeddingService.ModelName())

	logger.Debug("services ready: store=%s model=%s", settings.Store.Driver, settings.OpenAI.ChatModel)
	return cli.Services{
		Ingestion: ingestion,
		Query:     services.NewQueryService(retrieval, aiServices.Reranker, synthesizer, prompts, *settings),
		Calendar:  services.NewCalendarService(retrieval, synthesizer, prompts, calendarClient, *settings),
		Diff:      services.NewDiffService(synthesizer, prompts, diffSource, settings.Temperatures.Diff),
		Settings:  a.settings,
	}, nil
}

// openStore opens the configured vector store. The Postgres pool is
// shared by every request for the life of the process.
func openStore(ctx context.Context, settings *domain.AppSettings) (driven.VectorStore, error) {
	switch settings.Store.Driver {
	case domain.StoreMemory:
		return memory.NewVectorStore(), nil
	case domain.StorePostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:        settings.Store.DSN,
			Dimensions: settings.OpenAI.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case domain.StoreSQLite, "":
		store, err := sqlite.NewStore(settings.Store.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", domain.ErrValidation, settings.Store.Driver)
	}
}

func openDiffSource(integrations domain.IntegrationSettings) (driven.DiffSource, error) {
	if integrations.GitHubToken == "" {
		return nil, nil
	}
	client, err := github.NewClient(github.Config{Token: integrations.GitHubToken})
	if err != nil {
		return nil, fmt.Errorf("github: %w", err)
	}
	return client, nil
}

func openCalendarClient(ctx context.Context, integrations domain.IntegrationSettings) (driven.CalendarClient, error) {
	if integrations.GoogleAccessToken == "" {
		return nil, nil
	}
	client, err := calendar.New(ctx, google.StaticTokenSource(integrations.GoogleAccessToken))
	if err != nil {
		return nil, fmt.Errorf("google calendar: %w", err)
	}
	return client, nil
}
