package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

// Keys edited interactively. They match the settings service's key names.
//
//nolint:gosec // G101: config key names, not credentials.
const (
	keyStoreDriver  = "store.driver"
	keyStoreDSN     = "store.dsn"
	keyStoreDataDir = "store.data_dir"
	keyOpenAIKey    = "openai.api_key"
)

var secretKeys = map[string]bool{
	keyOpenAIKey:                       true,
	keyStoreDSN:                        true,
	"retrieval.rerank_api_key":         true,
	"integrations.github_token":        true,
	"integrations.google_access_token": true,
}

var settingsCmd = &cobra.Command{
	Use:         "settings",
	Short:       "Manage application settings",
	Annotations: map[string]string{annotationStandalone: "true"},
	Long: `View and change settings stored in the config file.

Environment variables override the file; OPENAI_API_KEY, GITHUB_TOKEN,
GOOGLE_ACCESS_TOKEN and DOCUMENT_DATABASE_URL are honoured, as is
COWORKER_<KEY> for any key (dots become underscores).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [key]",
	Short: "Enter a secret without echo",
	Long: `Prompts for a secret value without echoing it. The key defaults to
openai.api_key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsSetKey,
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Choose the storage backend",
	Long: `Interactively choose where documents and vectors are stored.

Available drivers:
  memory   - in-process, lost on exit (tests and demos)
  sqlite   - local database file (default)
  postgres - PostgreSQL with the pgvector extension`,
	RunE: runSettingsStore,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	RunE:  runSettingsKeys,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if settingsService == nil {
			return errSettingsNotConfigured
		}
		cmd.Println(settingsService.ConfigPath())
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsStoreCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Driver: %s\n", settings.Store.Driver.Description())
	switch settings.Store.Driver {
	case domain.StorePostgres:
		cmd.Printf("  DSN: %s\n", maskSecret(settings.Store.DSN))
	case domain.StoreSQLite:
		cmd.Printf("  Data dir: %s\n", orDefault(settings.Store.DataDir))
	}
	cmd.Println()

	cmd.Println("[OpenAI]")
	cmd.Printf("  Base URL: %s\n", settings.OpenAI.BaseURL)
	cmd.Printf("  Chat model: %s\n", settings.OpenAI.ChatModel)
	cmd.Printf("  Embedding model: %s (%d dims)\n", settings.OpenAI.EmbeddingModel, settings.OpenAI.Dimensions)
	cmd.Printf("  Audio model: %s\n", settings.OpenAI.AudioModel)
	cmd.Printf("  API Key: %s\n", maskSecret(settings.OpenAI.APIKey))
	cmd.Println()

	cmd.Println("[Retrieval]")
	r := settings.Retrieval
	cmd.Printf("  Top K: embedding %d, keyword %d, context %d\n", r.EmbeddingTopK, r.KeywordTopK, r.ContextLimit)
	cmd.Printf("  Context window: %s\n", r.ContextWindow)
	cmd.Printf("  Fusion: %s\n", r.Fusion)
	cmd.Printf("  Min similarity: %.2f\n", r.MinSimilarity)
	if r.RerankEnabled {
		cmd.Printf("  Rerank: %s (top %d)\n", r.RerankURL, r.RerankTopK)
	} else {
		cmd.Printf("  Rerank: off\n")
	}
	cmd.Println()

	cmd.Println("[Suggest]")
	cmd.Printf("  Min score: %d\n", settings.Suggest.MinScore)
	cmd.Printf("  Min relevance: %d\n", settings.Suggest.MinRelevance)
	cmd.Printf("  Min similarity: %.2f\n", settings.Suggest.MinSimilarity)
	cmd.Println()

	cmd.Println("[Integrations]")
	cmd.Printf("  GitHub token: %s\n", maskSecret(settings.Integrations.GitHubToken))
	cmd.Printf("  Google access token: %s\n", maskSecret(settings.Integrations.GoogleAccessToken))
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	if settings.Server.WatchDir != "" {
		cmd.Printf("  Watch: %s (tenant %s)\n", settings.Server.WatchDir, settings.Server.WatchTenant)
	}
	cmd.Println()

	if !settings.OpenAI.IsConfigured() {
		cmd.Println("Warning: no OpenAI API key; run 'coworker settings set-key' or set OPENAI_API_KEY.")
	}
	cmd.Printf("Config: %s\n", settingsService.ConfigPath())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	value := args[1]
	if secretKeys[args[0]] {
		value = maskSecret(value)
	}
	cmd.Printf("%s = %s\n", args[0], value)
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	key := keyOpenAIKey
	if len(args) == 1 {
		key = args[0]
	}

	cmd.Printf("Enter %s: ", key)
	secret := readPassword(cmd.InOrStdin())
	cmd.Println()
	if secret == "" {
		cmd.Println("No value entered; nothing changed.")
		return nil
	}
	if err := settingsService.Set(key, secret); err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", key, maskSecret(secret))
	return nil
}

func runSettingsStore(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	reader := bufio.NewReader(cmd.InOrStdin())

	drivers := []domain.StoreDriver{domain.StoreMemory, domain.StoreSQLite, domain.StorePostgres}
	cmd.Println("Select storage backend:")
	for i, d := range drivers {
		cmd.Printf("  %d. %s\n", i+1, d.Description())
	}
	cmd.Print("Choice [2]: ")
	driver := drivers[parseChoice(readLine(reader), len(drivers), 2)-1]

	if err := settingsService.Set(keyStoreDriver, string(driver)); err != nil {
		return err
	}

	switch driver {
	case domain.StorePostgres:
		cmd.Print("Connection string (postgres://...): ")
		if dsn := readLine(reader); dsn != "" {
			if err := settingsService.Set(keyStoreDSN, dsn); err != nil {
				return err
			}
		}
	case domain.StoreSQLite:
		cmd.Print("Data directory (empty for default): ")
		if dir := readLine(reader); dir != "" {
			if err := settingsService.Set(keyStoreDataDir, dir); err != nil {
				return err
			}
		}
	}

	cmd.Printf("Storage set to %s\n", driver.Description())
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsNotConfigured
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(bufio.NewReader(in))
}

func maskSecret(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}
