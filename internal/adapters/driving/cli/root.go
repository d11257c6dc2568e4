// Package cli provides the cobra command tree for CoWorker.
//
// Commands reach the core through driving ports set once at start-up with
// SetServices; a command whose service is missing fails with a clear error
// instead of panicking.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/core/ports/driving"
	"github.com/custodia-labs/coworker/internal/logger"
)

// version is set at build time or through SetVersion.
var version = "dev"

var verbose bool

var (
	ingestionService driving.IngestionService
	queryService     driving.QueryService
	calendarService  driving.CalendarService
	diffService      driving.DiffService
	settingsService  driving.SettingsService
)

// Services are the driving ports the commands use. Calendar and Diff are optional.
type Services struct {
	Ingestion driving.IngestionService
	Query     driving.QueryService
	Calendar  driving.CalendarService
	Diff      driving.DiffService
	Settings  driving.SettingsService
}

// SetServices injects the services used by every command.
func SetServices(s Services) {
	ingestionService = s.Ingestion
	queryService = s.Query
	calendarService = s.Calendar
	diffService = s.Diff
	settingsService = s.Settings
}

// Bootstrap builds the core services. It runs once, before the first
// command that needs them.
type Bootstrap func(ctx context.Context) (Services, error)

var bootstrap Bootstrap

// SetBootstrap registers the function that builds services on demand.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// annotationStandalone marks commands that run without the core services.
const annotationStandalone = "standalone"

func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationStandalone] == "true" {
			return false
		}
	}
	return true
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "coworker",
	Short: "Team knowledge assistant over chats and documents",
	Long: `CoWorker stores a company's chat messages and documents and answers
questions from them. Every operation is scoped to one tenant (company id).

Run 'coworker serve' for the HTTP API or 'coworker mcp serve' for AI assistants.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if bootstrap == nil || !needsServices(cmd) {
			return nil
		}
		services, err := bootstrap(cmd.Context())
		bootstrap = nil
		if err != nil {
			return err
		}
		SetServices(services)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
