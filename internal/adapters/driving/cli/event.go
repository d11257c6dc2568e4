package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

var (
	eventTenant    string
	eventCalendars string
	eventEvents    string
	eventMeta      []string
	eventApply     bool
)

var eventCmd = &cobra.Command{
	Use:   "event [command]",
	Short: "Turn a request into a calendar action",
	Long: `Generates an insert, update or delete action for a natural language
calendar request, e.g. "move tomorrow's standup to 11".

--calendars and --events point to JSON arrays describing the user's
calendars and upcoming events. With --apply the action is performed
against Google Calendar.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvent,
}

func init() {
	eventCmd.Flags().StringVarP(&eventTenant, "tenant", "t", "", "tenant (company) id")
	eventCmd.Flags().StringVar(&eventCalendars, "calendars", "", "JSON file with the available calendars")
	eventCmd.Flags().StringVar(&eventEvents, "events", "", "JSON file with upcoming events")
	eventCmd.Flags().StringArrayVarP(&eventMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
	eventCmd.Flags().BoolVar(&eventApply, "apply", false, "perform the action against the calendar")
	_ = eventCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(eventCmd)
}

func runEvent(cmd *cobra.Command, args []string) error {
	if calendarService == nil {
		return errCalendarNotConfigured
	}
	command, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	meta, err := parseMeta(eventMeta)
	if err != nil {
		return err
	}

	calendarCmd := domain.CalendarCommand{
		Tenant:   eventTenant,
		Command:  command,
		Metadata: meta,
	}
	if err := readJSONFile(eventCalendars, &calendarCmd.Calendars); err != nil {
		return err
	}
	if err := readJSONFile(eventEvents, &calendarCmd.Events); err != nil {
		return err
	}

	action, err := calendarService.GenerateEvent(cmd.Context(), calendarCmd)
	if err != nil {
		return fmt.Errorf("generate event failed: %w", err)
	}
	data, err := json.MarshalIndent(action, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal action: %w", err)
	}
	cmd.Println(string(data))

	if !eventApply {
		return nil
	}
	eventID, err := calendarService.ApplyEvent(cmd.Context(), *action)
	if err != nil {
		return fmt.Errorf("apply event failed: %w", err)
	}
	cmd.Printf("Applied %s to event %s\n", action.Action, eventID)
	return nil
}

// readJSONFile decodes path into v; an empty path leaves v untouched.
func readJSONFile(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
