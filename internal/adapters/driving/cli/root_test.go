package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

type testServices struct {
	ingestion *mockIngestionService
	query     *mockQueryService
	calendar  *mockCalendarService
	diff      *mockDiffService
	settings  *mockSettingsService
}

// setupTestServices installs mocks for every port and returns a cleanup.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		ingestion: &mockIngestionService{},
		query:     &mockQueryService{answer: &domain.Answer{Text: "Friday", State: domain.StateAnswered}},
		calendar:  &mockCalendarService{},
		diff:      &mockDiffService{},
		settings:  newMockSettingsService(),
	}
	SetServices(Services{
		Ingestion: ts.ingestion,
		Query:     ts.query,
		Calendar:  ts.calendar,
		Diff:      ts.diff,
		Settings:  ts.settings,
	})
	return ts, func() { SetServices(Services{}) }
}

// execute runs the root command with args and returns combined output.
// Flags are reset first because cobra keeps their values between runs.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "coworker", rootCmd.Use)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{
		"ingest", "ingest-file", "delete", "query", "suggest", "event",
		"diff", "watch", "serve", "mcp", "settings", "version",
	} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("verbose")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "v", flag.Shorthand)
		assert.Equal(t, "false", flag.DefValue)
	}
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestCommands_FailWithoutServices(t *testing.T) {
	SetServices(Services{})

	tests := []struct {
		args []string
		want error
	}{
		{[]string{"ingest", "-t", "7", "hello"}, errIngestionNotConfigured},
		{[]string{"query", "-t", "7", "q"}, errQueryNotConfigured},
		{[]string{"event", "-t", "7", "cancel"}, errCalendarNotConfigured},
		{[]string{"diff", "x.patch"}, errDiffNotConfigured},
		{[]string{"settings", "show"}, errSettingsNotConfigured},
		{[]string{"serve"}, errIngestionNotConfigured},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBootstrap_RunsOnceForServiceCommands(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	defer SetBootstrap(nil)

	calls := 0
	SetServices(Services{Settings: ts.settings})
	SetBootstrap(func(context.Context) (Services, error) {
		calls++
		return Services{Query: ts.query, Settings: ts.settings}, nil
	})

	_, err := execute(t, "", "version")
	require.NoError(t, err)
	_, err = execute(t, "", "settings", "path")
	require.NoError(t, err)
	assert.Zero(t, calls)

	out, err := execute(t, "", "query", "-t", "7", "q")
	require.NoError(t, err)
	assert.Contains(t, out, "Friday")
	_, err = execute(t, "", "query", "-t", "7", "q")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBootstrap_Error(t *testing.T) {
	SetServices(Services{})
	defer SetBootstrap(nil)

	SetBootstrap(func(context.Context) (Services, error) {
		return Services{}, domain.ErrLLMUnavailable
	})

	_, err := execute(t, "", "query", "-t", "7", "q")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
