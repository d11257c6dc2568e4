package cli

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

var diffPR string

var diffCmd = &cobra.Command{
	Use:   "diff [file]",
	Short: "Summarise a code change",
	Long: `Summarises a unified diff read from a file, or from stdin when no file is
given. With --pr the diff of a GitHub pull request is fetched instead.`,
	Example: `  git diff main | coworker diff
  coworker diff changes.patch
  coworker diff --pr custodia-labs/coworker#42`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffPR, "pr", "", "pull request as owner/repo#number")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	if diffService == nil {
		return errDiffNotConfigured
	}

	var (
		summary string
		err     error
	)
	if diffPR != "" {
		owner, repo, number, perr := parsePullRequest(diffPR)
		if perr != nil {
			return perr
		}
		summary, err = diffService.SummarizePullRequest(cmd.Context(), owner, repo, number)
	} else {
		diff, rerr := readDiff(cmd, args)
		if rerr != nil {
			return rerr
		}
		summary, err = diffService.Summarize(cmd.Context(), diff)
	}
	if err != nil {
		return fmt.Errorf("diff summary failed: %w", err)
	}
	cmd.Println(summary)
	return nil
}

func readDiff(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read diff: %w", err)
		}
		return string(data), nil
	}
	return readInput(cmd, nil)
}

var pullRequestRef = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)

// parsePullRequest splits "owner/repo#number".
func parsePullRequest(ref string) (string, string, int, error) {
	m := pullRequestRef.FindStringSubmatch(ref)
	if m == nil {
		return "", "", 0, fmt.Errorf("%w: pull request %q must be owner/repo#number", domain.ErrValidation, ref)
	}
	number, err := strconv.Atoi(m[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("%w: invalid pull request number %q", domain.ErrValidation, m[3])
	}
	return m[1], m[2], number, nil
}
