package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/core/domain"
)

var (
	queryTenant string
	queryChat   string
	queryMeta   []string
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a question",
	Long: `Answers a question from the tenant's stored chats and documents.
Retrieval combines embedding similarity, keyword matches and recent chat
context; the answer is synthesised from what was found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [message]",
	Short: "Suggest a reply to a chat message",
	Long: `Proposes a reply to a chat message. Nothing is printed unless the model
is confident the reply is relevant and useful.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSuggest,
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, suggestCmd} {
		c.Flags().StringVarP(&queryTenant, "tenant", "t", "", "tenant (company) id")
		c.Flags().StringVar(&queryChat, "chat", "", "chat id for conversation context")
		c.Flags().StringArrayVarP(&queryMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
		c.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
		_ = c.MarkFlagRequired("tenant")
		rootCmd.AddCommand(c)
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errQueryNotConfigured
	}
	q, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}
	answer, err := queryService.Query(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return outputAnswer(cmd, answer)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errQueryNotConfigured
	}
	q, err := buildQuery(cmd, args)
	if err != nil {
		return err
	}
	answer, err := queryService.Suggest(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("suggest failed: %w", err)
	}
	return outputAnswer(cmd, answer)
}

func buildQuery(cmd *cobra.Command, args []string) (domain.Query, error) {
	text, err := readInput(cmd, args)
	if err != nil {
		return domain.Query{}, err
	}
	meta, err := parseMeta(queryMeta)
	if err != nil {
		return domain.Query{}, err
	}
	if queryChat != "" {
		meta[domain.MetaChatID] = queryChat
	}
	return domain.Query{
		Text:     text,
		Tenant:   queryTenant,
		ChatID:   queryChat,
		Metadata: meta,
	}, nil
}

type answerJSON struct {
	Response  *string `json:"response"`
	State     string  `json:"state"`
	Retrieved int     `json:"retrieved"`
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) error {
	if queryJSON {
		out := answerJSON{State: string(answer.State), Retrieved: answer.Retrieved}
		if answer.Answered() {
			out.Response = &answer.Text
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if !answer.Answered() {
		cmd.Println("No answer.")
		return nil
	}
	cmd.Println(answer.Text)
	return nil
}
