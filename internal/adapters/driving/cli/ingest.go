package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/coworker/internal/connectors/filesystem"
	"github.com/custodia-labs/coworker/internal/core/domain"
)

var (
	ingestTenant string
	ingestID     string
	ingestChat   string
	ingestMeta   []string
	ingestBatch  string
	ingestMIME   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [content]",
	Short: "Store a message or document",
	Long: `Chunks, embeds and stores text for a tenant. The text is read from the
argument, or from stdin when the argument is omitted or "-".

Re-ingesting an id replaces the stored document; unchanged content is skipped.
Use --batch to ingest a JSON array of {"id", "content", "meta"} objects.`,
	Example: `  coworker ingest -t 7 --chat c1 --meta author=Ann "release moved to Friday"
  git log -1 --format=%B | coworker ingest -t 7 --id commit-msg
  coworker ingest -t 7 --batch docs.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var ingestFileCmd = &cobra.Command{
	Use:   "ingest-file [path]",
	Short: "Extract and store a file",
	Long: `Extracts text from a file (plain text, markdown, code, PDF or audio) and
stores it for the tenant. Audio is transcribed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestFile,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "", "tenant (company) id")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (default: random)")
	ingestCmd.Flags().StringVar(&ingestChat, "chat", "", "chat id the message belongs to")
	ingestCmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
	ingestCmd.Flags().StringVar(&ingestBatch, "batch", "", "JSON file with an array of documents")
	_ = ingestCmd.MarkFlagRequired("tenant")

	ingestFileCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "", "tenant (company) id")
	ingestFileCmd.Flags().StringVar(&ingestID, "id", "", "document id (default: file name)")
	ingestFileCmd.Flags().StringVar(&ingestMIME, "mime", "", "MIME type (default: from extension)")
	ingestFileCmd.Flags().StringArrayVarP(&ingestMeta, "meta", "m", nil, "metadata as key=value (repeatable)")
	_ = ingestFileCmd.MarkFlagRequired("tenant")

	deleteCmd.Flags().StringVarP(&ingestTenant, "tenant", "t", "", "tenant (company) id")
	_ = deleteCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(ingestFileCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errIngestionNotConfigured
	}
	if ingestBatch != "" {
		return runIngestBatch(cmd)
	}

	content, err := readInput(cmd, args)
	if err != nil {
		return err
	}
	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}
	if ingestChat != "" {
		meta[domain.MetaChatID] = ingestChat
	}

	id := ingestID
	if id == "" {
		id = uuid.NewString()
	}
	doc := domain.Document{
		ID:       id,
		Tenant:   ingestTenant,
		ChatID:   ingestChat,
		Content:  content,
		Metadata: meta,
	}
	if err := ingestionService.Ingest(cmd.Context(), doc); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Ingested %s\n", id)
	return nil
}

type batchDocument struct {
	ID      string         `json:"id"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta"`
}

func runIngestBatch(cmd *cobra.Command) error {
	data, err := os.ReadFile(ingestBatch)
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	var items []batchDocument
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse batch %s: %w", ingestBatch, err)
	}

	docs := make([]domain.Document, len(items))
	for i, item := range items {
		chatID, _ := item.Meta[domain.MetaChatID].(string)
		docs[i] = domain.Document{
			ID:       item.ID,
			Tenant:   ingestTenant,
			ChatID:   chatID,
			Content:  item.Content,
			Metadata: item.Meta,
		}
	}

	report := ingestionService.IngestBatch(cmd.Context(), docs)
	printReport(cmd, report)
	if err := report.Err(); err != nil {
		return fmt.Errorf("batch incomplete: %w", err)
	}
	return nil
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errIngestionNotConfigured
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	meta, err := parseMeta(ingestMeta)
	if err != nil {
		return err
	}
	mimeType := ingestMIME
	if mimeType == "" {
		mimeType = filesystem.DetectMIMEType(path)
	}

	report, err := ingestionService.IngestFile(cmd.Context(), domain.FileUpload{
		ID:       ingestID,
		Tenant:   ingestTenant,
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Data:     data,
		Metadata: meta,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report)
	return report.Err()
}

func runDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errIngestionNotConfigured
	}
	if err := ingestionService.Delete(cmd.Context(), ingestTenant, args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	for _, id := range report.Ingested {
		cmd.Printf("  ingested   %s\n", id)
	}
	for _, id := range report.Unchanged {
		cmd.Printf("  unchanged  %s\n", id)
	}
	failed := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		failed = append(failed, id)
	}
	sort.Strings(failed)
	for _, id := range failed {
		cmd.Printf("  failed     %s: %v\n", id, report.Failed[id])
	}
}

// readInput returns the single argument, or stdin when it is absent or "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: no input", domain.ErrValidation)
	}
	return text, nil
}

// parseMeta turns key=value pairs into metadata. Integer values are stored
// as int64 except for chat_id, which is always a string.
func parseMeta(pairs []string) (map[string]any, error) {
	meta := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: metadata %q must be key=value", domain.ErrValidation, pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && key != domain.MetaChatID {
			meta[key] = n
			continue
		}
		meta[key] = value
	}
	return meta, nil
}
