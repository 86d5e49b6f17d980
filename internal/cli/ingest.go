package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"finrag/internal/adapter/source"
	"finrag/internal/domain"
)

var (
	ingestType string
	ingestText string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index documents for retrieval",
	Long: `Read documents from a directory (or a single piece of text), chunk
and embed them, and append the chunks to the vector index.

Examples:
  finrag ingest ./data                          # Index a document directory
  finrag ingest ./filings --type sec_filing     # Force a document type
  finrag ingest --text "TSMC beat estimates" --type stock_news`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestType, "type", "", "document type for all documents (default inferred from filename)")
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest a literal text instead of a path")
}

func runIngest(cmd *cobra.Command, args []string) error {
	loader := source.NewLoader(cfg.Ingest.Includes, cfg.Ingest.Excludes, ingestType)

	var docs []domain.Document
	if ingestText != "" {
		docs = append(docs, loader.FromText(ingestText, ingestType))
	} else {
		if len(args) == 0 {
			return fmt.Errorf("either a path argument or --text is required")
		}
		path, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path is not a directory: %s", path)
		}

		fmt.Printf("Scanning %s...\n", path)
		docs, err = loader.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load documents: %w", err)
		}
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	engine, closer, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closer()

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	var chunks int
	durable := true
	for _, doc := range docs {
		res, err := engine.Ingest(cmd.Context(), []domain.Document{doc})
		chunks += res.Chunks
		if err != nil {
			// An error with appended chunks means only persistence
			// failed; the engine retries it on the next mutation.
			if res.Chunks == 0 {
				return fmt.Errorf("ingest failed for %s: %w", doc.Metadata.Source(), err)
			}
		}
		if !res.Durable {
			durable = false
		}
		bar.Add(1)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Documents: %d\n", len(docs))
	fmt.Printf("  Chunks:    %d\n", chunks)
	fmt.Printf("  Index:     %d records\n", engine.Len())
	if !durable {
		fmt.Println("\nWarning: the index could not be persisted; it will be retried on the next ingest.")
	}

	return nil
}
