package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finrag/internal/domain"
)

var (
	queryText      string
	queryTopK      int
	queryJSON      bool
	queryDiverse   bool
	queryDiversity float64
	queryFilter    string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search indexed documents",
	Long: `Search the vector index for chunks relevant to a query.

Examples:
  finrag query -q "AAPL quarterly earnings"
  finrag query -q "semiconductor outlook" --top-k 10 --json
  finrag query -q "regional risk" --diverse --diversity 0.5
  finrag query -q "lithium supply" --filter type=stock_news`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryDiverse, "diverse", false, "rerank for diversity (MMR)")
	queryCmd.Flags().Float64Var(&queryDiversity, "diversity", -1, "diversity weight in [0,1] (default from config)")
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "metadata filter as key=value")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	diversity := cfg.Retrieve.Diversity
	if queryDiversity >= 0 {
		diversity = queryDiversity
	}

	engine, closer, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closer()

	var results []domain.Result
	switch {
	case queryFilter != "":
		key, value, ok := strings.Cut(queryFilter, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid filter %q, expected key=value", queryFilter)
		}
		results, err = engine.QueryFiltered(cmd.Context(), queryText, key, value, topK)
	case queryDiverse:
		results, err = engine.QueryDiverse(cmd.Context(), queryText, topK, diversity)
	default:
		results, err = engine.QuerySimilarity(cmd.Context(), queryText, topK)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (%s, score: %.3f) ---\n", i+1, r.Metadata.Source(), r.Metadata.DocType(), r.Score)
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}

	return nil
}
