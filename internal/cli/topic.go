package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var topicJSON bool

var topicCmd = &cobra.Command{
	Use:   "topic [topic]",
	Short: "Aggregate documents about a topic by category",
	Long: `Look up the most relevant stock data, news, sentiment and filings
for a topic and print them grouped by document category.

Examples:
  finrag topic "asia tech stocks"
  finrag topic "rare earth miners" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTopic,
}

func init() {
	rootCmd.AddCommand(topicCmd)
	topicCmd.Flags().BoolVar(&topicJSON, "json", false, "output as JSON")
}

func runTopic(cmd *cobra.Command, args []string) error {
	engine, closer, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer closer()

	results := engine.QueryTopic(cmd.Context(), args[0])

	if topicJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	categories := make([]string, 0, len(results))
	for category := range results {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	fmt.Printf("Topic: %s\n\n", args[0])
	for _, category := range categories {
		entries := results[category]
		fmt.Printf("%s (%d)\n", strings.ReplaceAll(category, "_", " "), len(entries))
		if len(entries) == 0 {
			fmt.Println("  (nothing indexed)")
		}
		for _, entry := range entries {
			text := entry.Text
			if len(text) > 200 {
				text = text[:200] + "..."
			}
			fmt.Printf("  - [%s] %s\n", entry.Metadata.Source(), strings.ReplaceAll(text, "\n", " "))
		}
		fmt.Println()
	}

	return nil
}
