package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/query"
)

func init() {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search indexed chunks and memories",
		Args:  cobra.MinimumNArgs(1),
		Run:   runQuery,
	}

	cmd.Flags().IntP("top", "k", query.DefaultTopK, "Max results")
	cmd.Flags().Bool("no-memories", false, "Exclude memories from results")
	cmd.Flags().Bool("text", false, "Human-readable output instead of JSON")

	RootCmd.AddCommand(cmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	topK, _ := cmd.Flags().GetInt("top")
	noMemories, _ := cmd.Flags().GetBool("no-memories")
	asText, _ := cmd.Flags().GetBool("text")

	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	eng := query.NewEngine(s, newEmbedder(cfg), newObserver())
	results, err := eng.Search(cmd.Context(), projectID(root), strings.Join(args, " "), topK, !noMemories)
	if err != nil {
		exitErr("query", err)
	}

	if asText {
		printResults(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}

func printResults(results []query.Result) {
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.Source)
		content := r.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Println(indent(content, "   "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
