package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/contextbuild"
	"github.com/membootio/memboot/internal/query"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [text]",
		Short: "Build a markdown context block for a query",
		Long:  "Search the project and render the top results as a markdown block sized to a token budget, ready to paste into an agent prompt.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	cmd.Flags().Int("max-tokens", contextbuild.DefaultMaxTokens, "Token budget for the rendered block")
	cmd.Flags().IntP("top", "k", 10, "Max results to consider")

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	topK, _ := cmd.Flags().GetInt("top")

	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	eng := query.NewEngine(s, newEmbedder(cfg), newObserver())
	results, err := eng.Search(cmd.Context(), projectID(root), strings.Join(args, " "), topK, true)
	if err != nil {
		exitErr("context", err)
	}

	fmt.Print(contextbuild.Build(results, maxTokens))
}
