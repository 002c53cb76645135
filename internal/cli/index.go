package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/indexer"
)

func init() {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the project into the local store",
		Long:  "Scan the project tree, chunk changed files, refit the vocabulary over the full corpus, and commit everything atomically.",
		Run:   runIndex,
	}

	cmd.Flags().Bool("force", false, "Reindex every file, ignoring stored fingerprints")
	cmd.Flags().Bool("fast", false, "Skip the vocabulary refit; embeds only fresh files (approximate)")

	RootCmd.AddCommand(cmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	fast, _ := cmd.Flags().GetBool("fast")

	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	ix := indexer.New(s, newEmbedder(cfg), nil, cfg, newObserver())
	info, err := ix.Index(cmd.Context(), root, indexer.Options{Force: force, Fast: fast})
	if err != nil {
		exitErr("index", err)
	}

	b, _ := json.MarshalIndent(info, "", "  ")
	fmt.Println(string(b))
}
