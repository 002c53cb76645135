package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/memory"
	"github.com/membootio/memboot/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memories",
		Short: "List recorded memories, newest first",
		Run:   runMemories,
	}

	cmd.Flags().String("kind", "", "Filter by kind: decision, note, observation, pattern")

	RootCmd.AddCommand(cmd)
}

func runMemories(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")

	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	svc := memory.NewService(s, newEmbedder(cfg), newObserver())
	mems, err := svc.List(cmd.Context(), projectID(root), model.MemoryKind(kind))
	if err != nil {
		exitErr("memories", err)
	}

	if len(mems) == 0 {
		fmt.Println("[]")
		return
	}
	// Vectors are internal; keep the listing readable.
	for i := range mems {
		mems[i].Vector = nil
	}
	b, _ := json.MarshalIndent(mems, "", "  ")
	fmt.Println(string(b))
}
