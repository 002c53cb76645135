package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "forget [id]",
		Short: "Delete a memory by ID",
		Args:  cobra.ExactArgs(1),
		Run:   runForget,
	}

	RootCmd.AddCommand(cmd)
}

func runForget(cmd *cobra.Command, args []string) {
	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	svc := memory.NewService(s, newEmbedder(cfg), newObserver())
	if err := svc.Forget(cmd.Context(), projectID(root), args[0]); err != nil {
		exitErr("forget", err)
	}
	fmt.Printf("forgot %s\n", args[0])
}
