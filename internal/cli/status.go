package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/gate"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project, database, and tier status",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	root := projectRoot()
	s := openStore(root)
	defer s.Close()

	info, err := s.Info(cmd.Context(), projectID(root))
	if err != nil {
		exitErr("status", err)
	}

	out := map[string]any{
		"project_root": root,
		"project_id":   projectID(root),
		"db_path":      s.Path(),
		"tier":         gate.Tier(gate.FromEnv()),
		"indexed":      info.ChunkCount > 0,
		"info":         info,
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
