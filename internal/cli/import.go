package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/memory"
	"github.com/membootio/memboot/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import memories from JSON",
		Long:  "Import memories from JSON on stdin, re-embedding each under this project's live vocabulary. Expects the format produced by export.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var memories []model.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		exitErr("parse json", err)
	}

	root := projectRoot()
	cfg := loadConfig(root)
	s := openStore(root)
	defer s.Close()

	svc := memory.NewService(s, newEmbedder(cfg), newObserver())
	imported := 0
	for _, m := range memories {
		if _, err := svc.Remember(cmd.Context(), projectID(root), m.Content, m.Kind, m.Tags); err != nil {
			exitErr("import", err)
		}
		imported++
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
}
