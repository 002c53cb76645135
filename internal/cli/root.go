// Package cli implements the memboot CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/membootio/memboot/internal/config"
	"github.com/membootio/memboot/internal/embedding"
	"github.com/membootio/memboot/internal/gate"
	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/observe"
	"github.com/membootio/memboot/internal/store"
)

var (
	projectFlag string
	dbPathFlag  string
	verboseFlag bool
	logJSONFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "memboot",
	Short: "Local project memory for coding agents",
	Long:  "Index a project into a local SQLite vector store, record memories, and retrieve relevant context. No network, no daemon, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", "", "Project root directory (default: current directory)")
	RootCmd.PersistentFlags().StringVarP(&dbPathFlag, "db", "d", "", "Database path (default: $MEMBOOT_HOME or ~/.memboot/<project>.db)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable info-level logging")
	RootCmd.PersistentFlags().BoolVar(&logJSONFlag, "log-json", false, "Emit logs as JSON")
}

// projectRoot resolves the --project flag (or the working directory) to an
// absolute path.
func projectRoot() string {
	root := projectFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			exitErr("resolve working directory", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		exitErr("resolve project root", err)
	}
	return abs
}

func openStore(root string) *store.SQLiteStore {
	path := dbPathFlag
	if path == "" {
		path = store.DBPathFor(root)
	}
	s, err := store.NewSQLiteStore(path)
	if err != nil {
		exitErr("open store", err)
	}
	return s
}

func loadConfig(root string) *config.Config {
	cfg, err := config.Load(root)
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newObserver() *observe.Observer {
	if logJSONFlag {
		return observe.NewJSON(os.Stderr, verboseFlag)
	}
	return observe.New(os.Stderr, verboseFlag)
}

func newEmbedder(cfg *config.Config) embedding.Embedder {
	emb, err := embedding.New(cfg.Backend, cfg.MaxFeatures, gate.FromEnv())
	if err != nil {
		exitErr("embedding backend", err)
	}
	return emb
}

func projectID(root string) string {
	return model.ProjectID(root)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
