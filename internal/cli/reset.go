package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete everything stored for this project",
		Long:  "Drop the project's chunks, memories, vocabulary, and file fingerprints. The next index starts from scratch.",
		Run:   runReset,
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")

	root := projectRoot()
	if !yes {
		fmt.Fprintf(os.Stderr, "delete all indexed data and memories for %s? [y/N] ", root)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.ToLower(strings.TrimSpace(line)) != "y" {
			fmt.Println("aborted")
			return
		}
	}

	s := openStore(root)
	defer s.Close()

	if err := s.DeleteProject(cmd.Context(), projectID(root)); err != nil {
		exitErr("reset", err)
	}
	fmt.Println("project data deleted")
}
