// Command shellkit is a thin CLI wrapper around the shellkit package: an
// interactive REPL and a shell-integration script generator, the way the
// teacher's example/app wraps its generated command tree with a cobra
// root command and a carapace completer.
package main

import (
	"os"

	"github.com/rsteube/carapace"
	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	comps := carapace.Gen(root)
	comps.Standalone()

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shellkit",
		Short: "A POSIX/bash-compatible interactive shell core",
		Long: "shellkit drives the tokenizer, parser, pattern, expansion, " +
			"completion, and predicate engines behind one interactive REPL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	root.SilenceUsage = true
	root.AddCommand(newCompletionCmd())
	root.AddCommand(newInternalCompleteCmd())
	return root
}
