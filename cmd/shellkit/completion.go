package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reeflective/shellkit"
)

// newCompletionCmd builds the `shellkit completion <shell>` generator: a
// small integration script that forwards the calling shell's own
// completion request to the hidden `__complete` command, grounded on
// cobra's own completion-script generator pattern (register a `completion`
// command that emits per-shell integration source).
func newCompletionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate the integration script wiring a login shell's own completion into shellkit",
		ValidArgs: []string{"bash", "zsh", "fish"},
		Args:      cobra.ExactValidArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprint(out, bashIntegration)
			case "zsh":
				fmt.Fprint(out, zshIntegration)
			case "fish":
				fmt.Fprint(out, fishIntegration)
			}
			return nil
		},
	}
	return cmd
}

// newInternalCompleteCmd is the hidden bridge the generated integration
// scripts call: line + cursor in, one candidate per stdout line out (spec
// §4.5's get_completions signature, exposed across the process boundary
// the way bash's own `complete -C` generator command works).
func newInternalCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "__complete <line> <cursor>",
		Hidden: true,
		Args:   cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cursor, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("__complete: bad cursor %q: %w", args[1], err)
			}
			sh := shellkit.New()
			res := sh.GetCompletions(context.Background(), args[0], cursor)
			out := cmd.OutOrStdout()
			for _, c := range res.Candidates {
				fmt.Fprintln(out, c)
			}
			return nil
		},
	}
	return cmd
}

const bashIntegration = `_shellkit_complete() {
  local line="${COMP_LINE}"
  local cursor="${COMP_POINT}"
  COMPREPLY=($(shellkit __complete "$line" "$cursor"))
}
complete -F _shellkit_complete shellkit
`

const zshIntegration = `#compdef shellkit
_shellkit() {
  local line="$BUFFER"
  local cursor="$CURSOR"
  local -a candidates
  candidates=("${(@f)$(shellkit __complete "$line" "$cursor")}")
  compadd -a candidates
}
compdef _shellkit shellkit
`

const fishIntegration = `function __shellkit_complete
  set -l line (commandline -cp)
  set -l cursor (string length -- (commandline -cp))
  shellkit __complete "$line" "$cursor"
end
complete -c shellkit -f -a '(__shellkit_complete)'
`
