package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"

	"github.com/reeflective/shellkit"
	"github.com/reeflective/shellkit/internal/state"
)

// runREPL drives the read-eval-print loop: read a line, feed it to the
// shell, and on an incomplete-input error keep appending lines until the
// parser is satisfied or the user interrupts. True line editing, history, and key
// bindings are a Non-goal (terminal rendering); this is the bufio.Scanner
// equivalent of bash reading from a non-interactive but line-buffered fd.
func runREPL(stdout, stderr io.Writer) error {
	sh := shellkit.New()
	out := termenv.NewOutput(stdout)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pending string
	for {
		fmt.Fprint(stdout, promptColor(out, pending == "", promptValue(sh, pending == "")))

		if !scanner.Scan() {
			break
		}
		line := scanner.Text()

		src := line
		if pending != "" {
			src = pending + "\n" + line
		}

		status, err := sh.Execute(src)
		if err != nil {
			if shellkit.IsIncomplete(err) {
				pending = src
				continue
			}
			pending = ""

			var exitReq *shellkit.ExitRequested
			if errors.As(err, &exitReq) {
				os.Exit(int(exitReq.Code))
			}
			fmt.Fprintln(stderr, out.String(err.Error()).Foreground(termenv.ANSIRed).String())
			continue
		}
		pending = ""
		sh.State.LastExitStatus = status
	}
	return nil
}

func promptValue(sh *shellkit.Shell, primary bool) string {
	name := "PS1"
	if !primary {
		name = "PS2"
	}
	if v, ok := sh.State.Lookup(name, state.Anywhere); ok && v.Value.Kind == state.ScalarValue {
		return v.Value.Scalar
	}
	if primary {
		return "$ "
	}
	return "> "
}

func promptColor(out *termenv.Output, primary bool, prompt string) string {
	color := termenv.ANSIGreen
	if !primary {
		color = termenv.ANSIYellow
	}
	return out.String(prompt).Foreground(color).String()
}
