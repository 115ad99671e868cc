package builtins

import (
	"fmt"
	"strconv"
)

// builtinContinue and builtinBreak implement the shell's loop-control
// exits: each accepts an optional numeric nesting level, defaulting to 1,
// grounded on brush-core's continue_.rs. Level 0 or negative is BuiltinMisuse; a
// level deeper than the actual loop nesting clamps to the outermost loop
// rather than erroring, since the core has no model of "how many loops
// are currently open" — that bookkeeping belongs to whatever execution
// loop interprets this result.
func builtinContinue(ctx *ExecutionContext) BuiltinResult {
	n, res, done := parseLoopLevel(ctx)
	if done {
		return res
	}
	return continueLoop(n - 1)
}

func builtinBreak(ctx *ExecutionContext) BuiltinResult {
	n, res, done := parseLoopLevel(ctx)
	if done {
		return res
	}
	return breakLoop(n - 1)
}

// parseLoopLevel parses the optional nesting-level argument shared by
// `continue`/`break`, returning (level, _, false) on success or (0, res,
// true) when res should be returned directly.
func parseLoopLevel(ctx *ExecutionContext) (uint8, BuiltinResult, bool) {
	name := ctx.Args[0]
	args := ctx.Args[1:]

	if len(args) == 0 {
		return 1, BuiltinResult{}, false
	}
	if len(args) > 1 {
		fmt.Fprintf(ctx.Stderr, "%s: too many arguments\n", name)
		return 0, usage(), true
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		fmt.Fprintf(ctx.Stderr, "%s: %s: numeric argument required, must be > 0\n", name, args[0])
		return 0, usage(), true
	}
	if n > 255 {
		n = 255
	}
	return uint8(n), BuiltinResult{}, false
}
