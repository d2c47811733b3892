package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// known lists every subcommand name main dispatches to explicitly. Any
// first argument not in this set is treated as a source file path under
// the bare invocation contract instead.
var known = map[string]bool{
	"run":      true,
	"repl":     true,
	"disasm":   true,
	"help":     true,
	"flags":    true,
	"commands": true,
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	subcommands.Register(&replCmd{}, "")
	subcommands.Register(&disasmCmd{}, "")

	if len(os.Args) > 1 && known[os.Args[1]] {
		flag.Parse()
		os.Exit(int(subcommands.Execute(context.Background())))
	}

	os.Exit(int(bareInvocation(os.Args[1:])))
}

// bareInvocation implements the no-subcommand CLI contract: no arguments
// starts a REPL, one argument runs that file, anything else is a usage
// error.
func bareInvocation(args []string) subcommands.ExitStatus {
	switch len(args) {
	case 0:
		return runREPL()
	case 1:
		return runFile(args[0])
	default:
		fmt.Fprintln(os.Stderr, "Usage: rqalam [path]")
		return subcommands.ExitFailure
	}
}
