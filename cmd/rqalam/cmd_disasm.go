package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"rqalam/compiler"
	"rqalam/lexer"
	"rqalam/parser"
	"rqalam/token"
)

type disasmCmd struct {
	dumpAST bool
}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Compile a file and print its disassembled bytecode" }
func (*disasmCmd) Usage() string {
	return `disasm [-ast] <file>:
  Compile the given source file and print its chunk's disassembly.
  With -ast, print the parsed AST as JSON instead of compiling.
`
}

func (cmd *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&cmd.dumpAST, "ast", false, "print the parsed AST as JSON instead of disassembling bytecode")
}

func (cmd *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: rqalam disasm [-ast] <file>")
		return subcommands.ExitUsageError
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		return subcommands.ExitFailure
	}
	source := string(data) + "\n"

	if cmd.dumpAST {
		return dumpAST(source)
	}

	chunk, err := compiler.New(source).Compile()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return subcommands.ExitFailure
	}
	fmt.Print(chunk.Disassemble(args[0]))
	return subcommands.ExitSuccess
}

// dumpAST drives the diagnostic lexer/parser front-end directly, bypassing
// the compiler, and prints the resulting AST as JSON.
func dumpAST(source string) subcommands.ExitStatus {
	lex := lexer.New(source)
	var tokens []token.Token
	for {
		tok, err := lex.Scan()
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return subcommands.ExitFailure
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}

	p := parser.Make(tokens)
	statements, errs := p.Parse()
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e.Error())
		}
		return subcommands.ExitFailure
	}

	p.Print(statements)
	return subcommands.ExitSuccess
}
