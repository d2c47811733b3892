package parser

import "fmt"

// SyntaxError is raised by the diagnostic AST parser (the -ast dump path,
// never the execution path — that's lexer.SyntaxError/compiler.CompileError).
type SyntaxError struct {
	Line    int
	Lexeme  string
	Message string
}

func CreateSyntaxError(line int, lexeme string, message string) SyntaxError {
	return SyntaxError{Line: line, Lexeme: lexeme, Message: message}
}

func (e SyntaxError) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("SyntaxError: %s\n\tat line %d", e.Message, e.Line)
	}
	return fmt.Sprintf("SyntaxError: %s\n\tat line %d\n\tat '%s'", e.Message, e.Line, e.Lexeme)
}
