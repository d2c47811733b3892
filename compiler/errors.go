package compiler

import "fmt"

// CompileError is raised by the parser/codegen: an unexpected token, a
// missing terminator, a bad assignment target, a name already declared
// in the current scope, a read of a local in its own initializer, or an
// assignment to an immutable binding.
type CompileError struct {
	Line    int
	Lexeme  string
	Message string
}

func (e *CompileError) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("CompileError: %s\n\tat line %d", e.Message, e.Line)
	}
	return fmt.Sprintf("CompileError: %s\n\tat line %d\n\tat '%s'", e.Message, e.Line, e.Lexeme)
}
