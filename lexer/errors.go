package lexer

import "fmt"

// SyntaxError is raised by the scanner: an unexpected character or an
// unterminated string. It always carries the source line it occurred on
// and, where available, the offending lexeme.
type SyntaxError struct {
	Line    int
	Lexeme  string
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Lexeme == "" {
		return fmt.Sprintf("SyntaxError: %s\n\tat line %d", e.Message, e.Line)
	}
	return fmt.Sprintf("SyntaxError: %s\n\tat line %d\n\tat '%s'", e.Message, e.Line, e.Lexeme)
}
