package lexer

import (
	"rqalam/token"
	"testing"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.Scan()
		if err != nil {
			t.Fatalf("Scan() raised an error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func typesOf(toks []token.Token) []token.Type {
	types := make([]token.Type, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	return types
}

func assertTypes(t *testing.T, got []token.Type, want []token.Type) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: got=%v want=%v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestOperators(t *testing.T) {
	toks := scanAll(t, "==!=<=>=<>=+-*/%")
	want := []token.Type{
		token.EQUAL_EQUAL, token.BANG_EQUAL, token.LESS_EQUAL, token.GREATER_EQUAL,
		token.LESS, token.GREATER_EQUAL, token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.PERCENT, token.EOF,
	}
	assertTypes(t, typesOf(toks), want)
}

func TestPunctuation(t *testing.T) {
	toks := scanAll(t, "(){},.;")
	want := []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.COMMA, token.DOT, token.SEMICOLON, token.EOF,
	}
	assertTypes(t, typesOf(toks), want)
}

func TestCompoundAssignAndIncDec(t *testing.T) {
	toks := scanAll(t, "+= -= *= /= ++ --")
	want := []token.Type{
		token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL,
		token.PLUS_PLUS, token.MINUS_MINUS, token.EOF,
	}
	assertTypes(t, typesOf(toks), want)
}

func TestKeywords(t *testing.T) {
	toks := scanAll(t, "sha lazim itha ilma baynama tawaf qul haqq batil ghaib la wa aw")
	want := []token.Type{
		token.VAR, token.CONST, token.IF, token.ELSE, token.WHILE, token.FOR,
		token.PRINT, token.TRUE, token.FALSE, token.NIL, token.BANG, token.AND, token.OR,
		token.EOF,
	}
	assertTypes(t, typesOf(toks), want)
}

func TestIdentifier(t *testing.T) {
	toks := scanAll(t, "x foo_bar _baz")
	want := []token.Type{token.IDENTIFIER, token.IDENTIFIER, token.IDENTIFIER, token.EOF}
	assertTypes(t, typesOf(toks), want)
	if string(toks[0].Lexeme) != "x" {
		t.Errorf("lexeme = %q, want %q", toks[0].Lexeme, "x")
	}
}

func TestNumber(t *testing.T) {
	toks := scanAll(t, "42 3.14 0.5")
	want := []token.Type{token.NUMBER, token.NUMBER, token.NUMBER, token.EOF}
	assertTypes(t, typesOf(toks), want)
	if string(toks[1].Lexeme) != "3.14" {
		t.Errorf("lexeme = %q, want %q", toks[1].Lexeme, "3.14")
	}
}

func TestNumberTrailingDotNotConsumed(t *testing.T) {
	toks := scanAll(t, "1.")
	want := []token.Type{token.NUMBER, token.DOT, token.EOF}
	assertTypes(t, typesOf(toks), want)
}

func TestStringLiteral(t *testing.T) {
	toks := scanAll(t, `"halo"`)
	want := []token.Type{token.STRING, token.EOF}
	assertTypes(t, typesOf(toks), want)
	if string(toks[0].Lexeme) != `"halo"` {
		t.Errorf("lexeme = %q, want quoted lexeme with quotes included", toks[0].Lexeme)
	}
}

func TestStringLiteralSpansLines(t *testing.T) {
	l := New("\"a\nb\"")
	tok, err := l.Scan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Type != token.STRING {
		t.Fatalf("got %s, want STRING", tok.Type)
	}
	if l.line != 2 {
		t.Errorf("line = %d, want 2", l.line)
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"unterminated`)
	_, err := l.Scan()
	if err == nil {
		t.Fatal("expected an error for unterminated string")
	}
	if _, ok := err.(*SyntaxError); !ok {
		t.Errorf("expected *SyntaxError, got %T", err)
	}
}

func TestSingleAmpersandIsSyntaxError(t *testing.T) {
	l := New("&")
	_, err := l.Scan()
	if err == nil {
		t.Fatal("expected an error for single '&'")
	}
}

func TestSinglePipeIsSyntaxError(t *testing.T) {
	l := New("|")
	_, err := l.Scan()
	if err == nil {
		t.Fatal("expected an error for single '|'")
	}
}

func TestLineComment(t *testing.T) {
	toks := scanAll(t, "1 // this is a comment\n2")
	want := []token.Type{token.NUMBER, token.NUMBER, token.EOF}
	assertTypes(t, typesOf(toks), want)
}

func TestLineTrackingAcrossNewlines(t *testing.T) {
	toks := scanAll(t, "1\n2\n3")
	if toks[0].Line != 1 || toks[1].Line != 2 || toks[2].Line != 3 {
		t.Errorf("got lines %d,%d,%d, want 1,2,3", toks[0].Line, toks[1].Line, toks[2].Line)
	}
}

func TestEmptyInputYieldsEOF(t *testing.T) {
	toks := scanAll(t, "")
	assertTypes(t, typesOf(toks), []token.Type{token.EOF})
}
