// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser

//	A Recursive descent parser is a top-down parser because it starts from the top
//
// grammar rule and works its way down in to the nested sub-experessions before reaching
// the leaves of the syntax tree (terminal rules). This parser backs only the
// diagnostic `-ast` dump: program execution goes through lexer/compiler/vm.
package parser

import (
	"fmt"
	"strconv"

	"rqalam/ast"
	"rqalam/token"
)

var comparisonTokenTypes = []token.Type{
	token.GREATER,
	token.GREATER_EQUAL,
	token.LESS,
	token.LESS_EQUAL,
}

var equalityTokenTypes = []token.Type{
	token.BANG_EQUAL,
	token.EQUAL_EQUAL,
}

var termTokenTypes = []token.Type{
	token.MINUS,
	token.PLUS,
}

var factorExpressionTypes = []token.Type{
	token.STAR,
	token.SLASH,
}

var unaryExpressionTypes = []token.Type{
	token.BANG,
	token.MINUS,

	// NOTE: not supported operands on unary expressions are included
	// so they can be parsed; they appear as Unary nodes in the AST dump.
	// This is known as "error productions"
	token.STAR,
	token.PLUS,
	token.SLASH,
}

type Parser struct {
	tokens   []token.Token
	position int
}

// NOTE: The parsers position is always one unit ahead of the
// current token

// Make initializes and returns a new Parser instance over tokens.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Print prints the AST as prettified JSON to standard output.
func (parser *Parser) Print(statements []ast.Stmt) {
	_, err := PrintASTJSON(statements)
	if err != nil {
		fmt.Println("error producing AST JSON:", err)
	}
}

// PrintToFile writes the AST for the provided statements to a .json file at the given path.
func (parser *Parser) PrintToFile(statements []ast.Stmt, path string) error {
	return WriteASTJSONToFile(statements, path)
}

// peek returns the token at the parser's current position, without
// advancing the parser's position.
func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

// previous returns the token at the parser's previous position (position-1).
func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

// advance increments the parser's position by one unit and consumes the
// current token, returning it.
func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

// isFinished determines if the parser has finished scanning all the tokens.
func (parser *Parser) isFinished() bool {
	tok := parser.peek()
	return tok.Type == token.EOF
}

// checkType determines if the provided Type matches the Type at the
// parser's current position.
func (parser *Parser) checkType(typ token.Type) bool {
	if parser.isFinished() {
		return false
	}
	return parser.peek().Type == typ
}

// isMatch determines if the Type at the current position matches any of
// the provided types. If a match is found the parser consumes the
// current token.
func (parser *Parser) isMatch(types []token.Type) bool {
	for _, typ := range types {
		if parser.checkType(typ) {
			parser.advance()
			return true
		}
	}
	return false
}

// Parse parses the entire token stream into a slice of Stmt (statement) nodes,
// continuing until the end of input. Errors during parsing are collected
// but parsing continues to find additional errors where possible.
func (parser *Parser) Parse() ([]ast.Stmt, []error) {
	statements := []ast.Stmt{}
	errors := []error{}

	for {
		if parser.isFinished() {
			break
		}
		statement, err := parser.declaration()
		if err != nil {
			errors = append(errors, err)
			if !parser.isFinished() {
				parser.position++
			}
			continue
		}
		statements = append(statements, statement)
	}

	return statements, errors
}

// declaration parses a declaration statement: "sha"/"lazim" or a plain
// statement.
func (parser *Parser) declaration() (ast.Stmt, error) {
	if parser.isMatch([]token.Type{token.VAR, token.CONST}) {
		return parser.variableDeclaration()
	}
	return parser.statement()
}

// variableDeclaration parses a variable declaration statement.
func (parser *Parser) variableDeclaration() (ast.Stmt, error) {
	tok, consumeError := parser.consume(token.IDENTIFIER, "Expected variable name")
	if consumeError != nil {
		return nil, consumeError
	}

	var initialiser ast.Expression
	if parser.isMatch([]token.Type{token.EQUAL}) {
		var err error
		initialiser, err = parser.expression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after variable declaration."); err != nil {
		return nil, err
	}

	return ast.VarStmt{
		Name:        tok,
		Initializer: initialiser,
	}, nil
}

// statement parses a single statement: print, block, if, while, for, or a
// bare expression statement.
func (parser *Parser) statement() (ast.Stmt, error) {

	if parser.isMatch([]token.Type{token.PRINT}) {
		return parser.printStatement()
	}

	if parser.isMatch([]token.Type{token.LBRACE}) {
		statements, err := parser.block()
		if err != nil {
			return nil, err
		}
		return ast.BlockStmt{Statements: statements}, nil
	}

	if parser.isMatch([]token.Type{token.IF}) {
		return parser.ifStatement()
	}

	if parser.isMatch([]token.Type{token.WHILE}) {
		return parser.WhileStatement()
	}

	return parser.expressionStatement()
}

// printStatement parses a print statement of the form "qul <expression>;".
func (parser *Parser) printStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after value."); err != nil {
		return nil, err
	}
	return ast.PrintStmt{Expression: expression}, nil
}

// WhileStatement parses a "baynama" loop statement from the token stream.
func (parser *Parser) WhileStatement() (ast.Stmt, error) {

	expr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	stmt, err := parser.statement()
	if err != nil {
		return nil, err
	}

	return ast.WhileStmt{
		Condition: expr,
		Body:      stmt,
	}, nil
}

// ifStatement parses an "itha"/"ilma" conditional from the token stream.
func (parser *Parser) ifStatement() (ast.Stmt, error) {

	conditionExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	thenStmt, err := parser.statement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if parser.isMatch([]token.Type{token.ELSE}) {
		stmt, err := parser.statement()
		if err != nil {
			return nil, err
		}
		elseStmt = stmt
	}

	return ast.IfStmt{
		Condition: conditionExpr,
		Then:      thenStmt,
		Else:      elseStmt,
	}, nil
}

// expressionStatement parses a statement consisting of a single expression.
func (parser *Parser) expressionStatement() (ast.Stmt, error) {
	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "Expected ';' after expression."); err != nil {
		return nil, err
	}
	return ast.ExpressionStmt{Expression: expression}, nil
}

// block parses a block statement consisting of a list of statement AST
// nodes.
func (parser *Parser) block() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}

	for !parser.checkType(token.RBRACE) && !parser.isFinished() {
		stmt, err := parser.declaration()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}

	if _, err := parser.consume(token.RBRACE, "Expected '}' after block."); err != nil {
		return nil, err
	}
	return statements, nil
}

// expression is the entry point for parsing expressions.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.assignment()
}

// assignment parses an assignment expression from the token stream.
func (parser *Parser) assignment() (ast.Expression, error) {
	expression, err := parser.or()
	if err != nil {
		return nil, err
	}
	if parser.isMatch([]token.Type{token.EQUAL}) {
		equalsToken := parser.previous()
		value, err := parser.assignment()
		if err != nil {
			return nil, err
		}
		switch v := expression.(type) {
		case ast.Variable:
			return ast.Assign{Name: v.Name, Value: value}, nil
		default:
			return nil, CreateSyntaxError(equalsToken.Line, string(equalsToken.Lexeme), "Invalid assignment target.")
		}
	}

	return expression, nil
}

// or parses a "aw" (logical OR) expression, left-associative.
func (parser *Parser) or() (ast.Expression, error) {
	expr, err := parser.and()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.Type{token.OR}) {
		op := parser.previous()
		rightExpr, err := parser.and()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}

	return expr, nil
}

// and parses a "wa" (logical AND) expression, left-associative.
func (parser *Parser) and() (ast.Expression, error) {
	expr, err := parser.equality()
	if err != nil {
		return nil, err
	}

	for parser.isMatch([]token.Type{token.AND}) {
		op := parser.previous()
		rightExpr, err := parser.equality()
		if err != nil {
			return nil, err
		}
		expr = ast.Logical{Left: expr, Operator: op, Right: rightExpr}
	}
	return expr, nil
}

// equality parses "==" and "!=" expressions.
func (parser *Parser) equality() (ast.Expression, error) {
	exp, err := parser.comparison()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(equalityTokenTypes) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// comparison parses "<", "<=", ">", ">=" expressions.
func (parser *Parser) comparison() (ast.Expression, error) {
	exp, err := parser.term()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(comparisonTokenTypes) {
		operator := parser.previous()
		right, err := parser.term()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// term parses "+" and "-" expressions.
func (parser *Parser) term() (ast.Expression, error) {
	exp, err := parser.factor()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(termTokenTypes) {
		operator := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// factor parses "*" and "/" expressions.
func (parser *Parser) factor() (ast.Expression, error) {
	exp, err := parser.unary()
	if err != nil {
		return nil, err
	}
	for parser.isMatch(factorExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		exp = ast.Binary{Left: exp, Operator: operator, Right: right}
	}
	return exp, nil
}

// unary parses unary prefix expressions using "la"/"!" or "-".
func (parser *Parser) unary() (ast.Expression, error) {
	if parser.isMatch(unaryExpressionTypes) {
		operator := parser.previous()
		right, err := parser.unary()
		if err != nil {
			return nil, err
		}
		return ast.Unary{Operator: operator, Right: right}, nil
	}
	return parser.primary()
}

// primary parses the most basic forms of expressions: literals, variables,
// and parenthesized groupings.
func (parser *Parser) primary() (ast.Expression, error) {
	if parser.isMatch([]token.Type{token.FALSE}) {
		return ast.Literal{Value: false}, nil
	}
	if parser.isMatch([]token.Type{token.NIL}) {
		return ast.Literal{Value: nil}, nil
	}
	if parser.isMatch([]token.Type{token.TRUE}) {
		return ast.Literal{Value: true}, nil
	}

	if parser.isMatch([]token.Type{token.NUMBER}) {
		lexeme := string(parser.previous().Lexeme)
		n, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			tok := parser.previous()
			return nil, CreateSyntaxError(tok.Line, lexeme, "Invalid number literal.")
		}
		return ast.Literal{Value: n}, nil
	}

	if parser.isMatch([]token.Type{token.STRING}) {
		lexeme := parser.previous().Lexeme
		return ast.Literal{Value: string(lexeme[1 : len(lexeme)-1])}, nil
	}

	if parser.isMatch([]token.Type{token.IDENTIFIER}) {
		return ast.Variable{Name: parser.previous()}, nil
	}

	if parser.isMatch([]token.Type{token.LPAREN}) {
		expr, err := parser.expression()
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.RPAREN, "Expected ')' after expression."); err != nil {
			return nil, err
		}
		return ast.Grouping{Expression: expr}, nil
	}

	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Line, string(currentToken.Lexeme), "Unrecognised expression.")
}

// consume advances past the current token if it matches typ, otherwise
// reports a SyntaxError carrying errorMessage.
func (parser *Parser) consume(typ token.Type, errorMessage string) (token.Token, error) {
	if parser.checkType(typ) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.New(token.EOF, nil, 0), CreateSyntaxError(currentToken.Line, string(currentToken.Lexeme), errorMessage)
}
