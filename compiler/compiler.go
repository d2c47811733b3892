// Package compiler implements the single-pass Pratt parser and code
// generator: one pass over the token stream that emits bytecode directly
// into a Chunk while tracking a lexical scope stack of local slots and
// back-patching forward jumps, instead of building an intermediate AST.
package compiler

import (
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"rqalam/lexer"
	"rqalam/token"
	"rqalam/value"
)

// Precedence ladder, ascending. Binary infix handlers descend into their
// right-hand side at precedence+1 to get left-associativity.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix, infix parseFn
	prec          Precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN:        {(*Compiler).grouping, nil, PrecNone},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, PrecTerm},
		token.PLUS:          {nil, (*Compiler).binary, PrecTerm},
		token.SLASH:         {nil, (*Compiler).binary, PrecFactor},
		token.STAR:          {nil, (*Compiler).binary, PrecFactor},
		token.PERCENT:       {nil, (*Compiler).binary, PrecFactor},
		token.BANG:          {(*Compiler).unary, nil, PrecNone},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, PrecEquality},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, PrecEquality},
		token.GREATER:       {nil, (*Compiler).binary, PrecComparison},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, PrecComparison},
		token.LESS:          {nil, (*Compiler).binary, PrecComparison},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, PrecComparison},
		token.IDENTIFIER:    {(*Compiler).variable, nil, PrecNone},
		token.STRING:        {(*Compiler).stringLiteral, nil, PrecNone},
		token.NUMBER:        {(*Compiler).number, nil, PrecNone},
		token.TRUE:          {(*Compiler).literal, nil, PrecNone},
		token.FALSE:         {(*Compiler).literal, nil, PrecNone},
		token.NIL:           {(*Compiler).literal, nil, PrecNone},
		token.AND:           {nil, (*Compiler).and, PrecAnd},
		token.OR:            {nil, (*Compiler).or, PrecOr},
	}
}

func getRule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}

// Local is one entry in the ordered scope-tracking stack: locals live in
// declaration order and their runtime storage is the value stack slot at
// their ordinal position from the bottom of the frame.
type Local struct {
	Name        string
	Depth       int
	Initialized bool
	Immutable   bool
}

// Compiler drives single-pass parsing and codegen over one source unit.
type Compiler struct {
	lex *lexer.Lexer

	prev, curr token.Token

	chunk *Chunk

	locals     []Local
	scopeDepth int

	errors    *multierror.Error
	panicMode bool
}

// New creates a Compiler over src, ready to drive Compile().
func New(src string) *Compiler {
	return &Compiler{
		lex:   lexer.New(src),
		chunk: NewChunk(),
	}
}

// Compile runs the full top-level grammar from §4.4: parse declarations
// until EOF at scope depth 0 (the outermost compilation unit, so every
// top-level declaration binds as a global), emit RETURN. It returns the
// finished Chunk, or a multierror aggregating every CompileError/
// SyntaxError found via error-recovery resynchronization during this
// parse.
func (c *Compiler) Compile() (*Chunk, error) {
	c.advance()
	for !c.check(token.EOF) {
		c.declaration()
	}
	c.emit(OP_RETURN)

	if c.errors != nil {
		return nil, c.errors.ErrorOrNil()
	}
	return c.chunk, nil
}

/* token stream */

func (c *Compiler) advance() {
	c.prev = c.curr
	for {
		tok, err := c.lex.Scan()
		if err != nil {
			c.reportScanError(err)
			continue
		}
		c.curr = tok
		break
	}
}

func (c *Compiler) check(t token.Type) bool {
	return c.curr.Type == t
}

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

/* error reporting */

func (c *Compiler) reportScanError(err error) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errors = multierror.Append(c.errors, err)
}

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errors = multierror.Append(c.errors, &CompileError{
		Line:    tok.Line,
		Lexeme:  string(tok.Lexeme),
		Message: msg,
	})
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.curr, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.prev, msg) }

// sync discards tokens until it reaches a statement boundary, so one bad
// token doesn't cascade into a wall of spurious follow-on errors.
func (c *Compiler) sync() {
	c.panicMode = false
	for !c.check(token.EOF) {
		if c.prev.Type == token.SEMICOLON {
			return
		}
		switch c.curr.Type {
		case token.VAR, token.CONST, token.FOR, token.IF, token.WHILE, token.PRINT:
			return
		}
		c.advance()
	}
}

/* emission */

func (c *Compiler) emit(op Opcode, operands ...int) int {
	return c.chunk.Emit(op, c.prev.Line, operands...)
}

func (c *Compiler) emitJump(op Opcode) int {
	offset := c.emit(op, 0)
	return offset
}

// patchJump sets the jump instruction at offset's destination delta to
// the distance from just past that instruction to the current end of
// the chunk, per §4.5.
func (c *Compiler) patchJump(offset int) {
	delta := len(c.chunk.Code) - offset - 3
	if delta < 0 || delta > math.MaxUint16 {
		c.error("Jump target out of range.")
		return
	}
	c.chunk.PatchOperand(offset, uint16(delta))
	logrus.Tracef("patched jump at %d -> delta %d", offset, delta)
}

// emitLoop emits a backward LOOP_JUMP whose delta is computed immediately,
// per §4.5 ("LOOP_JUMP is emitted with its positive backward delta already
// computed").
func (c *Compiler) emitLoop(loopStart int) {
	offset := c.emit(OP_LOOP_JUMP, 0)
	delta := offset + 3 - loopStart
	if delta < 0 || delta > math.MaxUint16 {
		c.error("Loop body too large.")
		return
	}
	c.chunk.PatchOperand(offset, uint16(delta))
	logrus.Tracef("emitted loop jump at %d -> delta %d", offset, delta)
}

func (c *Compiler) addConstant(v value.Value) uint16 {
	return c.chunk.AddConstant(v)
}

/* scope tracking, §4.3 */

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	count := 0
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		c.locals = c.locals[:len(c.locals)-1]
		count++
	}
	c.emit(OP_POPN, count)
}

func (c *Compiler) addLocal(name string, immutable bool) {
	c.locals = append(c.locals, Local{Name: name, Depth: c.scopeDepth, Initialized: false, Immutable: immutable})
}

func (c *Compiler) markInitialized() {
	c.locals[len(c.locals)-1].Initialized = true
	c.locals[len(c.locals)-1].Depth = c.scopeDepth
}

// resolveLocal searches locals from top down. slot is the local's index,
// ok is false if no local matched (meaning: global). immutable and
// initialized describe the matched local.
func (c *Compiler) resolveLocal(name string) (slot int, ok bool, immutable bool, initialized bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return i, true, c.locals[i].Immutable, c.locals[i].Initialized
		}
	}
	return 0, false, false, false
}

// declareLocal enforces the shadowing ban: within the same scope depth,
// redeclaring a name is a compile error.
func (c *Compiler) declareLocal(name string, immutable bool) {
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		local := c.locals[i]
		if local.Depth < c.scopeDepth {
			break
		}
		if local.Name == name {
			c.error("Already a variable with this name in this scope.")
			return
		}
	}
	c.addLocal(name, immutable)
}

/* grammar, §4.4 */

func (c *Compiler) declaration() {
	switch {
	case c.match(token.VAR):
		c.varDecl(false)
	case c.match(token.CONST):
		c.varDecl(true)
	default:
		c.statement()
	}
	if c.panicMode {
		c.sync()
	}
}

func (c *Compiler) varDecl(immutable bool) {
	c.consume(token.IDENTIFIER, "Expect variable name.")
	name := string(c.prev.Lexeme)

	c.declareLocal(name, immutable)

	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emit(OP_CONSTANT, int(c.addConstant(value.NilValue())))
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	if c.scopeDepth == 0 {
		idx := c.addConstant(value.StringValue(name))
		c.emit(OP_DEFINE_GLOBAL, int(idx))
	} else {
		c.markInitialized()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emit(OP_PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emit(OP_POP)
}

// ifStatement implements the desugaring of §4.4 exactly:
// <cond>; FALSE_JUMP thenJ; POP; <then>; JUMP elseJ; patch thenJ; POP; <else?>; patch elseJ
func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'itha'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(OP_FALSE_JUMP)
	c.emit(OP_POP)
	c.statement()

	elseJump := c.emitJump(OP_JUMP)
	c.patchJump(thenJump)
	c.emit(OP_POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

// whileStatement: loop_start = here; <cond>; FALSE_JUMP exit; POP; <body>;
// LOOP_JUMP to loop_start; patch exit; POP.
func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(token.LPAREN, "Expect '(' after 'baynama'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(OP_FALSE_JUMP)
	c.emit(OP_POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(OP_POP)
}

// forStatement desugars the C-style for-loop per §4.4.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'tawaf'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDecl(false)
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.check(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OP_FALSE_JUMP)
		c.emit(OP_POP)
	} else {
		c.advance() // consume the bare ';'
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(OP_JUMP)
		incStart := len(c.chunk.Code)
		c.expression()
		c.emit(OP_POP)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incStart
		c.patchJump(bodyJump)
	} else {
		c.advance() // consume ')'
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(OP_POP)
	}
	c.endScope()
}

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.prev.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.curr.Type).prec {
		c.advance()
		infix := getRule(c.prev.Type).infix
		infix(c, canAssign)
	}
}

/* prefix/infix handlers */

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opType := c.prev.Type
	c.parsePrecedence(PrecUnary)
	switch opType {
	case token.MINUS:
		c.emit(OP_NEGATE)
	case token.BANG:
		c.emit(OP_NOT)
	}
}

// binary lowers the comparison operators absent from the opcode set:
// `!=` -> EQUAL, NOT; `>=` -> LESS, NOT; `<=` -> GREATER, NOT.
func (c *Compiler) binary(_ bool) {
	opType := c.prev.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.prec + 1)

	switch opType {
	case token.PLUS:
		c.emit(OP_ADD)
	case token.MINUS:
		c.emit(OP_SUBTRACT)
	case token.STAR:
		c.emit(OP_MULTIPLY)
	case token.SLASH:
		c.emit(OP_DIVIDE)
	case token.PERCENT:
		c.emit(OP_MODULO)
	case token.EQUAL_EQUAL:
		c.emit(OP_EQUAL)
	case token.BANG_EQUAL:
		c.emit(OP_EQUAL)
		c.emit(OP_NOT)
	case token.GREATER:
		c.emit(OP_GREATER)
	case token.GREATER_EQUAL:
		c.emit(OP_LESS)
		c.emit(OP_NOT)
	case token.LESS:
		c.emit(OP_LESS)
	case token.LESS_EQUAL:
		c.emit(OP_GREATER)
		c.emit(OP_NOT)
	}
}

// and: `a wa b` -> FALSE_JUMP end; POP; <b>; :end
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(OP_FALSE_JUMP)
	c.emit(OP_POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

// or: `a aw b` -> FALSE_JUMP else; JUMP end; :else POP; <b>; :end
func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(OP_FALSE_JUMP)
	endJump := c.emitJump(OP_JUMP)
	c.patchJump(elseJump)
	c.emit(OP_POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func (c *Compiler) number(_ bool) {
	n, err := strconv.ParseFloat(string(c.prev.Lexeme), 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	idx := c.addConstant(value.NumberValue(n))
	c.emit(OP_CONSTANT, int(idx))
}

func (c *Compiler) stringLiteral(_ bool) {
	lexeme := c.prev.Lexeme
	s := string(lexeme[1 : len(lexeme)-1])
	idx := c.addConstant(value.StringValue(s))
	c.emit(OP_CONSTANT, int(idx))
}

func (c *Compiler) literal(_ bool) {
	switch c.prev.Type {
	case token.TRUE:
		c.emit(OP_CONSTANT, int(c.addConstant(value.BoolValue(true))))
	case token.FALSE:
		c.emit(OP_CONSTANT, int(c.addConstant(value.BoolValue(false))))
	case token.NIL:
		c.emit(OP_CONSTANT, int(c.addConstant(value.NilValue())))
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.prev, canAssign)
}

// namedVariable implements §4.4's named-variable rule: resolve scope,
// then if can_assign and the next token is an assignment form, enforce
// immutability and emit the appropriate GET/BINARY/SET sequence.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	nameStr := string(name.Lexeme)
	slot, isLocal, immutable, initialized := c.resolveLocal(nameStr)

	if isLocal && !initialized {
		c.errorAt(name, "Can't read local variable in its own initializer.")
		return
	}

	var getOp, setOp Opcode
	var arg int
	if isLocal {
		getOp, setOp, arg = OP_GET_LOCAL, OP_SET_LOCAL, slot
	} else {
		idx := c.addConstant(value.StringValue(nameStr))
		getOp, setOp, arg = OP_GET_GLOBAL, OP_SET_GLOBAL, int(idx)
	}

	isAssignForm := c.check(token.EQUAL) || c.check(token.PLUS_EQUAL) || c.check(token.MINUS_EQUAL) ||
		c.check(token.STAR_EQUAL) || c.check(token.SLASH_EQUAL) || c.check(token.PLUS_PLUS) || c.check(token.MINUS_MINUS)

	if !canAssign || !isAssignForm {
		c.emit(getOp, arg)
		return
	}

	if immutable {
		c.errorAt(name, "Can't assign to lazim-declared variable '"+nameStr+"'.")
	}

	switch {
	case c.match(token.EQUAL):
		c.expression()
	case c.match(token.PLUS_EQUAL):
		c.emit(getOp, arg)
		c.expression()
		c.emit(OP_ADD)
	case c.match(token.MINUS_EQUAL):
		c.emit(getOp, arg)
		c.expression()
		c.emit(OP_SUBTRACT)
	case c.match(token.STAR_EQUAL):
		c.emit(getOp, arg)
		c.expression()
		c.emit(OP_MULTIPLY)
	case c.match(token.SLASH_EQUAL):
		c.emit(getOp, arg)
		c.expression()
		c.emit(OP_DIVIDE)
	case c.match(token.PLUS_PLUS):
		c.emit(getOp, arg)
		c.emit(OP_CONSTANT, int(c.addConstant(value.NumberValue(1))))
		c.emit(OP_ADD)
	case c.match(token.MINUS_MINUS):
		c.emit(getOp, arg)
		c.emit(OP_CONSTANT, int(c.addConstant(value.NumberValue(1))))
		c.emit(OP_SUBTRACT)
	}

	c.emit(setOp, arg)
}
