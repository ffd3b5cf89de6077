// Package compiler implements rlox's single-pass compiler: source text
// goes straight to bytecode, with no intermediate AST (spec section 4.3).
// It is a Pratt parser in the mold of clox: parsing and code generation
// happen in the same recursive-descent walk, driven by a table of
// per-token prefix/infix rules.
package compiler

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/mna/rlox/lang/chunk"
	"github.com/mna/rlox/lang/scanner"
	"github.com/mna/rlox/lang/token"
)

// syncKinds are the token kinds synchronize treats as a plausible
// statement boundary to resume parsing at after an error.
var syncKinds = []token.Kind{
	token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN,
}

// Compiler holds the state of one compilation: the token stream, the
// current and enclosing function contexts, and accumulated errors.
type Compiler struct {
	scanner *scanner.Scanner
	fs      *funcState

	current  token.Token
	previous token.Token

	errs      []Error
	panicMode bool
}

// Compile compiles source into a top-level FunctionProto representing the
// script, plus any diagnostics. A non-empty error slice means the
// returned proto must not be run.
func Compile(source string) (*chunk.FunctionProto, []Error) {
	c := &Compiler{scanner: scanner.New(source)}
	c.fs = newFuncState(nil, "")
	for _, name := range chunk.PredeclaredNames {
		c.fs.reservePredeclared(name)
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}

	proto := c.endFunction()
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return proto, nil
}

func (c *Compiler) chunk() *chunk.Chunk { return c.fs.proto.Chunk }

// advance pulls the next non-error token from the scanner into c.current,
// reporting every error token the scanner hands back along the way.
func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.ScanToken()
		if c.current.Kind != token.ERROR {
			break
		}
		c.scanError(c.current.Line, c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, message string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)           { c.errorAt(c.previous, message) }

func (c *Compiler) errorAt(t token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errs = append(c.errs, Error{
		Line:    t.Line,
		Lexeme:  t.Lexeme,
		AtEnd:   t.Kind == token.EOF,
		AtToken: true,
		Message: message,
	})
}

// scanError reports a scanner-level error (an illegal character, an
// unterminated string): it has no associated lexeme, so it renders per
// spec section 7 as "[line L] Error: <message>" rather than the
// "Error at '...'" form errorAt produces for parse errors.
func (c *Compiler) scanError(line int, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.errs = append(c.errs, Error{
		Line:    line,
		AtToken: false,
		Message: message,
	})
}

// synchronize discards tokens after a parse error until it reaches a
// plausible statement boundary, so one mistake doesn't cascade into a
// wall of spurious diagnostics (spec section 7).
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMICOLON {
			return
		}
		if slices.Contains(syncKinds, c.current.Kind) {
			return
		}
		c.advance()
	}
}

// --- bytecode emission helpers ---

func (c *Compiler) emitByte(b byte) {
	if _, err := c.chunk().WriteByte(b, c.previous.Line); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitOp(op chunk.OpCode) {
	if _, err := c.chunk().WriteOp(op, c.previous.Line); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitUint32(v uint32) {
	if _, err := c.chunk().WriteUint32(v, c.previous.Line); err != nil {
		c.error(err.Error())
	}
}

func (c *Compiler) emitOpUint32(op chunk.OpCode, v uint32) {
	c.emitOp(op)
	c.emitUint32(v)
}

func (c *Compiler) emitReturn() {
	c.emitOp(chunk.OpNil)
	c.emitOp(chunk.OpReturn)
}

// emitJump writes op followed by a placeholder operand and returns the
// offset of that operand, to be filled in later by patchJump.
func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	off := c.chunk().Len()
	c.emitUint32(0)
	return off
}

// patchJump backfills the operand at off with the distance from just past
// the operand to the chunk's current end, i.e. "here".
func (c *Compiler) patchJump(off int) {
	target := c.chunk().Len()
	dist := target - (off + 4)
	if dist < 0 {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().PatchUint32(off, uint32(dist))
}

// emitLoop writes OpLoop with an operand taking the VM backward to
// loopStart: the distance from just past this instruction's operand back
// to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	dist := c.chunk().Len() + 4 - loopStart
	if dist < 0 {
		c.error("Loop body too large.")
		dist = 0
	}
	c.emitUint32(uint32(dist))
}

// --- scopes ---

func (c *Compiler) beginScope() { c.fs.beginScope() }

// --- function compilation ---

// endFunction closes out the current function context, emitting an
// implicit trailing return, and pops back to the enclosing context if
// any.
func (c *Compiler) endFunction() *chunk.FunctionProto {
	c.emitReturn()
	proto := c.fs.proto
	proto.UpvalueCount = len(c.fs.upvalues)
	c.fs = c.fs.enclosing
	return proto
}

// function compiles a function literal's parameter list and body, already
// positioned just after the function's name token, and leaves an
// OpClosure (plus its trailing upvalue descriptors) emitted into the
// enclosing chunk.
func (c *Compiler) function(name string) {
	c.fs = newFuncState(c.fs, name)
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.fs.proto.Arity++
			if c.fs.proto.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constIdx := c.parseVariable("Expect parameter name.")
			c.defineVariable(constIdx)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	inner := c.fs
	proto := c.endFunction()

	enclosing := c.fs
	constIdx, err := enclosing.proto.Chunk.AddConstant(proto)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.emitOpUint32(chunk.OpClosure, constIdx)
	for _, uv := range inner.upvalues {
		var isLocal byte
		if uv.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal)
		c.emitUint32(uv.index)
	}
}

func (c *Compiler) funDeclaration() {
	constIdx := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(c.previous.Lexeme)
	c.defineVariable(constIdx)
}

// --- variable declaration / resolution ---

// parseVariable consumes an identifier, declares it as a local of the
// current scope, and returns an index later handed to defineVariable.
// Every binding in rlox is a local slot (spec section 4.3.3: no global
// table even at the top level), so the returned index is only ever used
// by the caller to remember how many locals preceded this declaration.
func (c *Compiler) parseVariable(message string) uint32 {
	c.consume(token.IDENT, message)
	name := c.previous.Lexeme
	c.declareLocal(name)
	return uint32(len(c.fs.locals) - 1)
}

// defineVariable marks the local declared by the matching parseVariable
// call as initialized and usable.
func (c *Compiler) defineVariable(_ uint32) {
	c.markInitialized()
}

func (c *Compiler) varDeclaration() {
	constIdx := c.parseVariable("Expect variable name.")
	if c.match(token.EQ) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(constIdx)
}

// namedVariable compiles a read or (if canAssign and an '=' follows) a
// write of the identifier in name, resolving it to a local slot or an
// upvalue per spec section 4.3.3.
func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.OpCode
	var index uint32

	if idx, uninit, ok := resolveLocalIndex(c.fs, name.Lexeme); ok {
		if uninit {
			c.error("Can't read local variable in its own initializer.")
		}
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
		index = uint32(idx)
	} else if idx, ok := resolveUpvalueIndex(c, c.fs, name.Lexeme); ok {
		getOp, setOp = chunk.OpGetUpvalue, chunk.OpSetUpvalue
		index = uint32(idx)
	} else {
		c.error(fmt.Sprintf("Unknown variable '%s'.", name.Lexeme))
		return
	}

	if canAssign && c.match(token.EQ) {
		c.expression()
		c.emitOpUint32(setOp, index)
	} else {
		c.emitOpUint32(getOp, index)
	}
}

// --- declarations / statements ---

func (c *Compiler) declaration() {
	switch {
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
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
	case c.match(token.RETURN):
		c.returnStatement()
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
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.fs.enclosing == nil {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.chunk().Len()
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

// forStatement desugars into the equivalent while-loop bytecode shape
// used by clox: an optional initializer runs once in its own scope, the
// condition (default true) gates a JumpIfFalse, and an optional increment
// is compiled between the condition and the body: a forward Jump skips it
// on the way into the body, the body loops back to it, and it loops back
// to the condition, per spec section 4.2's "no new bytecode for for"
// design.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.chunk().Len()
	exitJump := -1
	if !c.check(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	} else {
		c.advance()
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(chunk.OpJump)
		incrementStart := c.chunk().Len()
		c.expression()
		c.emitOp(chunk.OpPop)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.advance()
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}
	c.endScope()
}
