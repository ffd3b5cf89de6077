package compiler

import (
	"strconv"

	"github.com/mna/rlox/lang/chunk"
	"github.com/mna/rlox/lang/token"
)

// precedence orders binding strength from loosest to tightest, matching
// clox's ladder (spec section 4.3.2).
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // ()
	precPrimary
)

// parseFn is a prefix or infix parsing rule: it is responsible for
// compiling the expression fragment starting at c.previous, emitting
// bytecode directly (no AST node is ever built).
type parseFn func(c *Compiler, canAssign bool)

type rule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

// rules is the Pratt table: one entry per token kind naming the function
// to call when that kind starts an expression (prefix) or follows one
// (infix), and the precedence to use when the infix position binds.
var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LPAREN:  {prefix: grouping, infix: call, precedence: precCall},
		token.MINUS:   {prefix: unary, infix: binary, precedence: precTerm},
		token.PLUS:    {infix: binary, precedence: precTerm},
		token.SLASH:   {infix: binary, precedence: precFactor},
		token.STAR:    {infix: binary, precedence: precFactor},
		token.BANG:    {prefix: unary},
		token.BANG_EQ: {infix: binary, precedence: precEquality},
		token.EQ_EQ:   {infix: binary, precedence: precEquality},
		token.GT:      {infix: binary, precedence: precComparison},
		token.GT_EQ:   {infix: binary, precedence: precComparison},
		token.LT:      {infix: binary, precedence: precComparison},
		token.LT_EQ:   {infix: binary, precedence: precComparison},
		token.IDENT:   {prefix: variable},
		token.STRING:  {prefix: stringLiteral},
		token.NUMBER:  {prefix: number},
		token.AND:     {infix: and_, precedence: precAnd},
		token.OR:      {infix: or_, precedence: precOr},
		token.FALSE:   {prefix: literal},
		token.TRUE:    {prefix: literal},
		token.NIL:     {prefix: literal},
	}
}

func getRule(k token.Kind) rule { return rules[k] }

// expression compiles one expression at precAssignment, the loosest
// level, so assignment itself is reachable.
func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence is the heart of the Pratt parser (spec section 4.3.2):
// it consumes the prefix rule for c.current, then keeps consuming infix
// rules as long as the next token's precedence is at least prec.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Kind).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Kind).precedence {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQ) {
		c.error("Invalid assignment target.")
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		c.emitOp(chunk.OpNegate)
	case token.BANG:
		c.emitOp(chunk.OpNot)
	}
}

func binary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	r := getRule(opKind)
	c.parsePrecedence(r.precedence + 1)

	switch opKind {
	case token.PLUS:
		c.emitOp(chunk.OpAdd)
	case token.MINUS:
		c.emitOp(chunk.OpSubtract)
	case token.STAR:
		c.emitOp(chunk.OpMultiply)
	case token.SLASH:
		c.emitOp(chunk.OpDivide)
	case token.EQ_EQ:
		c.emitOp(chunk.OpEqual)
	case token.BANG_EQ:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.GT:
		c.emitOp(chunk.OpGreater)
	case token.GT_EQ:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.LT:
		c.emitOp(chunk.OpLess)
	case token.LT_EQ:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	}
}

// and_ short-circuits: if the left operand is false, skip the right
// operand entirely and leave the false value as the result.
func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or_ short-circuits the other way: if the left operand is true, skip
// the right operand.
func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func number(c *Compiler, _ bool) {
	v, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(v)
}

func stringLiteral(c *Compiler, _ bool) {
	lex := c.previous.Lexeme
	c.emitConstant(lex[1 : len(lex)-1])
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(chunk.OpFalse)
	case token.TRUE:
		c.emitOp(chunk.OpTrue)
	case token.NIL:
		c.emitOp(chunk.OpNil)
	}
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous, canAssign)
}

// emitConstant adds v (a raw float64 or string, per chunk.Chunk's untyped
// constant pool) to the current function's constant pool and emits an
// OpConstant referencing it. Identical literals within the same function
// share a single pool slot (see funcState.interned).
func (c *Compiler) emitConstant(v any) {
	if idx, ok := c.fs.interned.Get(v); ok {
		c.emitOpUint32(chunk.OpConstant, idx)
		return
	}
	idx, err := c.chunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return
	}
	c.fs.interned.Put(v, idx)
	c.emitOpUint32(chunk.OpConstant, idx)
}

// call compiles a call expression's argument list, already positioned
// just after the '(' that follows the callee expression.
func call(c *Compiler, _ bool) {
	argCount := c.argumentList()
	c.emitOpUint32(chunk.OpCall, uint32(argCount))
}

func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return count
}
