package compiler

import (
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/mna/rlox/lang/chunk"
)

// uninitialized marks a Local whose initializer expression is still being
// parsed, so a reference to it from within that initializer is rejected
// (spec section 4.3.1: "var x = x;" must fail, not read garbage).
const uninitialized = -1

// local records one declared variable's position in the current function's
// stack frame.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueDesc records how a function's upvalue slot is populated: either
// by capturing the enclosing function's local at Index (IsLocal true), or
// by aliasing the enclosing function's own upvalue at Index (IsLocal
// false), chaining capture through any number of nested scopes.
type upvalueDesc struct {
	isLocal bool
	index   uint32
}

// funcState is one compilation context, one per enclosing function
// literal currently being compiled (spec section 4.3.1). The top-level
// script is funcState with enclosing == nil.
type funcState struct {
	enclosing *funcState
	proto     *chunk.FunctionProto
	locals    []local
	upvalues  []upvalueDesc
	scopeDepth int

	// interned deduplicates this function's own number and string
	// constants: a literal appearing twice in the same function (a loop
	// bound, a repeated message string) gets a single constant pool slot.
	interned *swiss.Map[any, uint32]
}

func newFuncState(enclosing *funcState, name string) *funcState {
	fs := &funcState{
		enclosing: enclosing,
		proto: &chunk.FunctionProto{
			Name:  name,
			Chunk: chunk.New(),
		},
		interned: swiss.NewMap[any, uint32](8),
	}
	// slot 0 is reserved for the running closure itself (spec 4.3.1), so the
	// compiler never hands it out to a user-declared local.
	fs.locals = append(fs.locals, local{name: "", depth: 0})
	return fs
}

// reservePredeclared declares name as an already-initialized local at
// depth 0, without emitting any bytecode to produce its value: the VM
// seeds the corresponding stack slot itself before execution starts (see
// chunk.PredeclaredNames). Only ever called for the top-level script's
// funcState.
func (fs *funcState) reservePredeclared(name string) {
	fs.locals = append(fs.locals, local{name: name, depth: 0})
}

func (fs *funcState) beginScope() { fs.scopeDepth++ }

// endScope drops every local declared at the scope being closed, emitting
// a Pop for each (spec section 4.3.4). It does not emit anything to close
// captured upvalues: a captured local's cell outlives the Go stack slot on
// its own, kept alive by whichever closures reference it.
func (c *Compiler) endScope() {
	fs := c.fs
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		c.emitOp(chunk.OpPop)
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

// declareLocal registers name as a new local in the current scope. It is
// an error to redeclare a name already local to the same scope depth.
func (c *Compiler) declareLocal(name string) {
	fs := c.fs
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != uninitialized && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
			return
		}
	}
	fs.locals = append(fs.locals, local{name: name, depth: uninitialized})
}

// markInitialized records that the most recently declared local's
// initializer has finished evaluating, making it visible to references
// that follow (including, for a function's own name, references from
// within its own body).
func (c *Compiler) markInitialized() {
	fs := c.fs
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

// resolveKind names what a variable reference can be bound to.
type resolveKind int

const (
	resolveNone resolveKind = iota
	resolveLocal
	resolveUpvalue
)

// resolveLocalIndex implements spec section 4.3.3 step 1: walk this function's
// locals from the most recently declared, matching by name.
func resolveLocalIndex(fs *funcState, name string) (index int, uninit bool, found bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == uninitialized {
				return i, true, true
			}
			return i, false, true
		}
	}
	return 0, false, false
}

// resolveUpvalueIndex implements spec section 4.3.3 step 2: find name in
// an enclosing function, marking the owning local captured and chaining
// an upvalue descriptor through every intermediate context.
func resolveUpvalueIndex(c *Compiler, fs *funcState, name string) (index int, found bool) {
	if fs.enclosing == nil {
		return 0, false
	}

	if localIdx, uninit, ok := resolveLocalIndex(fs.enclosing, name); ok {
		if uninit {
			c.error("Can't read local variable in its own initializer.")
			return 0, true
		}
		fs.enclosing.locals[localIdx].isCaptured = true
		return addUpvalue(fs, uint32(localIdx), true), true
	}

	if upIdx, ok := resolveUpvalueIndex(c, fs.enclosing, name); ok {
		return addUpvalue(fs, uint32(upIdx), false), true
	}
	return 0, false
}

// addUpvalue appends a new upvalue descriptor to fs, deduplicating against
// an existing identical descriptor.
func addUpvalue(fs *funcState, index uint32, isLocal bool) int {
	if i := slices.IndexFunc(fs.upvalues, func(uv upvalueDesc) bool {
		return uv.index == index && uv.isLocal == isLocal
	}); i >= 0 {
		return i
	}
	fs.upvalues = append(fs.upvalues, upvalueDesc{isLocal: isLocal, index: index})
	return len(fs.upvalues) - 1
}
