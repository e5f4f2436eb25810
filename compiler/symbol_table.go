package compiler

// Symbol resolution and register accounting. Bindings outside any
// function resolve to globals, which are name-keyed at run time.
// Bindings inside a function live in registers within the frame's
// window. A block claims registers from its enclosing function and
// releases them on exit, so sibling branches reuse the same registers;
// the function keeps a high-water mark that becomes its frame size.

// Scope classifies where a resolved name lives.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeLocal   Scope = "local"
	ScopeUpvalue Scope = "upvalue"
)

// Symbol is one declared name.
type Symbol struct {
	Name     string
	Register int  // meaningful for locals only
	Moved    bool // ownership transferred by a give statement
}

// Resolution is the outcome of resolving a name.
type Resolution struct {
	Symbol *Symbol
	Scope  Scope
}

// registerFile tracks register allocation for one function (or for
// the top level). next is the first free register; high is the
// high-water mark that sizes the frame.
type registerFile struct {
	next int
	high int
}

func (r *registerFile) claim() int {
	reg := r.next
	r.next++
	if r.next > r.high {
		r.high = r.next
	}
	return reg
}

func (r *registerFile) mark() int { return r.next }

func (r *registerFile) release(to int) { r.next = to }

// SymbolTable maps names to symbols. Tables nest: each block gets a
// child table, and each function body starts a new boundary so that
// resolution can distinguish locals from enclosing-function captures.
type SymbolTable struct {
	parent     *SymbolTable
	isBoundary bool // function boundary (or the global table itself)
	isGlobal   bool // the top-level module table
	symbols    map[string]*Symbol
	regs       *registerFile // shared across blocks of one function
}

// NewGlobalTable returns the module-scope table.
func NewGlobalTable() *SymbolTable {
	return &SymbolTable{
		isBoundary: true,
		isGlobal:   true,
		symbols:    map[string]*Symbol{},
		regs:       &registerFile{},
	}
}

// NewFunctionChild returns a table for a function body. The function
// gets a fresh register file.
func (t *SymbolTable) NewFunctionChild() *SymbolTable {
	return &SymbolTable{
		parent:     t,
		isBoundary: true,
		symbols:    map[string]*Symbol{},
		regs:       &registerFile{},
	}
}

// NewBlockChild returns a table for a nested block that shares the
// enclosing function's registers.
func (t *SymbolTable) NewBlockChild() *SymbolTable {
	return &SymbolTable{
		parent:  t,
		symbols: map[string]*Symbol{},
		regs:    t.regs,
	}
}

// Parent returns the enclosing table.
func (t *SymbolTable) Parent() *SymbolTable { return t.parent }

// IsGlobal reports whether bindings declared here are module globals.
func (t *SymbolTable) IsGlobal() bool {
	return t.functionRoot().isGlobal
}

func (t *SymbolTable) functionRoot() *SymbolTable {
	root := t
	for !root.isBoundary {
		root = root.parent
	}
	return root
}

// Declare binds a name in this table. Global-scope names get no
// register; function-scope names claim the next free register.
func (t *SymbolTable) Declare(name string) *Symbol {
	sym := &Symbol{Name: name, Register: -1}
	if !t.IsGlobal() {
		sym.Register = t.regs.claim()
	}
	t.symbols[name] = sym
	return sym
}

// Resolve finds a name, walking outward through blocks and function
// boundaries. A local found across a function boundary resolves to
// ScopeUpvalue.
func (t *SymbolTable) Resolve(name string) (Resolution, bool) {
	crossedBoundary := false
	for cur := t; cur != nil; cur = cur.parent {
		if sym, ok := cur.symbols[name]; ok {
			switch {
			case cur.functionRoot().isGlobal:
				return Resolution{Symbol: sym, Scope: ScopeGlobal}, true
			case crossedBoundary:
				return Resolution{Symbol: sym, Scope: ScopeUpvalue}, true
			default:
				return Resolution{Symbol: sym, Scope: ScopeLocal}, true
			}
		}
		if cur.isBoundary {
			crossedBoundary = true
		}
	}
	return Resolution{}, false
}

// VisibleNames returns every name visible from this table, for
// suggestions on name errors.
func (t *SymbolTable) VisibleNames() []string {
	var names []string
	for cur := t; cur != nil; cur = cur.parent {
		for name := range cur.symbols {
			names = append(names, name)
		}
	}
	return names
}

// Registers returns this function's register file.
func (t *SymbolTable) Registers() *registerFile { return t.regs }

// HighWater returns the function's register high-water mark.
func (t *SymbolTable) HighWater() int { return t.regs.high }
