package ast

import (
	"fmt"
	"strings"

	"github.com/candor-lang/candor/token"
)

// Let declares a new binding: "Let x be 5."
type Let struct {
	Position token.Position
	Name     string
	Value    Expr
}

func (s *Let) stmtNode()           {}
func (s *Let) Pos() token.Position { return s.Position }
func (s *Let) String() string      { return fmt.Sprintf("Let %s be %s.", s.Name, s.Value) }

// Assign rebinds an existing variable: "Set x to 10."
type Assign struct {
	Position token.Position
	Name     string
	Value    Expr
}

func (s *Assign) stmtNode()           {}
func (s *Assign) Pos() token.Position { return s.Position }
func (s *Assign) String() string      { return fmt.Sprintf("Set %s to %s.", s.Name, s.Value) }

// IndexAssign stores into a collection element: "Set item 2 of xs to v."
type IndexAssign struct {
	Position token.Position
	Target   Expr
	Index    Expr
	Value    Expr
}

func (s *IndexAssign) stmtNode()           {}
func (s *IndexAssign) Pos() token.Position { return s.Position }
func (s *IndexAssign) String() string {
	return fmt.Sprintf("Set item %s of %s to %s.", s.Index, s.Target, s.Value)
}

// FieldAssign stores into a record field: "Set the x of p to 3."
type FieldAssign struct {
	Position token.Position
	Target   Expr
	Field    string
	Value    Expr
}

func (s *FieldAssign) stmtNode()           {}
func (s *FieldAssign) Pos() token.Position { return s.Position }
func (s *FieldAssign) String() string {
	return fmt.Sprintf("Set the %s of %s to %s.", s.Field, s.Target, s.Value)
}

// Show displays a value: "Show x."
type Show struct {
	Position token.Position
	Value    Expr
}

func (s *Show) stmtNode()           {}
func (s *Show) Pos() token.Position { return s.Position }
func (s *Show) String() string      { return fmt.Sprintf("Show %s.", s.Value) }

// If branches on a condition.
type If struct {
	Position token.Position
	Cond     Expr
	Then     []Stmt
	Else     []Stmt
}

func (s *If) stmtNode()           {}
func (s *If) Pos() token.Position { return s.Position }
func (s *If) String() string      { return fmt.Sprintf("If %s: ...", s.Cond) }

// While repeats its body while the condition holds.
type While struct {
	Position token.Position
	Cond     Expr
	Body     []Stmt
}

func (s *While) stmtNode()           {}
func (s *While) Pos() token.Position { return s.Position }
func (s *While) String() string      { return fmt.Sprintf("While %s: ...", s.Cond) }

// ForEach iterates a collection: "For each x in xs: ...". KeyName is
// set for map iteration, where Name receives the value.
type ForEach struct {
	Position token.Position
	Name     string
	KeyName  string // empty unless iterating key/value pairs
	Iterable Expr
	Body     []Stmt
}

func (s *ForEach) stmtNode()           {}
func (s *ForEach) Pos() token.Position { return s.Position }
func (s *ForEach) String() string {
	return fmt.Sprintf("For each %s in %s: ...", s.Name, s.Iterable)
}

// Return exits the enclosing function. Value may be nil.
type Return struct {
	Position token.Position
	Value    Expr
}

func (s *Return) stmtNode()           {}
func (s *Return) Pos() token.Position { return s.Position }
func (s *Return) String() string {
	if s.Value == nil {
		return "Return."
	}
	return fmt.Sprintf("Return %s.", s.Value)
}

// FuncDecl declares a named function: "To double x: ...".
type FuncDecl struct {
	Position token.Position
	Name     string
	Params   []string
	Body     []Stmt
}

func (s *FuncDecl) stmtNode()           {}
func (s *FuncDecl) Pos() token.Position { return s.Position }
func (s *FuncDecl) String() string {
	return fmt.Sprintf("To %s %s: ...", s.Name, strings.Join(s.Params, " "))
}

// FieldDef is one field in a record declaration. Default may be nil.
type FieldDef struct {
	Name    string
	Default Expr
}

// RecordDecl declares a record type with defaultable fields.
type RecordDecl struct {
	Position token.Position
	Name     string
	Fields   []FieldDef
}

func (s *RecordDecl) stmtNode()           {}
func (s *RecordDecl) Pos() token.Position { return s.Position }
func (s *RecordDecl) String() string      { return fmt.Sprintf("A %s has ...", s.Name) }

// CtorDef is one constructor of a variant declaration. Fields is nil
// for positional constructors, whose arity is Arity.
type CtorDef struct {
	Name   string
	Fields []string
	Arity  int
}

// VariantDecl declares an inductive type and its constructors.
type VariantDecl struct {
	Position token.Position
	Name     string
	Ctors    []CtorDef
}

func (s *VariantDecl) stmtNode()           {}
func (s *VariantDecl) Pos() token.Position { return s.Position }
func (s *VariantDecl) String() string      { return fmt.Sprintf("A %s is one of ...", s.Name) }

// Push appends to a list: "Push v onto xs."
type Push struct {
	Position token.Position
	Value    Expr
	Target   Expr
}

func (s *Push) stmtNode()           {}
func (s *Push) Pos() token.Position { return s.Position }
func (s *Push) String() string      { return fmt.Sprintf("Push %s onto %s.", s.Value, s.Target) }

// Pop removes the last item of a list: "Pop from xs into x." Name may
// be empty to discard the item.
type Pop struct {
	Position token.Position
	Source   Expr
	Name     string
}

func (s *Pop) stmtNode()           {}
func (s *Pop) Pos() token.Position { return s.Position }
func (s *Pop) String() string      { return fmt.Sprintf("Pop from %s.", s.Source) }

// AddTo inserts into a set: "Add v to s."
type AddTo struct {
	Position token.Position
	Value    Expr
	Target   Expr
}

func (s *AddTo) stmtNode()           {}
func (s *AddTo) Pos() token.Position { return s.Position }
func (s *AddTo) String() string      { return fmt.Sprintf("Add %s to %s.", s.Value, s.Target) }

// RemoveFrom deletes from a set or map: "Remove v from s."
type RemoveFrom struct {
	Position token.Position
	Value    Expr
	Target   Expr
}

func (s *RemoveFrom) stmtNode()           {}
func (s *RemoveFrom) Pos() token.Position { return s.Position }
func (s *RemoveFrom) String() string {
	return fmt.Sprintf("Remove %s from %s.", s.Value, s.Target)
}

// MatchArm is one constructor arm of a Match statement. Bindings are
// positional; FieldBindings bind named constructor fields.
type MatchArm struct {
	Ctor          string
	Bindings      []string
	FieldBindings []string
	Body          []Stmt
}

// Match inspects a variant value by constructor: "Inspect shape: ...".
// Otherwise is the wildcard arm and may be nil.
type Match struct {
	Position  token.Position
	Subject   Expr
	Arms      []MatchArm
	Otherwise []Stmt
}

func (s *Match) stmtNode()           {}
func (s *Match) Pos() token.Position { return s.Position }
func (s *Match) String() string      { return fmt.Sprintf("Inspect %s: ...", s.Subject) }

// Zone is a statically scoped region marker.
type Zone struct {
	Position token.Position
	Name     string
	Body     []Stmt
}

func (s *Zone) stmtNode()           {}
func (s *Zone) Pos() token.Position { return s.Position }
func (s *Zone) String() string      { return fmt.Sprintf("Zone %s: ...", s.Name) }

// Assert checks a condition at run time. Static proof assertions are
// marked with Static and compile to nothing.
type Assert struct {
	Position token.Position
	Cond     Expr
	Static   bool
}

func (s *Assert) stmtNode()           {}
func (s *Assert) Pos() token.Position { return s.Position }
func (s *Assert) String() string      { return fmt.Sprintf("Assert %s.", s.Cond) }

// Check consults the security policy. Exactly one of Predicate or
// Capability is set; Object accompanies the capability form and may be
// nil. SourceText is quoted in the failure message.
type Check struct {
	Position   token.Position
	Subject    Expr
	Predicate  string
	Capability string
	Object     Expr
	SourceText string
}

func (s *Check) stmtNode()           {}
func (s *Check) Pos() token.Position { return s.Position }
func (s *Check) String() string      { return fmt.Sprintf("Check %s.", s.SourceText) }

// Increase adjusts a counter field upward: "Increase the hits of page by 1."
type Increase struct {
	Position token.Position
	Target   Expr
	Field    string
	Amount   Expr
}

func (s *Increase) stmtNode()           {}
func (s *Increase) Pos() token.Position { return s.Position }
func (s *Increase) String() string {
	return fmt.Sprintf("Increase the %s of %s by %s.", s.Field, s.Target, s.Amount)
}

// Decrease adjusts a counter field downward.
type Decrease struct {
	Position token.Position
	Target   Expr
	Field    string
	Amount   Expr
}

func (s *Decrease) stmtNode()           {}
func (s *Decrease) Pos() token.Position { return s.Position }
func (s *Decrease) String() string {
	return fmt.Sprintf("Decrease the %s of %s by %s.", s.Field, s.Target, s.Amount)
}

// Merge folds one replica's counters into another: "Merge other into local."
type Merge struct {
	Position token.Position
	Target   Expr
	Source   Expr
}

func (s *Merge) stmtNode()           {}
func (s *Merge) Pos() token.Position { return s.Position }
func (s *Merge) String() string      { return fmt.Sprintf("Merge %s into %s.", s.Source, s.Target) }

// Give transfers ownership of a binding to a function: "Give x to sink."
// The binding is unusable afterward.
type Give struct {
	Position  token.Position
	Name      string
	Recipient string
}

func (s *Give) stmtNode()           {}
func (s *Give) Pos() token.Position { return s.Position }
func (s *Give) String() string      { return fmt.Sprintf("Give %s to %s.", s.Name, s.Recipient) }

// ExprStmt evaluates an expression for its effects: a bare call.
type ExprStmt struct {
	Position token.Position
	Value    Expr
}

func (s *ExprStmt) stmtNode()           {}
func (s *ExprStmt) Pos() token.Position { return s.Position }
func (s *ExprStmt) String() string      { return s.Value.String() + "." }

// Concurrent holds blocks declared to run concurrently or in
// parallel. The synchronous machine runs them in order.
type Concurrent struct {
	Position token.Position
	Blocks   [][]Stmt
}

func (s *Concurrent) stmtNode()           {}
func (s *Concurrent) Pos() token.Position { return s.Position }
func (s *Concurrent) String() string      { return "Concurrently: ..." }

// AsyncStmt marks a statement form that only the asynchronous
// evaluator supports (file and network effects, tasks, message
// passing, sleeping). The compiler rejects programs containing one;
// the entry point routes such programs to the external evaluator.
type AsyncStmt struct {
	Position token.Position
	Form     string // e.g. "read file", "send message", "sleep"
	Args     []Expr
}

func (s *AsyncStmt) stmtNode()           {}
func (s *AsyncStmt) Pos() token.Position { return s.Position }
func (s *AsyncStmt) String() string      { return fmt.Sprintf("<%s>", s.Form) }
