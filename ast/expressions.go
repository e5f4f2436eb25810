package ast

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/candor-lang/candor/token"
)

// Ident is a variable reference.
type Ident struct {
	Position token.Position
	Name     string
}

func (e *Ident) exprNode()           {}
func (e *Ident) Pos() token.Position { return e.Position }
func (e *Ident) String() string      { return e.Name }

// IntLit is an integer literal.
type IntLit struct {
	Position token.Position
	Value    int64
}

func (e *IntLit) exprNode()           {}
func (e *IntLit) Pos() token.Position { return e.Position }
func (e *IntLit) String() string      { return strconv.FormatInt(e.Value, 10) }

// FloatLit is a float literal.
type FloatLit struct {
	Position token.Position
	Value    float64
}

func (e *FloatLit) exprNode()           {}
func (e *FloatLit) Pos() token.Position { return e.Position }
func (e *FloatLit) String() string      { return strconv.FormatFloat(e.Value, 'g', -1, 64) }

// BoolLit is a boolean literal.
type BoolLit struct {
	Position token.Position
	Value    bool
}

func (e *BoolLit) exprNode()           {}
func (e *BoolLit) Pos() token.Position { return e.Position }
func (e *BoolLit) String() string      { return strconv.FormatBool(e.Value) }

// TextLit is a text literal.
type TextLit struct {
	Position token.Position
	Value    string
}

func (e *TextLit) exprNode()           {}
func (e *TextLit) Pos() token.Position { return e.Position }
func (e *TextLit) String() string      { return strconv.Quote(e.Value) }

// NothingLit is the absent-value literal.
type NothingLit struct {
	Position token.Position
}

func (e *NothingLit) exprNode()           {}
func (e *NothingLit) Pos() token.Position { return e.Position }
func (e *NothingLit) String() string      { return "nothing" }

// DurationLit is a duration literal such as "5 seconds".
type DurationLit struct {
	Position token.Position
	Value    time.Duration
}

func (e *DurationLit) exprNode()           {}
func (e *DurationLit) Pos() token.Position { return e.Position }
func (e *DurationLit) String() string      { return e.Value.String() }

// DateLit is a calendar date literal.
type DateLit struct {
	Position token.Position
	Year     int
	Month    time.Month
	Day      int
}

func (e *DateLit) exprNode()           {}
func (e *DateLit) Pos() token.Position { return e.Position }
func (e *DateLit) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", e.Year, int(e.Month), e.Day)
}

// TimeLit is a time-of-day literal, in nanoseconds since midnight.
type TimeLit struct {
	Position token.Position
	Nanos    int64
}

func (e *TimeLit) exprNode()           {}
func (e *TimeLit) Pos() token.Position { return e.Position }
func (e *TimeLit) String() string      { return fmt.Sprintf("<time %d>", e.Nanos) }

// SpanLit is a calendar span literal such as "2 months and 3 days".
type SpanLit struct {
	Position token.Position
	Months   int
	Days     int
}

func (e *SpanLit) exprNode()           {}
func (e *SpanLit) Pos() token.Position { return e.Position }
func (e *SpanLit) String() string      { return fmt.Sprintf("%d months %d days", e.Months, e.Days) }

// CounterLit constructs a fresh counter: "a new counter".
type CounterLit struct {
	Position token.Position
}

func (e *CounterLit) exprNode()           {}
func (e *CounterLit) Pos() token.Position { return e.Position }
func (e *CounterLit) String() string      { return "a new counter" }

// ListLit is a list literal.
type ListLit struct {
	Position token.Position
	Items    []Expr
}

func (e *ListLit) exprNode()           {}
func (e *ListLit) Pos() token.Position { return e.Position }
func (e *ListLit) String() string      { return "[" + joinExprs(e.Items) + "]" }

// TupleLit is a tuple literal.
type TupleLit struct {
	Position token.Position
	Items    []Expr
}

func (e *TupleLit) exprNode()           {}
func (e *TupleLit) Pos() token.Position { return e.Position }
func (e *TupleLit) String() string      { return "(" + joinExprs(e.Items) + ")" }

// SetLit is a set literal.
type SetLit struct {
	Position token.Position
	Items    []Expr
}

func (e *SetLit) exprNode()           {}
func (e *SetLit) Pos() token.Position { return e.Position }
func (e *SetLit) String() string      { return "{" + joinExprs(e.Items) + "}" }

// MapLit is a map literal with text keys.
type MapLit struct {
	Position token.Position
	Keys     []string
	Values   []Expr
}

func (e *MapLit) exprNode()           {}
func (e *MapLit) Pos() token.Position { return e.Position }
func (e *MapLit) String() string {
	var parts []string
	for i, k := range e.Keys {
		parts = append(parts, k+": "+e.Values[i].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// RangeLit is an inclusive integer range: "1 to 10".
type RangeLit struct {
	Position token.Position
	Low      Expr
	High     Expr
}

func (e *RangeLit) exprNode()           {}
func (e *RangeLit) Pos() token.Position { return e.Position }
func (e *RangeLit) String() string      { return fmt.Sprintf("%s to %s", e.Low, e.High) }

// Infix operators, spelled the way the compiler receives them.
const (
	OpAdd       = "+"
	OpSub       = "-"
	OpMul       = "*"
	OpDiv       = "/"
	OpMod       = "%"
	OpEq        = "=="
	OpNotEq     = "!="
	OpLess      = "<"
	OpLessEq    = "<="
	OpGreater   = ">"
	OpGreaterEq = ">="
	OpAnd       = "and"
	OpOr        = "or"
	OpContains  = "contains"
	OpUnion     = "union"
	OpIntersect = "intersect"
)

// Infix is a binary operation.
type Infix struct {
	Position token.Position
	Op       string
	Left     Expr
	Right    Expr
}

func (e *Infix) exprNode()           {}
func (e *Infix) Pos() token.Position { return e.Position }
func (e *Infix) String() string      { return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right) }

// Prefix is a unary operation: "-" or "not".
type Prefix struct {
	Position token.Position
	Op       string
	Right    Expr
}

func (e *Prefix) exprNode()           {}
func (e *Prefix) Pos() token.Position { return e.Position }
func (e *Prefix) String() string      { return fmt.Sprintf("(%s %s)", e.Op, e.Right) }

// Call invokes a function or builtin by name.
type Call struct {
	Position token.Position
	Name     string
	Args     []Expr
}

func (e *Call) exprNode()           {}
func (e *Call) Pos() token.Position { return e.Position }
func (e *Call) String() string      { return e.Name + "(" + joinExprs(e.Args) + ")" }

// Index reads a collection element at a 1-based position or text key.
type Index struct {
	Position token.Position
	Target   Expr
	Index    Expr
}

func (e *Index) exprNode()           {}
func (e *Index) Pos() token.Position { return e.Position }
func (e *Index) String() string      { return fmt.Sprintf("item %s of %s", e.Index, e.Target) }

// SliceOf reads a 1-based inclusive subrange.
type SliceOf struct {
	Position token.Position
	Target   Expr
	Low      Expr
	High     Expr
}

func (e *SliceOf) exprNode()           {}
func (e *SliceOf) Pos() token.Position { return e.Position }
func (e *SliceOf) String() string {
	return fmt.Sprintf("items %s through %s of %s", e.Low, e.High, e.Target)
}

// FieldAccess reads a record field: "the x of p".
type FieldAccess struct {
	Position token.Position
	Target   Expr
	Field    string
}

func (e *FieldAccess) exprNode()           {}
func (e *FieldAccess) Pos() token.Position { return e.Position }
func (e *FieldAccess) String() string      { return fmt.Sprintf("the %s of %s", e.Field, e.Target) }

// FieldInit is one field initializer in a record construction.
type FieldInit struct {
	Name  string
	Value Expr
}

// NewRecord constructs a record: "a new Point with x 1 and y 2". An
// empty Fields list takes every declared default.
type NewRecord struct {
	Position token.Position
	TypeName string
	Fields   []FieldInit
}

func (e *NewRecord) exprNode()           {}
func (e *NewRecord) Pos() token.Position { return e.Position }
func (e *NewRecord) String() string      { return "a new " + e.TypeName }

// NewVariant constructs a variant value by constructor name.
type NewVariant struct {
	Position token.Position
	TypeName string
	Ctor     string
	Args     []Expr
}

func (e *NewVariant) exprNode()           {}
func (e *NewVariant) Pos() token.Position { return e.Position }
func (e *NewVariant) String() string      { return e.Ctor + "(" + joinExprs(e.Args) + ")" }

// AsyncExpr marks an expression form that needs the asynchronous
// evaluator, mirroring AsyncStmt.
type AsyncExpr struct {
	Position token.Position
	Form     string
	Args     []Expr
}

func (e *AsyncExpr) exprNode()           {}
func (e *AsyncExpr) Pos() token.Position { return e.Position }
func (e *AsyncExpr) String() string      { return fmt.Sprintf("<%s>", e.Form) }

func joinExprs(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
