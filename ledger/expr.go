package ledger

// Op enumerates the comparison operators the gateway supports.
type Op string

// Supported operators.
const (
	OpEq     Op = "="
	OpNeq    Op = "!="
	OpIn     Op = "in"
	OpNotIn  Op = "not in"
	OpGte    Op = ">="
	OpLte    Op = "<="
	OpPrefix Op = "prefix"
)

// Expr is a filter expression accepted by the gateway. Composition is
// always explicit: And and Or never nest implicitly.
type Expr interface {
	isExpr()
}

// Cond is a single field comparison.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// AndExpr matches when every child matches.
type AndExpr []Expr

// OrExpr matches when at least one child matches.
type OrExpr []Expr

func (Cond) isExpr()    {}
func (AndExpr) isExpr() {}
func (OrExpr) isExpr()  {}

// Eq builds an equality condition.
func Eq(field string, value any) Expr { return Cond{Field: field, Op: OpEq, Value: value} }

// Neq builds an inequality condition.
func Neq(field string, value any) Expr { return Cond{Field: field, Op: OpNeq, Value: value} }

// In builds a set-membership condition.
func In[T any](field string, values []T) Expr {
	anys := make([]any, len(values))
	for i, v := range values {
		anys[i] = v
	}
	return Cond{Field: field, Op: OpIn, Value: anys}
}

// NotIn builds a negated set-membership condition.
func NotIn[T any](field string, values []T) Expr {
	anys := make([]any, len(values))
	for i, v := range values {
		anys[i] = v
	}
	return Cond{Field: field, Op: OpNotIn, Value: anys}
}

// Gte builds a greater-or-equal condition.
func Gte(field string, value any) Expr { return Cond{Field: field, Op: OpGte, Value: value} }

// Lte builds a less-or-equal condition.
func Lte(field string, value any) Expr { return Cond{Field: field, Op: OpLte, Value: value} }

// Prefix builds a string prefix condition.
func Prefix(field, prefix string) Expr { return Cond{Field: field, Op: OpPrefix, Value: prefix} }

// And combines expressions conjunctively. Nil children are dropped.
func And(exprs ...Expr) Expr {
	return AndExpr(compact(exprs))
}

// Or combines expressions disjunctively. Nil children are dropped.
func Or(exprs ...Expr) Expr {
	return OrExpr(compact(exprs))
}

func compact(exprs []Expr) []Expr {
	out := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}
