package ledgerpg

import (
	"fmt"
	"strings"

	"github.com/meridian-fin/meridian/ledger"
)

// tableFor maps gateway models to tables. Line queries join the account
// table so relational fields come back with a display label attached.
var tableFor = map[string]string{
	ledger.ModelAccounts:      "gl_accounts",
	ledger.ModelLines:         "gl_lines",
	ledger.ModelDocuments:     "documents",
	ledger.ModelDocumentLines: "document_lines",
}

// columnFor whitelists filter and group fields per model. Anything not
// listed here is rejected before SQL is built.
var columnFor = map[string]map[string]string{
	ledger.ModelAccounts: {
		"id":   "a.id",
		"code": "a.code",
		"name": "a.name",
	},
	ledger.ModelLines: {
		"id":               "l.id",
		"journal_entry_id": "l.journal_entry_id",
		"date":             "l.date",
		"account_id":       "l.account_id",
		"debit":            "l.debit",
		"credit":           "l.credit",
		"balance":          "l.balance",
		"partner_id":       "l.partner_id",
		"label":            "l.label",
		"posting_state":    "l.posting_state",
		"company_id":       "l.company_id",
	},
	ledger.ModelDocuments: {
		"id":                  "d.id",
		"ref":                 "d.ref",
		"kind":                "d.kind",
		"partner_id":          "d.partner_id",
		"issue_date":          "d.issue_date",
		"due_date":            "d.due_date",
		"agreed_payment_date": "d.agreed_payment_date",
		"total_amount":        "d.total_amount",
		"residual_amount":     "d.residual_amount",
		"state":               "d.state",
		"payment_state":       "d.payment_state",
		"company_id":          "d.company_id",
	},
	ledger.ModelDocumentLines: {
		"id":           "dl.id",
		"document_id":  "dl.document_id",
		"account_code": "dl.account_code",
		"account_name": "dl.account_name",
		"subtotal":     "dl.subtotal",
		"label":        "dl.label",
		"display_kind": "dl.display_kind",
	},
}

// whereClause renders a filter expression into a parameterized SQL
// predicate. args numbering starts after the provided offset.
func whereClause(model string, filter ledger.Expr, argOffset int) (string, []any, error) {
	if filter == nil {
		return "TRUE", nil, nil
	}
	cols, ok := columnFor[model]
	if !ok {
		return "", nil, fmt.Errorf("ledgerpg: unknown model %q", model)
	}
	b := &sqlBuilder{cols: cols, offset: argOffset}
	clause, err := b.render(filter)
	if err != nil {
		return "", nil, err
	}
	return clause, b.args, nil
}

type sqlBuilder struct {
	cols   map[string]string
	args   []any
	offset int
}

func (b *sqlBuilder) placeholder(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", b.offset+len(b.args))
}

func (b *sqlBuilder) render(expr ledger.Expr) (string, error) {
	switch t := expr.(type) {
	case ledger.Cond:
		return b.renderCond(t)
	case ledger.AndExpr:
		return b.renderJoin([]ledger.Expr(t), " AND ", "TRUE")
	case ledger.OrExpr:
		return b.renderJoin([]ledger.Expr(t), " OR ", "FALSE")
	default:
		return "", fmt.Errorf("ledgerpg: unsupported expression %T", expr)
	}
}

func (b *sqlBuilder) renderJoin(exprs []ledger.Expr, sep, empty string) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		clause, err := b.render(e)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (b *sqlBuilder) renderCond(c ledger.Cond) (string, error) {
	col, ok := b.cols[c.Field]
	if !ok {
		return "", fmt.Errorf("ledgerpg: field %q not filterable", c.Field)
	}
	switch c.Op {
	case ledger.OpEq:
		return col + " = " + b.placeholder(c.Value), nil
	case ledger.OpNeq:
		return col + " <> " + b.placeholder(c.Value), nil
	case ledger.OpGte:
		return col + " >= " + b.placeholder(c.Value), nil
	case ledger.OpLte:
		return col + " <= " + b.placeholder(c.Value), nil
	case ledger.OpIn:
		return col + " = ANY(" + b.placeholder(inArray(c.Value)) + ")", nil
	case ledger.OpNotIn:
		return "NOT (" + col + " = ANY(" + b.placeholder(inArray(c.Value)) + "))", nil
	case ledger.OpPrefix:
		prefix, _ := c.Value.(string)
		return col + " LIKE " + b.placeholder(escapeLike(prefix)+"%"), nil
	default:
		return "", fmt.Errorf("ledgerpg: unsupported operator %q", c.Op)
	}
}

func inArray(v any) any {
	vals, ok := v.([]any)
	if !ok {
		return v
	}
	// pgx wants homogeneous slices for ANY(); pick by first element.
	if len(vals) == 0 {
		return []int64{}
	}
	switch vals[0].(type) {
	case string:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, ledger.AsString(item))
		}
		return out
	default:
		out := make([]int64, 0, len(vals))
		for _, item := range vals {
			out = append(out, ledger.AsInt64(item))
		}
		return out
	}
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// groupExpr maps a group-by key to its SQL expression. Period keys use
// date_trunc so bucketing happens source-side.
func groupExpr(model, key string) (string, error) {
	cols := columnFor[model]
	switch key {
	case "date:month":
		col, ok := cols["date"]
		if !ok {
			return "", fmt.Errorf("ledgerpg: model %q has no date column", model)
		}
		return "date_trunc('month', " + col + ")", nil
	case "date:week":
		col, ok := cols["date"]
		if !ok {
			return "", fmt.Errorf("ledgerpg: model %q has no date column", model)
		}
		return "date_trunc('week', " + col + ")", nil
	default:
		col, ok := cols[key]
		if !ok {
			return "", fmt.Errorf("ledgerpg: field %q not groupable", key)
		}
		return col, nil
	}
}
