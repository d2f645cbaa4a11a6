// Package ledgerpg implements the ledger gateway contract on PostgreSQL.
package ledgerpg

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/platform/db"
)

// Gateway executes ledger reads against a PostgreSQL schema. Every model
// returns its canonical field set; the fields argument of the contract is
// accepted for compatibility and ignored.
type Gateway struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// Connect builds a pool from a DSN and wraps it.
func Connect(ctx context.Context, dsn string) (*Gateway, error) {
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return New(pool), nil
}

// Close releases the underlying pool.
func (g *Gateway) Close() {
	if g != nil && g.pool != nil {
		g.pool.Close()
	}
}

// SearchRead implements ledger.Gateway.
func (g *Gateway) SearchRead(ctx context.Context, model string, filter ledger.Expr, _ []string, opts ledger.SearchOpts) ([]ledger.Record, error) {
	where, args, err := whereClause(model, filter, 0)
	if err != nil {
		return nil, err
	}
	order, err := orderClause(model, opts.Order)
	if err != nil {
		return nil, err
	}
	query, scan, err := selectFor(model)
	if err != nil {
		return nil, err
	}
	query += " WHERE " + where + order
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledgerpg: search %s: %w", model, err)
	}
	defer rows.Close()
	var out []ledger.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("ledgerpg: scan %s: %w", model, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerpg: search %s: %w", model, err)
	}
	return out, nil
}

// ReadGroup implements ledger.Gateway.
func (g *Gateway) ReadGroup(ctx context.Context, model string, filter ledger.Expr, sums, groupBy []string, limit int) ([]ledger.GroupRow, error) {
	table, ok := tableFor[model]
	if !ok {
		return nil, fmt.Errorf("ledgerpg: unknown model %q", model)
	}
	where, args, err := whereClause(model, filter, 0)
	if err != nil {
		return nil, err
	}
	groupExprs := make([]string, 0, len(groupBy))
	for _, key := range groupBy {
		expr, err := groupExpr(model, key)
		if err != nil {
			return nil, err
		}
		groupExprs = append(groupExprs, expr)
	}
	sumExprs := make([]string, 0, len(sums))
	cols := columnFor[model]
	for _, field := range sums {
		col, ok := cols[field]
		if !ok {
			return nil, fmt.Errorf("ledgerpg: field %q not summable", field)
		}
		sumExprs = append(sumExprs, "COALESCE(SUM("+col+"), 0)")
	}
	selectList := append(append([]string{}, groupExprs...), sumExprs...)
	selectList = append(selectList, "COUNT(*)")
	query := "SELECT " + strings.Join(selectList, ", ") + " FROM " + table + " " + tableAlias(model) + " WHERE " + where
	if len(groupExprs) > 0 {
		query += " GROUP BY " + strings.Join(groupExprs, ", ") + " ORDER BY " + strings.Join(groupExprs, ", ")
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledgerpg: read group %s: %w", model, err)
	}
	defer rows.Close()
	var out []ledger.GroupRow
	for rows.Next() {
		dest := make([]any, 0, len(selectList))
		keyVals := make([]any, len(groupBy))
		for i := range groupBy {
			keyVals[i] = new(any)
			dest = append(dest, keyVals[i])
		}
		sumVals := make([]pgtype.Float8, len(sums))
		for i := range sums {
			dest = append(dest, &sumVals[i])
		}
		var count int64
		dest = append(dest, &count)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("ledgerpg: scan group %s: %w", model, err)
		}
		row := ledger.GroupRow{
			Keys:  make(map[string]any, len(groupBy)),
			Sums:  make(map[string]float64, len(sums)),
			Count: int(count),
		}
		for i, key := range groupBy {
			row.Keys[key] = *(keyVals[i].(*any))
		}
		for i, field := range sums {
			row.Sums[field] = sumVals[i].Float64
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledgerpg: read group %s: %w", model, err)
	}
	return out, nil
}

// Read implements ledger.Gateway.
func (g *Gateway) Read(ctx context.Context, model string, ids []int64, fields []string) ([]ledger.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return g.SearchRead(ctx, model, ledger.In("id", ids), fields, ledger.SearchOpts{})
}

func tableAlias(model string) string {
	switch model {
	case ledger.ModelAccounts:
		return "a"
	case ledger.ModelLines:
		return "l"
	case ledger.ModelDocuments:
		return "d"
	case ledger.ModelDocumentLines:
		return "dl"
	}
	return "t"
}

func orderClause(model, order string) (string, error) {
	if order == "" {
		return "", nil
	}
	cols := columnFor[model]
	parts := strings.Split(order, ",")
	rendered := make([]string, 0, len(parts))
	for _, part := range parts {
		tokens := strings.Fields(strings.TrimSpace(part))
		if len(tokens) == 0 || len(tokens) > 2 {
			return "", fmt.Errorf("ledgerpg: malformed order %q", order)
		}
		col, ok := cols[tokens[0]]
		if !ok {
			return "", fmt.Errorf("ledgerpg: field %q not orderable", tokens[0])
		}
		dir := ""
		if len(tokens) == 2 {
			switch strings.ToLower(tokens[1]) {
			case "asc":
				dir = " ASC"
			case "desc":
				dir = " DESC"
			default:
				return "", fmt.Errorf("ledgerpg: malformed order %q", order)
			}
		}
		rendered = append(rendered, col+dir)
	}
	return " ORDER BY " + strings.Join(rendered, ", "), nil
}

type scanFunc func(rows pgx.Rows) (ledger.Record, error)

func selectFor(model string) (string, scanFunc, error) {
	switch model {
	case ledger.ModelAccounts:
		return "SELECT a.id, a.code, a.name FROM gl_accounts a", scanAccount, nil
	case ledger.ModelLines:
		return "SELECT l.id, l.journal_entry_id, l.date, l.account_id, a.name, l.debit, l.credit, l.balance, l.partner_id, l.label, l.posting_state" +
			" FROM gl_lines l JOIN gl_accounts a ON a.id = l.account_id", scanLine, nil
	case ledger.ModelDocuments:
		return "SELECT d.id, d.ref, d.kind, d.partner_id, p.name, d.issue_date, d.due_date, d.agreed_payment_date, d.total_amount, d.residual_amount, d.state, d.payment_state" +
			" FROM documents d LEFT JOIN partners p ON p.id = d.partner_id", scanDocument, nil
	case ledger.ModelDocumentLines:
		return "SELECT dl.document_id, dl.account_code, dl.account_name, dl.subtotal, dl.label, dl.display_kind FROM document_lines dl", scanDocumentLine, nil
	default:
		return "", nil, fmt.Errorf("ledgerpg: unknown model %q", model)
	}
}

func scanAccount(rows pgx.Rows) (ledger.Record, error) {
	var (
		id         int64
		code, name string
	)
	if err := rows.Scan(&id, &code, &name); err != nil {
		return nil, err
	}
	return ledger.Record{"id": id, "code": code, "name": name}, nil
}

func scanLine(rows pgx.Rows) (ledger.Record, error) {
	var (
		id, entryID            int64
		date                   pgtype.Date
		accountID              int64
		accountName            string
		debit, credit, balance pgtype.Float8
		partnerID              pgtype.Int8
		label                  pgtype.Text
		postingState           string
	)
	if err := rows.Scan(&id, &entryID, &date, &accountID, &accountName, &debit, &credit, &balance, &partnerID, &label, &postingState); err != nil {
		return nil, err
	}
	rec := ledger.Record{
		"id":               id,
		"journal_entry_id": entryID,
		"date":             date.Time,
		"account_id":       []any{accountID, accountName},
		"debit":            debit.Float64,
		"credit":           credit.Float64,
		"balance":          balance.Float64,
		"label":            label.String,
		"posting_state":    postingState,
	}
	if partnerID.Valid {
		rec["partner_id"] = partnerID.Int64
	}
	return rec, nil
}

func scanDocument(rows pgx.Rows) (ledger.Record, error) {
	var (
		id                 int64
		ref, kind          string
		partnerID          pgtype.Int8
		partnerName        pgtype.Text
		issue, due, agreed pgtype.Date
		total, residual    pgtype.Float8
		state              string
		paymentState       pgtype.Text
	)
	if err := rows.Scan(&id, &ref, &kind, &partnerID, &partnerName, &issue, &due, &agreed, &total, &residual, &state, &paymentState); err != nil {
		return nil, err
	}
	rec := ledger.Record{
		"id":              id,
		"ref":             ref,
		"kind":            kind,
		"total_amount":    total.Float64,
		"residual_amount": residual.Float64,
		"state":           state,
		"payment_state":   paymentState.String,
	}
	if partnerID.Valid {
		rec["partner_id"] = []any{partnerID.Int64, partnerName.String}
	}
	if issue.Valid {
		rec["issue_date"] = issue.Time
	}
	if due.Valid {
		rec["due_date"] = due.Time
	}
	if agreed.Valid {
		rec["agreed_payment_date"] = agreed.Time
	}
	return rec, nil
}

func scanDocumentLine(rows pgx.Rows) (ledger.Record, error) {
	var (
		docID                    int64
		accountCode, accountName string
		subtotal                 pgtype.Float8
		label                    pgtype.Text
		displayKind              string
	)
	if err := rows.Scan(&docID, &accountCode, &accountName, &subtotal, &label, &displayKind); err != nil {
		return nil, err
	}
	return ledger.Record{
		"document_id":  docID,
		"account_code": accountCode,
		"account_name": accountName,
		"subtotal":     subtotal.Float64,
		"label":        label.String,
		"display_kind": displayKind,
	}, nil
}
