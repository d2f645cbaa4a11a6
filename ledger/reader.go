package ledger

import (
	"context"
	"fmt"
	"time"
)

var accountFields = []string{"id", "code", "name"}

var lineFields = []string{
	"id", "journal_entry_id", "date", "account_id", "debit", "credit",
	"balance", "partner_id", "label", "posting_state",
}

var documentFields = []string{
	"id", "ref", "kind", "partner_id", "issue_date", "due_date",
	"agreed_payment_date", "total_amount", "residual_amount", "state",
	"payment_state",
}

var documentLineFields = []string{
	"document_id", "account_code", "account_name", "subtotal", "label",
	"display_kind",
}

// Reader is the typed facade over a Gateway. Every call gets its own
// timeout so one stalled read cannot hold a statement computation forever.
type Reader struct {
	gw          Gateway
	callTimeout time.Duration
}

// NewReader wraps a gateway. A zero callTimeout disables the per-call cap;
// the caller's context deadline still applies.
func NewReader(gw Gateway, callTimeout time.Duration) *Reader {
	return &Reader{gw: gw, callTimeout: callTimeout}
}

func (r *Reader) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.callTimeout)
}

// SearchAccounts returns accounts matching the filter.
func (r *Reader) SearchAccounts(ctx context.Context, filter Expr) ([]Account, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	recs, err := r.gw.SearchRead(ctx, ModelAccounts, filter, accountFields, SearchOpts{})
	if err != nil {
		return nil, fmt.Errorf("ledger: search accounts: %w", err)
	}
	accounts := make([]Account, len(recs))
	for i, rec := range recs {
		accounts[i] = AccountFromRecord(rec)
	}
	return accounts, nil
}

// ReadAccounts resolves account metadata by id.
func (r *Reader) ReadAccounts(ctx context.Context, ids []int64) ([]Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	recs, err := r.gw.Read(ctx, ModelAccounts, ids, accountFields)
	if err != nil {
		return nil, fmt.Errorf("ledger: read accounts: %w", err)
	}
	accounts := make([]Account, len(recs))
	for i, rec := range recs {
		accounts[i] = AccountFromRecord(rec)
	}
	return accounts, nil
}

// SumLineBalance runs a push-down sum of balance over matching lines.
func (r *Reader) SumLineBalance(ctx context.Context, filter Expr) (float64, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	rows, err := r.gw.ReadGroup(ctx, ModelLines, filter, []string{"balance"}, nil, 0)
	if err != nil {
		return 0, fmt.Errorf("ledger: sum line balance: %w", err)
	}
	var total float64
	for _, row := range rows {
		total += row.Sums["balance"]
	}
	return total, nil
}

// SearchLines returns ledger lines matching the filter.
func (r *Reader) SearchLines(ctx context.Context, filter Expr, opts SearchOpts) ([]Line, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	recs, err := r.gw.SearchRead(ctx, ModelLines, filter, lineFields, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: search lines: %w", err)
	}
	lines := make([]Line, len(recs))
	for i, rec := range recs {
		lines[i] = LineFromRecord(rec)
	}
	return lines, nil
}

// GroupLines runs a push-down group-by over ledger lines.
func (r *Reader) GroupLines(ctx context.Context, filter Expr, sums, groupBy []string, limit int) ([]GroupRow, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	rows, err := r.gw.ReadGroup(ctx, ModelLines, filter, sums, groupBy, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: group lines: %w", err)
	}
	return rows, nil
}

// SearchDocuments returns documents matching the filter.
func (r *Reader) SearchDocuments(ctx context.Context, filter Expr, opts SearchOpts) ([]Document, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	recs, err := r.gw.SearchRead(ctx, ModelDocuments, filter, documentFields, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: search documents: %w", err)
	}
	docs := make([]Document, len(recs))
	for i, rec := range recs {
		docs[i] = DocumentFromRecord(rec)
	}
	return docs, nil
}

// SearchDocumentLines returns document lines matching the filter.
func (r *Reader) SearchDocumentLines(ctx context.Context, filter Expr) ([]DocumentLine, error) {
	ctx, cancel := r.callCtx(ctx)
	defer cancel()
	recs, err := r.gw.SearchRead(ctx, ModelDocumentLines, filter, documentLineFields, SearchOpts{})
	if err != nil {
		return nil, fmt.Errorf("ledger: search document lines: %w", err)
	}
	lines := make([]DocumentLine, len(recs))
	for i, rec := range recs {
		lines[i] = DocumentLineFromRecord(rec)
	}
	return lines, nil
}
