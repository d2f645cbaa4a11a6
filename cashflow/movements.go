package cashflow

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/observability"
)

// MovementReader fetches cash-touching postings and the journal entries
// they belong to.
type MovementReader struct {
	reader  *ledger.Reader
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewMovementReader builds a movement reader.
func NewMovementReader(reader *ledger.Reader, logger *slog.Logger, metrics *observability.Metrics) *MovementReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &MovementReader{reader: reader, logger: logger, metrics: metrics}
}

// BalanceAsOf sums posted balances on the cash accounts up to and
// including asOf. Never errors: a failed push-down sum falls back to a raw
// fetch with a client-side sum, and a total failure returns a degraded
// zero.
func (m *MovementReader) BalanceAsOf(ctx context.Context, asOf time.Time, cashAccountIDs []int64) Balance {
	if len(cashAccountIDs) == 0 {
		return Balance{}
	}
	filter := ledger.And(
		ledger.In("account_id", cashAccountIDs),
		ledger.Eq("posting_state", ledger.PostingPosted),
		ledger.Lte("date", asOf),
	)
	total, err := m.reader.SumLineBalance(ctx, filter)
	m.metrics.GatewayCall("balance_sum", err)
	if err == nil {
		return Balance{Amount: total}
	}
	m.logger.Warn("balance aggregation failed, summing client-side", "as_of", asOf, "error", err)

	lines, err := m.reader.SearchLines(ctx, filter, ledger.SearchOpts{})
	m.metrics.GatewayCall("balance_lines", err)
	if err != nil {
		m.logger.Error("balance fallback failed", "as_of", asOf, "error", err)
		m.metrics.DegradedRead("balance")
		return Balance{Degraded: true}
	}
	total = 0
	for _, line := range lines {
		total += line.Balance
	}
	return Balance{Amount: total}
}

// Movements fetches cash-account lines in the query range, newest first,
// and returns them with the deduplicated journal-entry ids they reference.
func (m *MovementReader) Movements(ctx context.Context, q Query, cashAccountIDs []int64) ([]ledger.Line, []int64, error) {
	if len(cashAccountIDs) == 0 {
		return nil, nil, nil
	}
	states := []string{ledger.PostingPosted}
	if q.IncludeDraft {
		states = append(states, ledger.PostingDraft)
	}
	conds := []ledger.Expr{
		ledger.In("account_id", cashAccountIDs),
		ledger.In("posting_state", states),
		ledger.Gte("date", q.DateFrom),
		ledger.Lte("date", q.DateTo),
	}
	if q.CompanyID != 0 {
		conds = append(conds, ledger.Eq("company_id", q.CompanyID))
	}
	lines, err := m.reader.SearchLines(ctx, ledger.And(conds...), ledger.SearchOpts{Order: "date desc, id desc"})
	m.metrics.GatewayCall("movements", err)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[int64]struct{}, len(lines))
	entryIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.JournalEntryID]; ok {
			continue
		}
		seen[line.JournalEntryID] = struct{}{}
		entryIDs = append(entryIDs, line.JournalEntryID)
	}
	sort.Slice(entryIDs, func(i, j int) bool { return entryIDs[i] < entryIDs[j] })
	return lines, entryIDs, nil
}
