package cashflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian/ledger"
)

func TestMovementsDeduplicatesJournalEntries(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelLines,
		lineRec(10, 100, "2026-03-10", 1, "Main bank", 0, 100, "a"),
		lineRec(11, 100, "2026-03-10", 1, "Main bank", 0, 50, "a"),
		lineRec(12, 200, "2026-03-12", 1, "Main bank", 300, 0, "b"),
		// Outside the range.
		lineRec(13, 300, "2026-05-01", 1, "Main bank", 10, 0, "c"),
	)
	reader := NewMovementReader(ledger.NewReader(gw, 0), nil, nil)

	lines, entryIDs, err := reader.Movements(context.Background(), marchQuery(), []int64{1})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	// Newest first.
	assert.Equal(t, int64(12), lines[0].ID)
	assert.Equal(t, []int64{100, 200}, entryIDs)
}

func TestMovementsIncludeDraftOnRequest(t *testing.T) {
	gw := newFakeGateway()
	draft := lineRec(10, 100, "2026-03-10", 1, "Main bank", 0, 100, "a")
	draft["posting_state"] = ledger.PostingDraft
	gw.add(ledger.ModelLines, draft)
	reader := NewMovementReader(ledger.NewReader(gw, 0), nil, nil)

	q := marchQuery()
	lines, _, err := reader.Movements(context.Background(), q, []int64{1})
	require.NoError(t, err)
	assert.Empty(t, lines)

	q.IncludeDraft = true
	lines, _, err = reader.Movements(context.Background(), q, []int64{1})
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestBalanceAsOfFallsBackToClientSideSum(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelLines,
		lineRec(10, 100, "2026-01-10", 1, "Main bank", 700, 0, "a"),
		lineRec(11, 101, "2026-02-10", 1, "Main bank", 0, 200, "b"),
		lineRec(12, 102, "2026-04-01", 1, "Main bank", 999, 0, "late"),
	)
	gw.groupErrs = []error{errors.New("aggregation unsupported")}
	reader := NewMovementReader(ledger.NewReader(gw, 0), nil, nil)

	balance := reader.BalanceAsOf(context.Background(), mustDate("2026-03-31"), []int64{1})
	assert.False(t, balance.Degraded)
	assert.InDelta(t, 500, balance.Amount, 0.001)
}

func TestBalanceAsOfDegradesToZeroOnTotalFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.groupErrs = []error{errors.New("down")}
	gw.failSearch[ledger.ModelLines] = errors.New("down")
	reader := NewMovementReader(ledger.NewReader(gw, 0), nil, nil)

	balance := reader.BalanceAsOf(context.Background(), mustDate("2026-03-31"), []int64{1})
	assert.True(t, balance.Degraded)
	assert.Zero(t, balance.Amount)
}

func TestBalanceAsOfConfirmedZeroWithoutAccounts(t *testing.T) {
	reader := NewMovementReader(ledger.NewReader(newFakeGateway(), 0), nil, nil)
	balance := reader.BalanceAsOf(context.Background(), mustDate("2026-03-31"), nil)
	assert.False(t, balance.Degraded)
	assert.Zero(t, balance.Amount)
}
