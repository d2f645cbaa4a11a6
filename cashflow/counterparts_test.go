package cashflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian/ledger"
)

func TestGroupedAggregatesNonCashSide(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelLines,
		lineRec(10, 100, "2026-03-10", 1, "Main bank", 0, 500000, "x"),
		lineRec(11, 100, "2026-03-10", 2, "External services", 500000, 0, "x"),
	)
	agg := NewCounterpartAggregator(ledger.NewReader(gw, 0), 0, nil, nil)

	res := agg.Grouped(context.Background(), []int64{100}, []int64{1}, GranularityNone)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, int64(2), res.Groups[0].Account.ID)
	assert.InDelta(t, 500000, res.Groups[0].BalanceSum, 0.001)
	assert.Equal(t, 1, res.ChunksTotal)
	assert.Zero(t, res.ChunksFailed)
}

func TestGroupedToleratesOneFailedChunkOfThree(t *testing.T) {
	gw := newFakeGateway()
	for i, entry := range []int64{100, 200, 300} {
		id := int64(10 + 2*i)
		date := "2026-03-10"
		gw.add(ledger.ModelLines,
			lineRec(id, entry, date, 1, "Main bank", 0, 100, "x"),
			lineRec(id+1, entry, date, 2, "External services", 100, 0, "x"),
		)
	}
	gw.groupErrs = []error{nil, errors.New("boom"), nil}
	agg := NewCounterpartAggregator(ledger.NewReader(gw, 0), 1, nil, nil)

	res := agg.Grouped(context.Background(), []int64{100, 200, 300}, []int64{1}, GranularityNone)
	assert.Equal(t, 3, res.ChunksTotal)
	assert.Equal(t, 1, res.ChunksFailed)
	assert.True(t, res.Degraded())
	var total float64
	for _, g := range res.Groups {
		total += g.BalanceSum
	}
	assert.InDelta(t, 200, total, 0.001)
}

func TestLabeledGroupsByLabel(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelLines,
		lineRec(10, 100, "2026-03-10", 3, "Sundry", 100, 0, "rent"),
		lineRec(11, 101, "2026-03-11", 3, "Sundry", 200, 0, "rent"),
		lineRec(12, 102, "2026-03-12", 3, "Sundry", 50, 0, "insurance"),
	)
	agg := NewCounterpartAggregator(ledger.NewReader(gw, 0), 0, nil, nil)

	res := agg.Labeled(context.Background(), []int64{100, 101, 102}, []int64{3}, GranularityNone)
	require.Len(t, res.Groups, 2)
	byLabel := make(map[string]float64)
	for _, g := range res.Groups {
		byLabel[g.Label] = g.BalanceSum
	}
	assert.InDelta(t, 300, byLabel["rent"], 0.001)
	assert.InDelta(t, 50, byLabel["insurance"], 0.001)
}

func TestLabeledWithoutAccountsShortCircuits(t *testing.T) {
	gw := newFakeGateway()
	agg := NewCounterpartAggregator(ledger.NewReader(gw, 0), 0, nil, nil)
	res := agg.Labeled(context.Background(), []int64{100}, nil, GranularityNone)
	assert.Empty(t, res.Groups)
	assert.Zero(t, res.ChunksTotal)
	assert.Zero(t, gw.groupCalls)
}

func TestGroupedWeeklyPeriodKeys(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelLines,
		lineRec(10, 100, "2026-01-05", 1, "Main bank", 0, 100, "x"),
		lineRec(11, 100, "2026-01-05", 2, "External services", 100, 0, "x"),
	)
	agg := NewCounterpartAggregator(ledger.NewReader(gw, 0), 0, nil, nil)

	res := agg.Grouped(context.Background(), []int64{100}, []int64{1}, GranularityWeekly)
	require.Len(t, res.Groups, 1)
	assert.Equal(t, "2026-W02", res.Groups[0].PeriodKey)
}
