package cashflow

import (
	"context"
	"log/slog"

	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/observability"
)

// DefaultChunkSize matches the source's per-call result limit.
const DefaultChunkSize = 5000

// CounterpartAggregator aggregates the non-cash side of journal entries.
// Grouped reads run chunk by chunk; a failed chunk is logged and skipped so
// the remaining chunks still contribute.
type CounterpartAggregator struct {
	reader    *ledger.Reader
	chunkSize int
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewCounterpartAggregator builds an aggregator. chunkSize values below 1
// fall back to DefaultChunkSize.
func NewCounterpartAggregator(reader *ledger.Reader, chunkSize int, logger *slog.Logger, metrics *observability.Metrics) *CounterpartAggregator {
	if chunkSize < 1 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CounterpartAggregator{reader: reader, chunkSize: chunkSize, logger: logger, metrics: metrics}
}

// Grouped sums counterpart balances by account, optionally bucketed by
// period, for the journal entries referenced by the cash movements.
func (a *CounterpartAggregator) Grouped(ctx context.Context, entryIDs, cashAccountIDs []int64, g Granularity) CounterpartGroups {
	return a.aggregate(ctx, entryIDs, g, false, func(chunk []int64) ledger.Expr {
		return ledger.And(
			ledger.In("journal_entry_id", chunk),
			ledger.NotIn("account_id", cashAccountIDs),
		)
	})
}

// Labeled sums counterpart balances by account and free-text label, for
// accounts whose category attribution depends on manually entered tags.
func (a *CounterpartAggregator) Labeled(ctx context.Context, entryIDs, accountIDs []int64, g Granularity) CounterpartGroups {
	if len(accountIDs) == 0 {
		return CounterpartGroups{}
	}
	return a.aggregate(ctx, entryIDs, g, true, func(chunk []int64) ledger.Expr {
		return ledger.And(
			ledger.In("journal_entry_id", chunk),
			ledger.In("account_id", accountIDs),
		)
	})
}

func (a *CounterpartAggregator) aggregate(ctx context.Context, entryIDs []int64, g Granularity, byLabel bool, filterFor func([]int64) ledger.Expr) CounterpartGroups {
	var out CounterpartGroups
	if len(entryIDs) == 0 {
		return out
	}
	groupBy := []string{"account_id"}
	if byLabel {
		groupBy = append(groupBy, "label")
	}
	if key := periodGroupKey(g); key != "" {
		groupBy = append(groupBy, key)
	}
	for start := 0; start < len(entryIDs); start += a.chunkSize {
		end := start + a.chunkSize
		if end > len(entryIDs) {
			end = len(entryIDs)
		}
		chunk := entryIDs[start:end]
		out.ChunksTotal++
		rows, err := a.reader.GroupLines(ctx, filterFor(chunk), []string{"balance"}, groupBy, 0)
		a.metrics.GatewayCall("counterpart_group", err)
		if err != nil {
			a.logger.Warn("counterpart chunk failed, skipping",
				"chunk_start", start, "chunk_len", len(chunk), "error", err)
			a.metrics.ChunkSkipped()
			out.ChunksFailed++
			continue
		}
		for _, row := range rows {
			group := CounterpartGroup{
				Account:    ledger.AsReference(row.Keys["account_id"]),
				PeriodKey:  periodKeyFromGroup(g, row),
				BalanceSum: row.Sums["balance"],
			}
			if byLabel {
				group.Label = ledger.AsString(row.Keys["label"])
			}
			out.Groups = append(out.Groups, group)
		}
	}
	return out
}
