package cashflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridian-fin/meridian/observability"
)

// LabelRouting configures accounts whose category attribution depends on
// the free-text label of each line rather than the account code alone.
type LabelRouting struct {
	// AccountCodes lists the label-routed accounts.
	AccountCodes []string
	// Concepts maps a line label to a concept code.
	Concepts map[string]string
}

func (r LabelRouting) routed(code string) bool {
	for _, c := range r.AccountCodes {
		if c == code {
			return true
		}
	}
	return false
}

// StatementBuilder assembles the actual-movements view and its
// reconciliation block, using the same taxonomy and classification
// contract as the projection so both views are summable.
type StatementBuilder struct {
	resolver     *AccountResolver
	movements    *MovementReader
	counterparts *CounterpartAggregator
	lookup       *AccountInfoLookup
	classifier   Classifier
	taxonomy     Taxonomy
	routing      LabelRouting
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// NewStatementBuilder wires the actual-view pipeline.
func NewStatementBuilder(resolver *AccountResolver, movements *MovementReader, counterparts *CounterpartAggregator, lookup *AccountInfoLookup, classifier Classifier, taxonomy Taxonomy, routing LabelRouting, logger *slog.Logger, metrics *observability.Metrics) *StatementBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatementBuilder{
		resolver:     resolver,
		movements:    movements,
		counterparts: counterparts,
		lookup:       lookup,
		classifier:   classifier,
		taxonomy:     taxonomy,
		routing:      routing,
		logger:       logger,
		metrics:      metrics,
	}
}

// Build computes the actual statement and reconciliation for the query.
func (b *StatementBuilder) Build(ctx context.Context, q Query) (Statement, Reconciliation, error) {
	cashIDs, resolveDegraded := b.resolver.Resolve(ctx)
	if len(cashIDs) == 0 {
		stmt := newStatementAcc().build(b.taxonomy)
		if resolveDegraded {
			stmt.Warnings = append(stmt.Warnings, Warning{
				Type:    WarnDegradedRead,
				Message: "cash account resolution failed; statement reflects no movements",
			})
		} else {
			stmt.Warnings = append(stmt.Warnings, Warning{
				Type:    WarnNoCashAccounts,
				Message: "no accounts matched the cash account rules",
			})
		}
		stmt.Meta.Degraded = resolveDegraded
		return stmt, Reconciliation{Degraded: resolveDegraded}, nil
	}

	_, entryIDs, err := b.movements.Movements(ctx, q, cashIDs)
	if err != nil {
		return Statement{}, Reconciliation{}, fmt.Errorf("cashflow: fetch movements: %w", err)
	}

	grouped := b.counterparts.Grouped(ctx, entryIDs, cashIDs, q.Granularity)

	accountIDs := make([]int64, 0, len(grouped.Groups))
	seen := make(map[int64]struct{}, len(grouped.Groups))
	for _, g := range grouped.Groups {
		if _, ok := seen[g.Account.ID]; ok {
			continue
		}
		seen[g.Account.ID] = struct{}{}
		accountIDs = append(accountIDs, g.Account.ID)
	}
	infos, err := b.lookup.BatchInfo(ctx, accountIDs)
	if err != nil {
		return Statement{}, Reconciliation{}, fmt.Errorf("cashflow: account lookup: %w", err)
	}

	var labelRoutedIDs []int64
	for _, id := range accountIDs {
		if b.routing.routed(infos[id].Code) {
			labelRoutedIDs = append(labelRoutedIDs, id)
		}
	}
	labeled := CounterpartGroups{}
	if len(labelRoutedIDs) > 0 {
		labeled = b.counterparts.Labeled(ctx, entryIDs, labelRoutedIDs, q.Granularity)
	}
	labelRouted := make(map[int64]struct{}, len(labelRoutedIDs))
	for _, id := range labelRoutedIDs {
		labelRouted[id] = struct{}{}
	}

	acc := newStatementAcc()
	for _, g := range grouped.Groups {
		if _, ok := labelRouted[g.Account.ID]; ok {
			continue
		}
		info := infos[g.Account.ID]
		// A counterpart debit means cash left the company.
		amount := -g.BalanceSum
		acc.add(b.conceptByCode(info.Code), AllocationRecord{
			Amount:  amount,
			Account: info,
		}, g.PeriodKey)
	}
	for _, g := range labeled.Groups {
		info := infos[g.Account.ID]
		amount := -g.BalanceSum
		acc.add(b.conceptByLabel(g.Label, info.Code), AllocationRecord{
			Amount:      amount,
			Account:     info,
			SourceLabel: g.Label,
			HasLabel:    g.Label != "",
		}, g.PeriodKey)
	}

	netChange := acc.netTotal()
	opening := b.movements.BalanceAsOf(ctx, q.DateFrom.AddDate(0, 0, -1), cashIDs)
	closing := b.movements.BalanceAsOf(ctx, q.DateTo, cashIDs)

	stmt := acc.build(b.taxonomy)
	degraded := opening.Degraded || closing.Degraded || grouped.Degraded() || labeled.Degraded()
	if degraded {
		stmt.Warnings = append(stmt.Warnings, Warning{
			Type: WarnDegradedRead,
			Message: fmt.Sprintf("best-effort result: %d of %d counterpart chunks dropped, balance reads degraded: %t",
				grouped.ChunksFailed+labeled.ChunksFailed,
				grouped.ChunksTotal+labeled.ChunksTotal,
				opening.Degraded || closing.Degraded),
		})
	}
	stmt.Meta.Degraded = degraded

	recon := Reconciliation{
		OpeningCash: opening.Amount,
		ClosingCash: closing.Amount,
		NetChange:   netChange,
		Degraded:    opening.Degraded || closing.Degraded,
	}
	return stmt, recon, nil
}

func (b *StatementBuilder) conceptByCode(accountCode string) string {
	concept, ok := b.classifier.Classify(accountCode)
	if !ok || !b.taxonomy.Contains(concept) {
		return ""
	}
	return concept
}

func (b *StatementBuilder) conceptByLabel(label, accountCode string) string {
	if concept, ok := b.routing.Concepts[label]; ok && b.taxonomy.Contains(concept) {
		return concept
	}
	return b.conceptByCode(accountCode)
}
