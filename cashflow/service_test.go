package cashflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian/ledger"
)

func newTestService(t *testing.T, gw *fakeGateway) *Service {
	t.Helper()
	svc, err := NewService(gw, NewMemoryAccountSetCache(), Options{
		Rules:                  []CashAccountRule{{Prefixes: []string{"110", "111"}}},
		Taxonomy:               DefaultTaxonomy(),
		Classifier:             NewRuleClassifier(map[string]string{"5102": "2.1.1", "5101": "2.3.4"}),
		CollectionsConceptCode: "1.1.1",
	}, nil, nil)
	require.NoError(t, err)
	svc.WithClock(func() time.Time { return mustDate("2026-06-01") })
	return svc
}

func TestServiceRejectsInvalidQueries(t *testing.T) {
	svc := newTestService(t, newFakeGateway())
	ctx := context.Background()

	_, err := svc.Projected(ctx, Query{})
	assert.Error(t, err)

	_, err = svc.Projected(ctx, Query{DateFrom: mustDate("2026-03-31"), DateTo: mustDate("2026-03-01")})
	assert.Error(t, err)

	_, err = svc.Projected(ctx, Query{DateFrom: mustDate("2026-03-01"), DateTo: mustDate("2026-03-31"), Granularity: "daily"})
	assert.Error(t, err)
}

func TestServiceRequiresClassifierAndTaxonomy(t *testing.T) {
	_, err := NewService(newFakeGateway(), nil, Options{Taxonomy: DefaultTaxonomy()}, nil, nil)
	assert.Error(t, err)

	_, err = NewService(newFakeGateway(), nil, Options{
		Taxonomy:   DefaultTaxonomy(),
		Classifier: NewRuleClassifier(nil),
		// Not declared by the taxonomy.
		CollectionsConceptCode: "9.9.9",
	}, nil, nil)
	assert.Error(t, err)
}

func TestServiceActualEndToEnd(t *testing.T) {
	gw := newFakeGateway()
	seedScenario(gw)
	svc := newTestService(t, gw)

	stmt, recon, err := svc.Actual(context.Background(), marchQuery())
	require.NoError(t, err)
	assert.InDelta(t, -500000, recon.NetChange, 0.001)
	assert.NotEqual(t, uuid.Nil, stmt.Meta.RunID)
	assert.Equal(t, mustDate("2026-06-01"), stmt.Meta.GeneratedAt)
}

func TestServiceProjectedIsDeterministic(t *testing.T) {
	gw := newFakeGateway()
	gw.add(ledger.ModelDocuments,
		withDate(docRec(1, "INV-001", ledger.KindCustomerInvoice, ledger.DocStatePosted, ledger.PaymentUnpaid, 1000, 1000), "due_date", "2026-03-15"),
		withDate(docRec(2, "BILL-002", ledger.KindVendorInvoice, ledger.DocStatePosted, ledger.PaymentUnpaid, 400, 400), "due_date", "2026-03-15"),
	)
	gw.add(ledger.ModelDocumentLines,
		docLineRec(1, "70010000", "Sales", 1000, "x"),
		docLineRec(2, "51020000", "Purchases", 400, "y"),
	)
	svc := newTestService(t, gw)

	first, err := svc.Projected(context.Background(), marchQuery())
	require.NoError(t, err)
	second, err := svc.Projected(context.Background(), marchQuery())
	require.NoError(t, err)

	first.Meta.RunID = uuid.Nil
	second.Meta.RunID = uuid.Nil
	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestServiceInvalidateForcesReresolution(t *testing.T) {
	gw := newFakeGateway()
	seedScenario(gw)
	svc := newTestService(t, gw)
	ctx := context.Background()

	_, _, err := svc.Actual(ctx, marchQuery())
	require.NoError(t, err)

	// A new cash account only participates after invalidation.
	gw.add(ledger.ModelAccounts, accountRec(5, "11150000", "New bank"))
	gw.add(ledger.ModelLines,
		lineRec(40, 400, "2026-03-20", 5, "New bank", 0, 1000, "z"),
		lineRec(41, 400, "2026-03-20", 2, "External services", 1000, 0, "z"),
	)

	_, recon, err := svc.Actual(ctx, marchQuery())
	require.NoError(t, err)
	assert.InDelta(t, -500000, recon.NetChange, 0.001)

	svc.InvalidateCashAccounts(ctx)
	_, recon, err = svc.Actual(ctx, marchQuery())
	require.NoError(t, err)
	assert.InDelta(t, -501000, recon.NetChange, 0.001)
}
