package cashflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/meridian-fin/meridian/ledger"
	"github.com/meridian-fin/meridian/observability"
)

// DefaultDraftEstimationDays is added to the issue date of draft documents
// lacking a due or agreed payment date. Inherited business rule.
const DefaultDraftEstimationDays = 30

// ProjectionConfig tunes the projection pipeline.
type ProjectionConfig struct {
	// CollectionsConceptCode receives every customer-document line.
	CollectionsConceptCode string
	// DraftEstimationDays defaults to DefaultDraftEstimationDays.
	DraftEstimationDays int
}

// ProjectionEngine computes forward cash flow from pending documents. It
// holds no per-call state.
type ProjectionEngine struct {
	reader     *ledger.Reader
	classifier Classifier
	taxonomy   Taxonomy
	cfg        ProjectionConfig
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewProjectionEngine builds a projection engine.
func NewProjectionEngine(reader *ledger.Reader, classifier Classifier, taxonomy Taxonomy, cfg ProjectionConfig, logger *slog.Logger, metrics *observability.Metrics) *ProjectionEngine {
	if cfg.DraftEstimationDays <= 0 {
		cfg.DraftEstimationDays = DefaultDraftEstimationDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectionEngine{
		reader:     reader,
		classifier: classifier,
		taxonomy:   taxonomy,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
	}
}

type pendingDocument struct {
	doc            ledger.Document
	projectionDate time.Time
	estimated      bool
}

// Build computes the projected statement for the query range.
func (e *ProjectionEngine) Build(ctx context.Context, q Query) (Statement, error) {
	docs, err := e.fetchPending(ctx, q)
	if err != nil {
		return Statement{}, err
	}

	// The fetch over-reaches on purpose: the true projection date is
	// derived, so each document is re-validated against the range here.
	pending := make([]pendingDocument, 0, len(docs))
	docIDs := make([]int64, 0, len(docs))
	for _, doc := range docs {
		date, estimated, ok := resolveProjectionDate(doc, e.cfg.DraftEstimationDays)
		if !ok {
			e.metrics.DocumentSkipped("no-date")
			continue
		}
		if date.Before(q.DateFrom) || date.After(q.DateTo) {
			e.metrics.DocumentSkipped("outside-range")
			continue
		}
		pending = append(pending, pendingDocument{doc: doc, projectionDate: date, estimated: estimated})
		docIDs = append(docIDs, doc.ID)
	}
	if len(pending) == 0 {
		acc := newStatementAcc()
		return acc.build(e.taxonomy), nil
	}

	linesByDoc, err := e.fetchLines(ctx, docIDs)
	if err != nil {
		return Statement{}, err
	}

	acc := newStatementAcc()
	missingLabel := make(map[int64]string)
	for _, p := range pending {
		e.allocate(acc, p, linesByDoc[p.doc.ID], q.Granularity, missingLabel)
	}

	stmt := acc.build(e.taxonomy)
	if len(missingLabel) > 0 {
		stmt.Warnings = append(stmt.Warnings, missingLabelWarning(missingLabel))
	}
	return stmt, nil
}

func (e *ProjectionEngine) fetchPending(ctx context.Context, q Query) ([]ledger.Document, error) {
	dateInRange := func(field string) ledger.Expr {
		return ledger.And(
			ledger.Gte(field, q.DateFrom),
			ledger.Lte(field, q.DateTo),
		)
	}
	conds := []ledger.Expr{
		ledger.In("kind", []string{ledger.KindCustomerInvoice, ledger.KindVendorInvoice}),
		ledger.Neq("state", ledger.DocStateCancelled),
		ledger.Or(
			ledger.Eq("state", ledger.DocStateDraft),
			ledger.And(
				ledger.Eq("state", ledger.DocStatePosted),
				ledger.In("payment_state", []string{ledger.PaymentUnpaid, ledger.PaymentPartiallyPaid, ledger.PaymentInPayment}),
			),
		),
		ledger.Or(
			dateInRange("agreed_payment_date"),
			dateInRange("due_date"),
			dateInRange("issue_date"),
		),
	}
	if q.CompanyID != 0 {
		conds = append(conds, ledger.Eq("company_id", q.CompanyID))
	}
	docs, err := e.reader.SearchDocuments(ctx, ledger.And(conds...), ledger.SearchOpts{Order: "id"})
	e.metrics.GatewayCall("pending_documents", err)
	if err != nil {
		return nil, fmt.Errorf("cashflow: fetch pending documents: %w", err)
	}
	return docs, nil
}

func (e *ProjectionEngine) fetchLines(ctx context.Context, docIDs []int64) (map[int64][]ledger.DocumentLine, error) {
	sorted := append([]int64(nil), docIDs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	filter := ledger.And(
		ledger.In("document_id", sorted),
		ledger.NotIn("display_kind", []string{ledger.DisplaySection, ledger.DisplayNote}),
	)
	lines, err := e.reader.SearchDocumentLines(ctx, filter)
	e.metrics.GatewayCall("document_lines", err)
	if err != nil {
		return nil, fmt.Errorf("cashflow: fetch document lines: %w", err)
	}
	byDoc := make(map[int64][]ledger.DocumentLine)
	for _, line := range lines {
		byDoc[line.DocumentID] = append(byDoc[line.DocumentID], line)
	}
	return byDoc, nil
}

// resolveProjectionDate picks the expected cash-impact date of a document.
// Waterfall, first match wins; estimated is true only for the draft rule.
func resolveProjectionDate(doc ledger.Document, estimationDays int) (date time.Time, estimated, ok bool) {
	switch {
	case !doc.AgreedPaymentDate.IsZero():
		return doc.AgreedPaymentDate, false, true
	case !doc.DueDate.IsZero():
		return doc.DueDate, false, true
	case doc.State == ledger.DocStateDraft && !doc.IssueDate.IsZero():
		return doc.IssueDate.AddDate(0, 0, estimationDays), true, true
	case !doc.IssueDate.IsZero():
		return doc.IssueDate, false, true
	default:
		return time.Time{}, false, false
	}
}

func (e *ProjectionEngine) allocate(acc *statementAcc, p pendingDocument, lines []ledger.DocumentLine, g Granularity, missingLabel map[int64]string) {
	doc := p.doc
	amount := doc.TotalAmount
	if doc.State == ledger.DocStatePosted {
		amount = doc.ResidualAmount
	}
	if amount == 0 {
		e.metrics.DocumentSkipped("zero-amount")
		return
	}
	if len(lines) == 0 {
		e.metrics.DocumentSkipped("no-lines")
		return
	}
	var subtotalSum float64
	for _, line := range lines {
		subtotalSum += line.Subtotal
	}
	if subtotalSum == 0 {
		e.metrics.DocumentSkipped("zero-subtotal")
		return
	}

	flow := amount * documentSign(doc.Kind)
	periodKey := PeriodKey(g, p.projectionDate)
	for _, line := range lines {
		allocated := flow * (line.Subtotal / subtotalSum)
		concept := e.conceptFor(doc.Kind, line.AccountCode)
		rec := AllocationRecord{
			DocumentID:     doc.ID,
			DocumentRef:    doc.Ref,
			PartnerName:    doc.Partner.DisplayName,
			IssueDate:      doc.IssueDate,
			ProjectionDate: p.projectionDate,
			EstimatedDate:  p.estimated,
			State:          doc.State,
			Amount:         allocated,
			Account:        AccountInfo{Code: line.AccountCode, Name: line.AccountName},
			Kind:           doc.Kind,
			SourceLabel:    line.Label,
			HasLabel:       line.Label != "",
		}
		acc.add(concept, rec, periodKey)
		if line.Label == "" {
			missingLabel[doc.ID] = doc.Ref
		}
	}
}

// conceptFor routes a line. Customer documents all land on the fixed
// collections concept; vendor documents classify by account code. A
// concept the taxonomy does not declare degrades to unclassified rather
// than silently dropping the amount.
func (e *ProjectionEngine) conceptFor(kind, accountCode string) string {
	if isCustomerKind(kind) {
		if !e.taxonomy.Contains(e.cfg.CollectionsConceptCode) {
			return ""
		}
		return e.cfg.CollectionsConceptCode
	}
	concept, ok := e.classifier.Classify(accountCode)
	if !ok || !e.taxonomy.Contains(concept) {
		return ""
	}
	return concept
}

func missingLabelWarning(missing map[int64]string) Warning {
	ids := make([]int64, 0, len(missing))
	for id := range missing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	refs := make([]string, 0, len(ids))
	for _, id := range ids {
		if len(refs) == 20 {
			break
		}
		refs = append(refs, missing[id])
	}
	return Warning{
		Type:      WarnMissingLabel,
		Message:   fmt.Sprintf("%d documents have lines without a label", len(missing)),
		Documents: refs,
	}
}
