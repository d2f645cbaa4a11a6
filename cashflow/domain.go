// Package cashflow turns raw ledger postings into a classified historical
// cash-flow statement and a forward projection derived from pending
// documents.
package cashflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-fin/meridian/ledger"
)

// Granularity selects the optional period bucketing of a statement.
type Granularity string

// Supported granularities.
const (
	GranularityNone    Granularity = ""
	GranularityMonthly Granularity = "monthly"
	GranularityWeekly  Granularity = "weekly"
)

// Query is the input of every top-level statement operation.
type Query struct {
	DateFrom     time.Time `validate:"required"`
	DateTo       time.Time `validate:"required"`
	CompanyID    int64     `validate:"min=0"`
	IncludeDraft bool
	Granularity  Granularity `validate:"omitempty,oneof=monthly weekly"`
}

// Warning types surfaced on statements.
const (
	WarnMissingLabel   = "missing-label"
	WarnDegradedRead   = "degraded-read"
	WarnNoCashAccounts = "no-cash-accounts"
)

// Warning flags a non-fatal condition detected while building a statement.
type Warning struct {
	Type      string
	Message   string
	Documents []string
}

// AccountInfo is the displayable identity of an account.
type AccountInfo struct {
	Code string
	Name string
}

// AllocationRecord is one attributed cash-flow amount. Projected records
// carry document fields; actual records carry the account and period only.
type AllocationRecord struct {
	DocumentID     int64
	DocumentRef    string
	PartnerName    string
	IssueDate      time.Time
	ProjectionDate time.Time
	EstimatedDate  bool
	State          string
	Amount         float64
	Account        AccountInfo
	Kind           string
	SourceLabel    string
	HasLabel       bool
}

// ConceptResult aggregates one concept of the statement.
type ConceptResult struct {
	Code           string
	Name           string
	Amount         float64
	AmountByPeriod map[string]float64
	Documents      []AllocationRecord
}

// ActivityResult aggregates one activity and its concepts.
type ActivityResult struct {
	Name             string
	Subtotal         float64
	SubtotalByPeriod map[string]float64
	Concepts         []ConceptResult
}

// UnclassifiedResult collects amounts no classification rule matched. It
// sits outside the activity hierarchy.
type UnclassifiedResult struct {
	Amount         float64
	AmountByPeriod map[string]float64
	Documents      []AllocationRecord
}

// Meta correlates a built statement with logs and flags best-effort output.
type Meta struct {
	RunID       uuid.UUID
	GeneratedAt time.Time
	Degraded    bool
}

// Statement is the canonical hierarchical cash-flow statement, shared by
// the actual and projected views so their results are summable.
type Statement struct {
	Activities   map[Activity]ActivityResult
	Unclassified UnclassifiedResult
	Warnings     []Warning
	Meta         Meta
}

// Reconciliation lets a caller verify opening + net change against the
// closing balance.
type Reconciliation struct {
	OpeningCash float64
	ClosingCash float64
	NetChange   float64
	Degraded    bool
}

// Balance is a cash balance read. Degraded marks a placeholder produced
// after the source failed, as opposed to a confirmed zero.
type Balance struct {
	Amount   float64
	Degraded bool
}

// CounterpartGroup is one aggregated non-cash bucket.
type CounterpartGroup struct {
	Account    ledger.Reference
	Label      string
	PeriodKey  string
	BalanceSum float64
}

// CounterpartGroups is the chunk-tolerant aggregation result.
type CounterpartGroups struct {
	Groups       []CounterpartGroup
	ChunksTotal  int
	ChunksFailed int
}

// Degraded reports whether at least one chunk was dropped.
func (c CounterpartGroups) Degraded() bool { return c.ChunksFailed > 0 }

// CashAccountRule configures one logical group of cash accounts.
// Precedence: exclude > explicit include > prefix match.
type CashAccountRule struct {
	Prefixes     []string
	IncludeCodes []string
	ExcludeCodes []string
}

// Document sign: collections positive, payments negative; credit notes
// invert their parent kind.
func documentSign(kind string) float64 {
	switch kind {
	case ledger.KindCustomerInvoice:
		return 1
	case ledger.KindCustomerCredit:
		return -1
	case ledger.KindVendorInvoice:
		return -1
	case ledger.KindVendorCredit:
		return 1
	default:
		return 0
	}
}

func isCustomerKind(kind string) bool {
	return kind == ledger.KindCustomerInvoice || kind == ledger.KindCustomerCredit
}
