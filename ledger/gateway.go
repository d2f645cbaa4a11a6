// Package ledger defines the contract consumed from the external
// accounting source: a small query gateway, the condition vocabulary it
// understands, and typed views over the loosely-shaped records it returns.
package ledger

import "context"

// Models known to the gateway.
const (
	ModelAccounts      = "accounts"
	ModelLines         = "ledger_lines"
	ModelDocuments     = "documents"
	ModelDocumentLines = "document_lines"
)

// Record is one row as returned by the source. Field values keep the
// source's runtime shape; callers decode through the As* helpers.
type Record map[string]any

// GroupRow is one aggregation bucket from ReadGroup.
type GroupRow struct {
	Keys  map[string]any
	Sums  map[string]float64
	Count int
}

// SearchOpts carries optional search modifiers.
type SearchOpts struct {
	Limit int
	Order string
}

// Gateway executes filtered and aggregated reads against the source.
// Implementations must support the full Expr vocabulary of this package.
type Gateway interface {
	SearchRead(ctx context.Context, model string, filter Expr, fields []string, opts SearchOpts) ([]Record, error)
	ReadGroup(ctx context.Context, model string, filter Expr, sums []string, groupBy []string, limit int) ([]GroupRow, error)
	Read(ctx context.Context, model string, ids []int64, fields []string) ([]Record, error)
}
