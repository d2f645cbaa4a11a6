package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentFromRecordNormalizesPartner(t *testing.T) {
	doc := DocumentFromRecord(Record{
		"id":         int64(7),
		"ref":        "INV-007",
		"kind":       KindCustomerInvoice,
		"partner_id": []any{int64(42), "Acme Corp"},
		"state":      DocStatePosted,
	})
	assert.Equal(t, int64(42), doc.Partner.ID)
	assert.Equal(t, "Acme Corp", doc.Partner.DisplayName)

	// Sources without a partner table still decode the bare id.
	doc = DocumentFromRecord(Record{"id": int64(8), "partner_id": int64(9)})
	assert.Equal(t, Reference{ID: 9}, doc.Partner)

	doc = DocumentFromRecord(Record{"id": int64(9)})
	assert.True(t, doc.Partner.Zero())
}
