package ledger

import "time"

// Posting states for ledger lines.
const (
	PostingDraft  = "draft"
	PostingPosted = "posted"
)

// Document kinds.
const (
	KindCustomerInvoice = "customer_invoice"
	KindVendorInvoice   = "vendor_invoice"
	KindCustomerCredit  = "customer_credit"
	KindVendorCredit    = "vendor_credit"
)

// Document states.
const (
	DocStateDraft     = "draft"
	DocStatePosted    = "posted"
	DocStateCancelled = "cancelled"
)

// Payment states for posted documents.
const (
	PaymentUnpaid        = "unpaid"
	PaymentPartiallyPaid = "partially_paid"
	PaymentInPayment     = "in_payment"
	PaymentPaid          = "paid"
)

// Document line display kinds; section and note rows carry no amounts.
const (
	DisplayProduct = "product"
	DisplaySection = "section"
	DisplayNote    = "note"
)

// Account is minimal account metadata.
type Account struct {
	ID   int64
	Code string
	Name string
}

// Line is one debit/credit posting row of a journal entry.
// Balance always equals Debit minus Credit.
type Line struct {
	ID             int64
	JournalEntryID int64
	Date           time.Time
	Account        Reference
	Debit          float64
	Credit         float64
	Balance        float64
	Partner        Reference
	Label          string
	PostingState   string
}

// Document is an invoice, bill, or credit note.
type Document struct {
	ID                int64
	Ref               string
	Kind              string
	Partner           Reference
	IssueDate         time.Time
	DueDate           time.Time
	AgreedPaymentDate time.Time
	TotalAmount       float64
	ResidualAmount    float64
	State             string
	PaymentState      string
}

// DocumentLine is one revenue/expense line of a document.
type DocumentLine struct {
	DocumentID  int64
	AccountCode string
	AccountName string
	Subtotal    float64
	Label       string
	DisplayKind string
}

// AccountFromRecord decodes an accounts record.
func AccountFromRecord(rec Record) Account {
	return Account{
		ID:   AsInt64(rec["id"]),
		Code: AsString(rec["code"]),
		Name: AsString(rec["name"]),
	}
}

// LineFromRecord decodes a ledger_lines record.
func LineFromRecord(rec Record) Line {
	return Line{
		ID:             AsInt64(rec["id"]),
		JournalEntryID: AsInt64(rec["journal_entry_id"]),
		Date:           AsDate(rec["date"]),
		Account:        AsReference(rec["account_id"]),
		Debit:          AsFloat(rec["debit"]),
		Credit:         AsFloat(rec["credit"]),
		Balance:        AsFloat(rec["balance"]),
		Partner:        AsReference(rec["partner_id"]),
		Label:          AsString(rec["label"]),
		PostingState:   AsString(rec["posting_state"]),
	}
}

// DocumentFromRecord decodes a documents record.
func DocumentFromRecord(rec Record) Document {
	return Document{
		ID:                AsInt64(rec["id"]),
		Ref:               AsString(rec["ref"]),
		Kind:              AsString(rec["kind"]),
		Partner:           AsReference(rec["partner_id"]),
		IssueDate:         AsDate(rec["issue_date"]),
		DueDate:           AsDate(rec["due_date"]),
		AgreedPaymentDate: AsDate(rec["agreed_payment_date"]),
		TotalAmount:       AsFloat(rec["total_amount"]),
		ResidualAmount:    AsFloat(rec["residual_amount"]),
		State:             AsString(rec["state"]),
		PaymentState:      AsString(rec["payment_state"]),
	}
}

// DocumentLineFromRecord decodes a document_lines record.
func DocumentLineFromRecord(rec Record) DocumentLine {
	return DocumentLine{
		DocumentID:  AsInt64(rec["document_id"]),
		AccountCode: AsString(rec["account_code"]),
		AccountName: AsString(rec["account_name"]),
		Subtotal:    AsFloat(rec["subtotal"]),
		Label:       AsString(rec["label"]),
		DisplayKind: AsString(rec["display_kind"]),
	}
}
