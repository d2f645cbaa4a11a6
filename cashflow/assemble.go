package cashflow

import "sort"

// statementAcc accumulates classified amounts for both the actual and the
// projected views, so the two produce structurally identical statements.
type statementAcc struct {
	concepts     map[string]*conceptAcc
	unclassified conceptAcc
}

type conceptAcc struct {
	amount   float64
	byPeriod map[string]float64
	records  []AllocationRecord
}

func newStatementAcc() *statementAcc {
	return &statementAcc{concepts: make(map[string]*conceptAcc)}
}

// add routes one allocated amount. An empty concept code lands in the
// unclassified bucket.
func (s *statementAcc) add(conceptCode string, rec AllocationRecord, periodKey string) {
	target := &s.unclassified
	if conceptCode != "" {
		acc, ok := s.concepts[conceptCode]
		if !ok {
			acc = &conceptAcc{}
			s.concepts[conceptCode] = acc
		}
		target = acc
	}
	target.amount += rec.Amount
	target.byPeriod = addPeriod(target.byPeriod, periodKey, rec.Amount)
	target.records = append(target.records, rec)
}

// netTotal sums every accumulated amount, unclassified included.
func (s *statementAcc) netTotal() float64 {
	total := s.unclassified.amount
	for _, acc := range s.concepts {
		total += acc.amount
	}
	return total
}

// build assembles the canonical statement following taxonomy order. A
// concept is emitted only when it carries an amount or documents.
func (s *statementAcc) build(taxonomy Taxonomy) Statement {
	stmt := Statement{Activities: make(map[Activity]ActivityResult, len(taxonomy.Activities))}
	for _, group := range taxonomy.Activities {
		activity := ActivityResult{Name: group.Name}
		for _, concept := range group.Concepts {
			acc, ok := s.concepts[concept.Code]
			if !ok || (acc.amount == 0 && len(acc.records) == 0) {
				continue
			}
			activity.Subtotal += acc.amount
			for key, amount := range acc.byPeriod {
				activity.SubtotalByPeriod = addPeriod(activity.SubtotalByPeriod, key, amount)
			}
			activity.Concepts = append(activity.Concepts, ConceptResult{
				Code:           concept.Code,
				Name:           concept.Name,
				Amount:         acc.amount,
				AmountByPeriod: acc.byPeriod,
				Documents:      sortRecords(acc.records),
			})
		}
		stmt.Activities[group.Key] = activity
	}
	stmt.Unclassified = UnclassifiedResult{
		Amount:         s.unclassified.amount,
		AmountByPeriod: s.unclassified.byPeriod,
		Documents:      sortRecords(s.unclassified.records),
	}
	return stmt
}

// sortRecords orders records by projection date ascending with undated
// records last; ties break on document id, then account code.
func sortRecords(records []AllocationRecord) []AllocationRecord {
	out := append([]AllocationRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.ProjectionDate.IsZero() && !b.ProjectionDate.IsZero():
			return false
		case !a.ProjectionDate.IsZero() && b.ProjectionDate.IsZero():
			return true
		case !a.ProjectionDate.Equal(b.ProjectionDate):
			return a.ProjectionDate.Before(b.ProjectionDate)
		case a.DocumentID != b.DocumentID:
			return a.DocumentID < b.DocumentID
		default:
			return a.Account.Code < b.Account.Code
		}
	})
	return out
}
