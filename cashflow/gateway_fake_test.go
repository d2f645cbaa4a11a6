package cashflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meridian-fin/meridian/ledger"
)

// fakeGateway evaluates the expression vocabulary over in-memory records.
type fakeGateway struct {
	records map[string][]ledger.Record

	failSearch map[string]error
	// searchErrs is consumed one entry per SearchRead call; nil means ok.
	searchErrs  []error
	searchCalls int
	// groupErrs is consumed one entry per ReadGroup call; nil means ok.
	groupErrs  []error
	groupCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records:    make(map[string][]ledger.Record),
		failSearch: make(map[string]error),
	}
}

func (f *fakeGateway) add(model string, recs ...ledger.Record) {
	f.records[model] = append(f.records[model], recs...)
}

func (f *fakeGateway) SearchRead(_ context.Context, model string, filter ledger.Expr, _ []string, opts ledger.SearchOpts) ([]ledger.Record, error) {
	call := f.searchCalls
	f.searchCalls++
	if call < len(f.searchErrs) && f.searchErrs[call] != nil {
		return nil, f.searchErrs[call]
	}
	if err := f.failSearch[model]; err != nil {
		return nil, err
	}
	var out []ledger.Record
	for _, rec := range f.records[model] {
		if matches(rec, filter) {
			out = append(out, rec)
		}
	}
	applyOrder(out, opts.Order)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeGateway) ReadGroup(_ context.Context, model string, filter ledger.Expr, sums, groupBy []string, _ int) ([]ledger.GroupRow, error) {
	call := f.groupCalls
	f.groupCalls++
	if call < len(f.groupErrs) && f.groupErrs[call] != nil {
		return nil, f.groupErrs[call]
	}
	buckets := make(map[string]*ledger.GroupRow)
	var order []string
	for _, rec := range f.records[model] {
		if !matches(rec, filter) {
			continue
		}
		keys := make(map[string]any, len(groupBy))
		var id strings.Builder
		for _, key := range groupBy {
			val := groupKeyValue(rec, key)
			keys[key] = val
			fmt.Fprintf(&id, "%v|", val)
		}
		row, ok := buckets[id.String()]
		if !ok {
			row = &ledger.GroupRow{Keys: keys, Sums: make(map[string]float64)}
			buckets[id.String()] = row
			order = append(order, id.String())
		}
		for _, field := range sums {
			row.Sums[field] += ledger.AsFloat(rec[field])
		}
		row.Count++
	}
	sort.Strings(order)
	out := make([]ledger.GroupRow, 0, len(order))
	for _, id := range order {
		out = append(out, *buckets[id])
	}
	return out, nil
}

func (f *fakeGateway) Read(ctx context.Context, model string, ids []int64, fields []string) ([]ledger.Record, error) {
	return f.SearchRead(ctx, model, ledger.In("id", ids), fields, ledger.SearchOpts{})
}

func groupKeyValue(rec ledger.Record, key string) any {
	switch key {
	case "date:month":
		d := ledger.AsDate(rec["date"])
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "date:week":
		d := ledger.AsDate(rec["date"])
		return d.AddDate(0, 0, -(int(d.Weekday())+6)%7)
	case "account_id":
		return ledger.AsReference(rec[key]).ID
	default:
		return rec[key]
	}
}

func matches(rec ledger.Record, filter ledger.Expr) bool {
	switch t := filter.(type) {
	case nil:
		return true
	case ledger.AndExpr:
		for _, e := range t {
			if !matches(rec, e) {
				return false
			}
		}
		return true
	case ledger.OrExpr:
		for _, e := range t {
			if matches(rec, e) {
				return true
			}
		}
		return false
	case ledger.Cond:
		return matchCond(rec, t)
	default:
		return false
	}
}

func matchCond(rec ledger.Record, c ledger.Cond) bool {
	val := rec[c.Field]
	switch c.Op {
	case ledger.OpEq:
		return scalarEqual(val, c.Value)
	case ledger.OpNeq:
		return !scalarEqual(val, c.Value)
	case ledger.OpIn:
		return inSet(val, c.Value)
	case ledger.OpNotIn:
		return !inSet(val, c.Value)
	case ledger.OpGte:
		return compare(val, c.Value) >= 0
	case ledger.OpLte:
		return compare(val, c.Value) <= 0
	case ledger.OpPrefix:
		prefix, _ := c.Value.(string)
		return strings.HasPrefix(ledger.AsString(val), prefix)
	default:
		return false
	}
}

func scalarEqual(val, want any) bool {
	if s, ok := want.(string); ok {
		return ledger.AsString(val) == s
	}
	return ledger.AsReference(val).ID == ledger.AsInt64(want)
}

func inSet(val, want any) bool {
	items, ok := want.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if scalarEqual(val, item) {
			return true
		}
	}
	return false
}

func compare(val, want any) int {
	if w, ok := want.(time.Time); ok {
		v := ledger.AsDate(val)
		switch {
		case v.Before(w):
			return -1
		case v.After(w):
			return 1
		default:
			return 0
		}
	}
	v, w := ledger.AsFloat(val), ledger.AsFloat(want)
	switch {
	case v < w:
		return -1
	case v > w:
		return 1
	default:
		return 0
	}
}

func applyOrder(recs []ledger.Record, order string) {
	if order == "" {
		return
	}
	type orderTerm struct {
		field string
		desc  bool
	}
	var terms []orderTerm
	for _, part := range strings.Split(order, ",") {
		tokens := strings.Fields(strings.TrimSpace(part))
		if len(tokens) == 0 {
			continue
		}
		terms = append(terms, orderTerm{field: tokens[0], desc: len(tokens) > 1 && strings.EqualFold(tokens[1], "desc")})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, term := range terms {
			cmp := compareField(recs[i][term.field], recs[j][term.field])
			if cmp == 0 {
				continue
			}
			if term.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareField(a, b any) int {
	if _, ok := a.(time.Time); ok {
		return compare(a, ledger.AsDate(b))
	}
	if s, ok := a.(string); ok {
		return strings.Compare(s, ledger.AsString(b))
	}
	av, bv := ledger.AsInt64(a), ledger.AsInt64(b)
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// record builders shared across the package tests.

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func accountRec(id int64, code, name string) ledger.Record {
	return ledger.Record{"id": id, "code": code, "name": name}
}

func lineRec(id, entryID int64, date string, accountID int64, accountName string, debit, credit float64, label string) ledger.Record {
	return ledger.Record{
		"id":               id,
		"journal_entry_id": entryID,
		"date":             mustDate(date),
		"account_id":       []any{accountID, accountName},
		"debit":            debit,
		"credit":           credit,
		"balance":          debit - credit,
		"label":            label,
		"posting_state":    ledger.PostingPosted,
	}
}
