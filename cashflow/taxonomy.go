package cashflow

import "sort"

// Activity is a top-level statement grouping.
type Activity string

// Statement activities, in presentation order.
const (
	ActivityOperation  Activity = "OPERATION"
	ActivityInvestment Activity = "INVESTMENT"
	ActivityFinancing  Activity = "FINANCING"
)

// Concept is the finest-grained statement bucket.
type Concept struct {
	Code string
	Name string
}

// ActivityGroup is one activity and its ordered concepts.
type ActivityGroup struct {
	Key      Activity
	Name     string
	Concepts []Concept
}

// Taxonomy is the ordered activity/concept structure a statement follows.
// It is supplied at construction and never mutated by the engine.
type Taxonomy struct {
	Activities []ActivityGroup
}

// ConceptName returns the display name of a concept code.
func (t Taxonomy) ConceptName(code string) (string, bool) {
	for _, act := range t.Activities {
		for _, c := range act.Concepts {
			if c.Code == code {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Contains reports whether the taxonomy declares the concept code.
func (t Taxonomy) Contains(code string) bool {
	_, ok := t.ConceptName(code)
	return ok
}

// Classifier maps an account code to a concept code of the taxonomy.
// A false return routes the amount to the unclassified bucket.
type Classifier interface {
	Classify(accountCode string) (string, bool)
}

// RuleClassifier classifies by account-code prefix; the longest configured
// prefix wins.
type RuleClassifier struct {
	rules []prefixRule
}

type prefixRule struct {
	prefix  string
	concept string
}

// NewRuleClassifier builds a classifier from prefix to concept mappings.
func NewRuleClassifier(byPrefix map[string]string) *RuleClassifier {
	rules := make([]prefixRule, 0, len(byPrefix))
	for prefix, concept := range byPrefix {
		rules = append(rules, prefixRule{prefix: prefix, concept: concept})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].prefix < rules[j].prefix
	})
	return &RuleClassifier{rules: rules}
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(accountCode string) (string, bool) {
	for _, rule := range c.rules {
		if len(accountCode) >= len(rule.prefix) && accountCode[:len(rule.prefix)] == rule.prefix {
			return rule.concept, true
		}
	}
	return "", false
}

// DefaultTaxonomy is the stock statement structure. Deployments normally
// supply their own.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Activities: []ActivityGroup{
		{
			Key:  ActivityOperation,
			Name: "Operating activities",
			Concepts: []Concept{
				{Code: "1.1.1", Name: "Collections from sales"},
				{Code: "1.1.2", Name: "Other operating collections"},
				{Code: "2.1.1", Name: "Payments to suppliers"},
				{Code: "2.2.1", Name: "Payments to employees"},
				{Code: "2.3.4", Name: "Payments for external services"},
				{Code: "2.4.1", Name: "Tax payments"},
			},
		},
		{
			Key:  ActivityInvestment,
			Name: "Investing activities",
			Concepts: []Concept{
				{Code: "3.1.1", Name: "Collections from asset disposals"},
				{Code: "4.1.1", Name: "Payments for fixed assets"},
			},
		},
		{
			Key:  ActivityFinancing,
			Name: "Financing activities",
			Concepts: []Concept{
				{Code: "5.1.1", Name: "Collections from borrowings"},
				{Code: "6.1.1", Name: "Repayment of borrowings"},
			},
		},
	}}
}
