package cashflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleClassifierLongestPrefixWins(t *testing.T) {
	classifier := NewRuleClassifier(map[string]string{
		"5":    "2.1.1",
		"5101": "2.3.4",
		"51":   "2.2.1",
	})

	concept, ok := classifier.Classify("51010101")
	assert.True(t, ok)
	assert.Equal(t, "2.3.4", concept)

	concept, ok = classifier.Classify("51990000")
	assert.True(t, ok)
	assert.Equal(t, "2.2.1", concept)

	concept, ok = classifier.Classify("59000000")
	assert.True(t, ok)
	assert.Equal(t, "2.1.1", concept)

	_, ok = classifier.Classify("70010000")
	assert.False(t, ok)
}

func TestTaxonomyConceptLookup(t *testing.T) {
	tax := DefaultTaxonomy()
	name, ok := tax.ConceptName("1.1.1")
	assert.True(t, ok)
	assert.Equal(t, "Collections from sales", name)
	assert.True(t, tax.Contains("2.3.4"))
	assert.False(t, tax.Contains("9.9.9"))
}
