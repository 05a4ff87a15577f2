package nlp

import (
	"regexp"
	"strings"
)

// Intent is the coarse analytic operation a query requests.
type Intent string

const (
	IntentDescriptive   Intent = "descriptive"
	IntentComparative   Intent = "comparative"
	IntentSegmentation  Intent = "user_segmentation"
	IntentRisk          Intent = "risk_analysis"
	IntentClarification Intent = "clarification"
)

// Keyword sets tested in fixed priority order. Risk wins over everything, so
// "fraud rate vs last month" stays a risk query despite the comparative cue.
var (
	riskKeywords = []string{
		"fraud", "risk", "failed", "failure", "flagged",
		"suspicious", "anomaly", "unusual", "problem",
	}
	comparativeKeywords = []string{
		"compare", "versus", "vs", "difference", "better", "worse",
		"higher", "lower", "faster", "slower", "more than", "less than",
		"between", "across", "top ", "bottom ",
	}
	segmentationKeywords = []string{
		"age group", "segment", "demographic", "by age", "by state",
		"by device", "by network", "by category", "by bank", "users in", "wise",
	}
	descriptiveKeywords = []string{
		"average", "mean", "total", "sum", "how much", "peak", "highest",
		"lowest", "most", "least", "analyze", "what are", "what is",
		"trend", "pattern", "distribution",
	}

	// Aggregation words that, together with a "by <dimension>" phrase,
	// signal grouped totals rather than a narrative breakdown.
	aggregationWords = []string{"total", "sum", "amount", "value"}

	byDimensionRe = regexp.MustCompile(`\bby\s+\w+`)
)

// Classifier assigns one of the four analytic intents to normalized query
// text. Rule-based only: first keyword-set hit in priority order wins.
type Classifier struct{}

// NewClassifier creates an intent classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns a single category with no probabilistic blending.
// Priority: risk > comparative > grouped-totals rule > segmentation >
// descriptive; default descriptive.
func (c *Classifier) Classify(query string) Intent {
	q := strings.ToLower(query)

	if containsAny(q, riskKeywords) {
		return IntentRisk
	}
	if containsAny(q, comparativeKeywords) {
		return IntentComparative
	}
	// An aggregation word co-occurring with "by <dimension>" means grouped
	// totals, which is a comparison, not a segmentation narrative.
	if containsAny(q, aggregationWords) && byDimensionRe.MatchString(q) {
		return IntentComparative
	}
	if containsAny(q, segmentationKeywords) {
		return IntentSegmentation
	}
	if containsAny(q, descriptiveKeywords) {
		return IntentDescriptive
	}
	return IntentDescriptive
}

func containsAny(q string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(q, k) {
			return true
		}
	}
	return false
}
