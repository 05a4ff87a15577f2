package nlp

import "strings"

// DefaultFuzzyThreshold is the minimum similarity an approximate match must
// reach before it is accepted.
const DefaultFuzzyThreshold = 0.78

// Dictionary holds the canonical value lists per dimension. It is built once
// at startup and never mutated afterwards, so it is safe for concurrent use.
type Dictionary struct {
	Categories       []string
	States           []string
	Banks            []string
	AgeGroups        []string
	Devices          []string
	Networks         []string
	TransactionTypes []string
	Statuses         []string
}

// NewDictionary returns the canonical dictionary for the payments dataset.
func NewDictionary() *Dictionary {
	return &Dictionary{
		Categories: []string{
			"Food", "Entertainment", "Travel", "Shopping", "Utilities",
			"Healthcare", "Education", "Bills", "Downloads", "Other",
		},
		States: []string{
			"Maharashtra", "Karnataka", "Delhi", "Tamil Nadu", "Telangana",
			"Gujarat", "Rajasthan", "Punjab", "West Bengal", "Uttar Pradesh",
			"Andhra Pradesh", "Haryana", "Madhya Pradesh", "Bihar", "Odisha",
		},
		Banks: []string{
			"HDFC", "ICICI", "SBI", "Axis", "Kotak",
			"PNB", "Canara", "IndusInd", "Yes Bank", "IDFC",
		},
		AgeGroups: []string{"13-18", "18-25", "25-35", "35-45", "45-55", "55+"},
		Devices:   []string{"iOS", "Android", "Web"},
		Networks:  []string{"WiFi", "4G", "5G"},
		TransactionTypes: []string{
			"Transfer", "Payment", "Bill Payment", "Recharge",
		},
		Statuses: []string{"success", "failed", "pending"},
	}
}

// Match resolves a token against a canonical list. Exact case-insensitive
// matches win immediately; otherwise the best candidate by similarity ratio
// is returned iff it reaches the threshold. The walk is deterministic: list
// order breaks ties, and only a strictly better ratio displaces the current
// candidate. Match never returns a value outside the list.
func (d *Dictionary) Match(token string, list []string, threshold float64) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	for _, v := range list {
		if strings.EqualFold(token, v) {
			return v, true
		}
	}

	best := ""
	bestScore := 0.0
	lower := strings.ToLower(token)
	for _, v := range list {
		score := similarity(lower, strings.ToLower(v))
		if score > bestScore {
			best = v
			bestScore = score
		}
	}
	if bestScore >= threshold {
		return best, true
	}
	return "", false
}

// similarity is a Levenshtein-based ratio in [0,1]:
// 1 - distance/max(len(a), len(b)).
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 || lb == 0 {
		return 0
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1 - float64(prev[lb])/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
