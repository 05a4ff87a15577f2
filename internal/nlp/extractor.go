package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

// Extractor turns normalized query text into an EntitySet using three
// strategies per dimension: exact dictionary substring match, regex for
// structured mentions, and fuzzy token match for whatever is left.
// Extraction never fails; unmatched dimensions are simply absent.
type Extractor struct {
	dict      *Dictionary
	threshold float64
}

// NewExtractor creates an extractor over a dictionary using the default
// fuzzy threshold.
func NewExtractor(dict *Dictionary) *Extractor {
	return &Extractor{dict: dict, threshold: DefaultFuzzyThreshold}
}

var (
	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}

	topNRe    = regexp.MustCompile(`\btop\s+(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\b`)
	bottomNRe = regexp.MustCompile(`\bbottom\s+(\d+|one|two|three|four|five|six|seven|eight|nine|ten)\b`)
	ageRe     = regexp.MustCompile(`(13-18|18-25|25-35|35-45|45-55|55\+)`)
	hourAmPm  = regexp.MustCompile(`\b(?:at\s+)?(\d{1,2})\s*(am|pm)\b`)
	hourWord  = regexp.MustCompile(`\bhour\s+(\d{1,2})\b`)
	dayRe     = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)s?\b`)
	byRe      = regexp.MustCompile(`\bby\s+((?:sender|receiver)\s+)?(age group|age|categor(?:y|ies)|state|device|network|bank|hour|day|status|type)s?\b`)
	wiseRe    = regexp.MustCompile(`\b(age|category|state|device|network|bank|day|hour)[\s-]?wise\b`)
	tokenRe   = regexp.MustCompile(`[a-z][a-z]{3,}`)

	senderCues   = map[string]bool{"sender": true, "senders": true, "from": true, "sending": true}
	receiverCues = map[string]bool{"receiver": true, "receivers": true, "to": true, "receiving": true}

	// Time references checked in order; first hit wins.
	timeReferences = []struct{ pattern, label string }{
		{"last week", "last_week"},
		{"last month", "last_month"},
		{"this week", "week"},
		{"this month", "month"},
		{"this year", "year"},
		{"today", "today"},
		{"yesterday", "yesterday"},
		{"morning", "morning"},
		{"afternoon", "afternoon"},
		{"evening", "evening"},
		{"night", "night"},
		{"peak", "peak_hours"},
	}

	// Cues deciding whether a "by X"/"X wise" grouping is a grouped
	// comparison or a segmentation narrative.
	comparisonCues = []string{
		"total", "sum", "amount", "value", "compare", "versus", "vs",
		"top", "bottom", "highest", "most", "across", "rank",
	}

	// Cues that promote a bare dimension token to a grouping request.
	bareGroupingCues = []string{
		"by ", "per ", "wise", "compare", "total", "top",
		"group", "segment", "across",
	}

	fuzzyStopwords = map[string]bool{
		"transaction": true, "transactions": true, "show": true, "what": true,
		"amount": true, "amounts": true, "average": true, "total": true,
		"compare": true, "between": true, "transfer": true, "transfers": true,
		"payment": true, "payments": true, "rate": true, "rates": true,
		"fraud": true, "frauds": true, "failure": true, "failures": true,
		"failed": true, "risk": true, "analysis": true, "pattern": true,
		"patterns": true, "trend": true, "trends": true, "bank": true,
		"banks": true, "state": true, "states": true, "category": true,
		"categories": true, "group": true, "groups": true, "device": true,
		"devices": true, "network": true, "networks": true, "hour": true,
		"hours": true, "days": true, "week": true, "weekend": true,
		"weekends": true, "weekday": true, "weekdays": true, "month": true,
		"year": true, "wise": true, "from": true, "sender": true,
		"senders": true, "receiver": true, "receivers": true, "highest": true,
		"lowest": true, "most": true, "least": true, "distribution": true,
		"success": true, "successful": true, "pending": true, "users": true,
		"user": true, "value": true, "values": true, "count": true,
		"many": true, "much": true, "across": true, "versus": true,
		"about": true, "which": true, "with": true, "have": true,
		"peak": true, "this": true, "last": true, "morning": true,
		"afternoon": true, "evening": true, "night": true, "worst": true,
		"segment": true, "segments": true, "breakdown": true, "volume": true,
	}
)

// Extract resolves every recognizable mention in the query into canonical
// entity values.
func (x *Extractor) Extract(query string) EntitySet {
	q := strings.ToLower(query)
	e := EntitySet{}

	x.extractCategories(q, e)
	x.extractStates(q, e)
	x.extractBanks(q, e)
	x.extractAgeGroups(q, e)
	x.extractDevicesAndNetworks(q, e)
	x.extractTransactionType(q, e)
	x.extractStatus(q, e)
	x.extractStructured(q, e)
	x.extractMetric(q, e)
	x.extractGrouping(q, e)
	x.extractFuzzy(q, e)

	return e
}

func (x *Extractor) extractCategories(q string, e EntitySet) {
	vals := matchAll(q, x.dict.Categories)
	switch {
	case len(vals) >= 2:
		e[KeyComparisonDimension] = KeyMerchantCategory.String()
		e[KeyComparisonValues] = vals
	case len(vals) == 1:
		e[KeyMerchantCategory] = vals[0]
	}
}

func (x *Extractor) extractStates(q string, e EntitySet) {
	vals := matchAll(q, x.dict.States)
	switch {
	case len(vals) >= 2:
		// The dataset carries sender state only, so multi-state
		// comparisons resolve to the sender side directly.
		e[KeyComparisonDimension] = KeySenderState.String()
		e[KeyComparisonValues] = vals
	case len(vals) == 1:
		if directionBefore(q, vals[0]) == "receiver" {
			e[KeyReceiverState] = vals[0]
		} else {
			e[KeySenderState] = vals[0]
		}
	}
}

func (x *Extractor) extractBanks(q string, e EntitySet) {
	vals := matchAll(q, x.dict.Banks)
	if len(vals) == 0 {
		return
	}
	if len(vals) >= 2 {
		e[KeyComparisonValues] = vals
		switch anyDirection(q, vals) {
		case "sender":
			e[KeyComparisonDimension] = KeySenderBank.String()
		case "receiver":
			e[KeyComparisonDimension] = KeyReceiverBank.String()
		default:
			e[KeyComparisonDimension] = GroupBank
		}
		return
	}
	assignDirectional(e, q, vals[0], KeySenderBank, KeyReceiverBank, KeyBank)
}

func (x *Extractor) extractAgeGroups(q string, e EntitySet) {
	raw := ageRe.FindAllString(q, -1)
	vals := dedupe(raw)
	if len(vals) == 0 {
		return
	}
	if len(vals) >= 2 {
		e[KeyComparisonValues] = vals
		switch anyDirection(q, vals) {
		case "sender":
			e[KeyComparisonDimension] = KeySenderAgeGroup.String()
		case "receiver":
			e[KeyComparisonDimension] = KeyReceiverAgeGroup.String()
		default:
			e[KeyComparisonDimension] = GroupAgeGroup
		}
		return
	}
	assignDirectional(e, q, vals[0], KeySenderAgeGroup, KeyReceiverAgeGroup, KeyAgeGroup)
}

func (x *Extractor) extractDevicesAndNetworks(q string, e EntitySet) {
	devices := matchAll(q, x.dict.Devices)
	switch {
	case len(devices) >= 2:
		e[KeyComparisonDimension] = KeyDeviceType.String()
		e[KeyComparisonValues] = devices
	case len(devices) == 1:
		e[KeyDeviceType] = devices[0]
	}

	networks := matchAll(q, x.dict.Networks)
	switch {
	case len(networks) >= 2:
		e[KeyComparisonDimension] = KeyNetworkType.String()
		e[KeyComparisonValues] = networks
	case len(networks) == 1:
		e[KeyNetworkType] = networks[0]
	}
}

func (x *Extractor) extractTransactionType(q string, e EntitySet) {
	// Longest match wins so "bill payment" is not shadowed by "payment".
	best := ""
	for _, v := range x.dict.TransactionTypes {
		if containsWord(q, v) && len(v) > len(best) {
			best = v
		}
	}
	if best != "" {
		e[KeyTransactionType] = best
	}
}

func (x *Extractor) extractStatus(q string, e EntitySet) {
	// "failed" is a risk metric keyword, never a status filter; only
	// explicit successful/pending mentions filter on status.
	if containsWord(q, "successful") {
		e[KeyTransactionStatus] = "success"
	} else if containsWord(q, "pending") {
		e[KeyTransactionStatus] = "pending"
	}
}

func (x *Extractor) extractStructured(q string, e EntitySet) {
	if m := topNRe.FindStringSubmatch(q); m != nil {
		if n, ok := parseSmallNumber(m[1]); ok {
			e[KeyTopN] = n
		}
	}
	if m := bottomNRe.FindStringSubmatch(q); m != nil {
		if n, ok := parseSmallNumber(m[1]); ok {
			e[KeyBottomN] = n
		}
	}

	if m := hourAmPm.FindStringSubmatch(q); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h >= 1 && h <= 12 {
			if m[2] == "pm" && h != 12 {
				h += 12
			}
			if m[2] == "am" && h == 12 {
				h = 0
			}
			e[KeyHourOfDay] = h
		}
	} else if m := hourWord.FindStringSubmatch(q); m != nil {
		if h, err := strconv.Atoi(m[1]); err == nil && h >= 0 && h <= 23 {
			e[KeyHourOfDay] = h
		}
	}

	if m := dayRe.FindStringSubmatch(q); m != nil {
		days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
		for i, d := range days {
			if d == m[1] {
				e[KeyDayOfWeek] = i
				break
			}
		}
	}

	if strings.Contains(q, "weekend") {
		e[KeyIsWeekend] = true
	} else if strings.Contains(q, "weekday") {
		e[KeyIsWeekend] = false
	}

	for _, tr := range timeReferences {
		if strings.Contains(q, tr.pattern) {
			e[KeyTimeReference] = tr.label
			break
		}
	}
}

func (x *Extractor) extractMetric(q string, e EntitySet) {
	switch {
	case strings.Contains(q, "fraud rate"):
		e[KeyMetric] = MetricFraudRate
	case strings.Contains(q, "failure rate") || strings.Contains(q, "failed rate"):
		e[KeyMetric] = MetricFailureRate
	case strings.Contains(q, "how many") || strings.Contains(q, "count") ||
		strings.Contains(q, "number of") || strings.Contains(q, "volume") ||
		strings.Contains(q, "most transactions"):
		e[KeyMetric] = MetricCount
	case strings.Contains(q, "average") || strings.Contains(q, "avg") || strings.Contains(q, "mean"):
		e[KeyMetric] = MetricAvg
	case strings.Contains(q, "total") || strings.Contains(q, "sum") ||
		strings.Contains(q, "amount") || strings.Contains(q, "value") ||
		strings.Contains(q, "spend"):
		e[KeyMetric] = MetricAmount
	}
}

func (x *Extractor) extractGrouping(q string, e EntitySet) {
	groupingKey := KeySegmentBy
	if containsAny(q, comparisonCues) {
		groupingKey = KeyComparisonDimension
	} else if m, ok := e.String(KeyMetric); ok && (m == MetricFraudRate || m == MetricFailureRate) {
		// "fraud rate by banks" compares rates across groups rather than
		// narrating segments.
		groupingKey = KeyComparisonDimension
	}

	assign := func(dim string) {
		if groupingKey == KeyComparisonDimension {
			if prev, ok := e.String(KeyComparisonDimension); ok && prev != dim {
				delete(e, KeyComparisonValues)
			}
		}
		e[groupingKey] = dim
	}

	if m := byRe.FindStringSubmatch(q); m != nil {
		assign(x.groupDimension(strings.TrimSpace(m[1]), m[2], q))
		return
	}
	if m := wiseRe.FindStringSubmatch(q); m != nil {
		assign(x.groupDimension("", m[1], q))
		return
	}

	// A bare dimension token alongside a grouping cue is still a grouping
	// request ("compare states", "top banks").
	if _, _, ok := e.GroupingKey(); ok {
		return
	}
	if !containsAny(q, bareGroupingCues) {
		return
	}
	bare := []struct{ token, word string }{
		{"categories", "category"}, {"states", "state"}, {"banks", "bank"},
		{"age groups", "age"}, {"devices", "device"}, {"networks", "network"},
	}
	for _, b := range bare {
		if strings.Contains(q, b.token) {
			e[KeyComparisonDimension] = x.groupDimension("", b.word, q)
			return
		}
	}
}

// groupDimension maps a grouping word (and optional explicit direction
// prefix) to a dimension name. Direction-sensitive dimensions fall back to a
// cue scan over the whole query, then to the generic value that triggers a
// clarification turn.
func (x *Extractor) groupDimension(dirPrefix, word, q string) string {
	word = strings.TrimSuffix(word, "ies")
	if word == "categor" {
		word = "category"
	}

	switch word {
	case "category":
		return KeyMerchantCategory.String()
	case "device":
		return KeyDeviceType.String()
	case "network":
		return KeyNetworkType.String()
	case "hour":
		return "hour_of_day"
	case "day":
		return "day_of_week"
	case "type":
		return KeyTransactionType.String()
	case "status":
		return KeyTransactionStatus.String()
	case "state":
		switch queryDirection(dirPrefix, q) {
		case "sender":
			return KeySenderState.String()
		case "receiver":
			return KeyReceiverState.String()
		}
		return GroupState
	case "age", "age group":
		switch queryDirection(dirPrefix, q) {
		case "sender":
			return KeySenderAgeGroup.String()
		case "receiver":
			return KeyReceiverAgeGroup.String()
		}
		return GroupAgeGroup
	case "bank":
		switch queryDirection(dirPrefix, q) {
		case "sender":
			return KeySenderBank.String()
		case "receiver":
			return KeyReceiverBank.String()
		}
		return GroupBank
	}
	return word
}

func (x *Extractor) extractFuzzy(q string, e EntitySet) {
	claimed := strings.ToLower(strings.Join(allStringValues(e), " "))

	for _, token := range dedupe(tokenRe.FindAllString(q, -1)) {
		if fuzzyStopwords[token] || strings.Contains(claimed, token) {
			continue
		}
		if !e.Has(KeyMerchantCategory) && !e.Has(KeyComparisonValues) {
			if v, ok := x.dict.Match(token, x.dict.Categories, x.threshold); ok {
				e[KeyMerchantCategory] = v
				continue
			}
		}
		if !e.Has(KeySenderState) && !e.Has(KeyReceiverState) {
			if v, ok := x.dict.Match(token, x.dict.States, x.threshold); ok {
				if directionBefore(q, token) == "receiver" {
					e[KeyReceiverState] = v
				} else {
					e[KeySenderState] = v
				}
				continue
			}
		}
		if !e.Has(KeySenderBank) && !e.Has(KeyReceiverBank) && !e.Has(KeyBank) {
			if v, ok := x.dict.Match(token, x.dict.Banks, x.threshold); ok {
				// Cue adjacency is checked against the raw token, the
				// stored value is canonical.
				switch directionBefore(q, token) {
				case "sender":
					e[KeySenderBank] = v
				case "receiver":
					e[KeyReceiverBank] = v
				default:
					e[KeyBank] = v
				}
				continue
			}
		}
		if !e.Has(KeyDeviceType) {
			if v, ok := x.dict.Match(token, x.dict.Devices, x.threshold); ok {
				e[KeyDeviceType] = v
				continue
			}
		}
		if !e.Has(KeyNetworkType) {
			if v, ok := x.dict.Match(token, x.dict.Networks, x.threshold); ok {
				e[KeyNetworkType] = v
			}
		}
	}
}

// assignDirectional stores a value under the sender/receiver key when an
// adjacency cue is present, else under the generic key.
func assignDirectional(e EntitySet, q, value string, sender, receiver, generic EntityKey) {
	switch directionBefore(q, value) {
	case "sender":
		e[sender] = value
	case "receiver":
		e[receiver] = value
	default:
		e[generic] = value
	}
}

// directionBefore inspects the two words preceding the first occurrence of
// value in q for a sender/receiver cue.
func directionBefore(q, value string) string {
	idx := strings.Index(q, strings.ToLower(value))
	if idx < 0 {
		return ""
	}
	words := strings.Fields(q[:idx])
	limit := len(words) - 2
	if limit < 0 {
		limit = 0
	}
	for i := len(words) - 1; i >= limit; i-- {
		w := strings.Trim(words[i], ",.?!'s")
		if senderCues[w] {
			return "sender"
		}
		if receiverCues[w] {
			return "receiver"
		}
	}
	return ""
}

// anyDirection returns the first direction cue found next to any value.
func anyDirection(q string, values []string) string {
	for _, v := range values {
		if d := directionBefore(q, v); d != "" {
			return d
		}
	}
	return ""
}

// queryDirection resolves an explicit "by sender/receiver X" prefix, falling
// back to a whole-query cue scan.
func queryDirection(dirPrefix, q string) string {
	switch dirPrefix {
	case "sender":
		return "sender"
	case "receiver":
		return "receiver"
	}
	if strings.Contains(q, "sender") {
		return "sender"
	}
	if strings.Contains(q, "receiver") {
		return "receiver"
	}
	return ""
}

func matchAll(q string, list []string) []string {
	var out []string
	for _, v := range list {
		if containsWord(q, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsWord(q, value string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(value)) + `\b`)
	return re.MatchString(q)
}

func parseSmallNumber(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if n, ok := numberWords[s]; ok {
		return n, true
	}
	return 0, false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func allStringValues(e EntitySet) []string {
	var out []string
	for _, v := range e {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case []string:
			out = append(out, val...)
		}
	}
	return out
}

// String returns the key as a plain string; grouping dimensions are stored
// as strings inside entity values.
func (k EntityKey) String() string {
	return string(k)
}
