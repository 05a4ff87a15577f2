package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/insightx/insightx/internal/dataset"
	"github.com/insightx/insightx/internal/domain"
	"github.com/insightx/insightx/internal/nlp"
)

// NoMatchNote explains an empty result; builders never fail on zero rows.
const NoMatchNote = "No transactions found matching the criteria"

// Builder executes query plans against the dataset accessor. One builder
// per result shape, dispatched through a closed table.
type Builder struct {
	data     dataset.Accessor
	builders map[nlp.Intent]func(context.Context, nlp.EntitySet, string) (Result, error)
}

// NewBuilder creates a plan builder over a dataset accessor.
func NewBuilder(data dataset.Accessor) *Builder {
	b := &Builder{data: data}
	b.builders = map[nlp.Intent]func(context.Context, nlp.EntitySet, string) (Result, error){
		nlp.IntentDescriptive:  b.descriptive,
		nlp.IntentComparative:  b.comparative,
		nlp.IntentSegmentation: b.segmentation,
		nlp.IntentRisk:         b.risk,
	}
	return b
}

// Execute runs the plan for the given intent. Unknown intents fall back to
// descriptive.
func (b *Builder) Execute(ctx context.Context, intent nlp.Intent, e nlp.EntitySet, rawQuery string) (Result, error) {
	build, ok := b.builders[intent]
	if !ok {
		build = b.descriptive
	}
	return build(ctx, e, rawQuery)
}

// filterDimensions maps entity filter keys onto dataset dimensions in a
// fixed order. Generic bank/age mentions default to the sender side;
// receiver_state is absent because the dataset does not carry it.
var filterDimensions = []struct {
	key nlp.EntityKey
	dim string
}{
	{nlp.KeyMerchantCategory, domain.DimMerchantCategory},
	{nlp.KeySenderState, domain.DimSenderState},
	{nlp.KeySenderAgeGroup, domain.DimSenderAgeGroup},
	{nlp.KeyReceiverAgeGroup, domain.DimReceiverAgeGroup},
	{nlp.KeyAgeGroup, domain.DimSenderAgeGroup},
	{nlp.KeySenderBank, domain.DimSenderBank},
	{nlp.KeyReceiverBank, domain.DimReceiverBank},
	{nlp.KeyBank, domain.DimSenderBank},
	{nlp.KeyDeviceType, domain.DimDeviceType},
	{nlp.KeyNetworkType, domain.DimNetworkType},
	{nlp.KeyTransactionType, domain.DimTransactionType},
	{nlp.KeyTransactionStatus, domain.DimTransactionStatus},
}

// timeBuckets maps time-of-day references to inclusive hour ranges; night
// wraps past midnight.
var timeBuckets = map[string][2]int{
	"morning":   {6, 11},
	"afternoon": {12, 16},
	"evening":   {17, 20},
	"night":     {21, 5},
}

// predicates builds the AND-composed filter list from the entity set,
// skipping any excluded dimensions.
func predicates(e nlp.EntitySet, exclude map[string]bool) []dataset.Predicate {
	var preds []dataset.Predicate
	for _, fd := range filterDimensions {
		if exclude[fd.dim] {
			continue
		}
		if v, ok := e.String(fd.key); ok {
			preds = append(preds, dataset.Equal(fd.dim, v))
		}
	}

	if h, ok := e.Int(nlp.KeyHourOfDay); ok && !exclude[domain.DimHourOfDay] {
		preds = append(preds, dataset.Equal(domain.DimHourOfDay, strconv.Itoa(h)))
	}
	if d, ok := e.Int(nlp.KeyDayOfWeek); ok && !exclude[domain.DimDayOfWeek] {
		preds = append(preds, dataset.Equal(domain.DimDayOfWeek, strconv.Itoa(d)))
	}
	if w, ok := e.Bool(nlp.KeyIsWeekend); ok && !exclude[domain.DimIsWeekend] {
		preds = append(preds, dataset.Equal(domain.DimIsWeekend, strconv.FormatBool(w)))
	}
	if tr, ok := e.String(nlp.KeyTimeReference); ok && !exclude[domain.DimHourOfDay] {
		if bucket, isBucket := timeBuckets[tr]; isBucket {
			preds = append(preds, dataset.HourRange(bucket[0], bucket[1]))
		}
	}
	return preds
}

// groupingDimension resolves a grouping name from the entity layer into a
// dataset dimension. Generic names default to the sender side; this is a
// best-effort fallback, the resolver normally disambiguates before a plan
// runs.
func groupingDimension(name string) string {
	switch name {
	case nlp.GroupBank:
		return domain.DimSenderBank
	case nlp.GroupState, nlp.KeyReceiverState.String():
		return domain.DimSenderState
	case nlp.GroupAgeGroup:
		return domain.DimSenderAgeGroup
	}
	if domain.KnownDimension(name) {
		return name
	}
	return domain.DimDeviceType
}

func hasTimeKey(e nlp.EntitySet) bool {
	return e.Has(nlp.KeyTimeReference) || e.Has(nlp.KeyHourOfDay) ||
		e.Has(nlp.KeyDayOfWeek) || e.Has(nlp.KeyIsWeekend)
}

// descriptive computes summary statistics over the filtered rows.
func (b *Builder) descriptive(ctx context.Context, e nlp.EntitySet, _ string) (Result, error) {
	rows, err := b.data.Filter(ctx, predicates(e, nil))
	if err != nil {
		return nil, fmt.Errorf("descriptive analysis: %w", err)
	}

	if len(rows) == 0 {
		return &Descriptive{Insight: NoMatchNote, Note: NoMatchNote, Statistics: &Statistics{}}, nil
	}

	amounts := make([]float64, len(rows))
	var total float64
	var successes int64
	for i, t := range rows {
		amounts[i] = t.Amount
		total += t.Amount
		if strings.EqualFold(t.Status, domain.StatusSuccess) {
			successes++
		}
	}
	sorted := append([]float64(nil), amounts...)
	sort.Float64s(sorted)

	stats := &Statistics{
		TotalAmount:   total,
		AverageAmount: total / float64(len(rows)),
		MedianAmount:  median(sorted),
		MinAmount:     sorted[0],
		MaxAmount:     sorted[len(sorted)-1],
		StdDev:        stdDev(amounts, total/float64(len(rows))),
	}
	for i := 0; i < len(rows) && i < 5; i++ {
		stats.SampleTransactions = append(stats.SampleTransactions, SampleTransaction{
			TransactionID: rows[i].ID,
			Amount:        rows[i].Amount,
			Category:      rows[i].MerchantCategory,
			Timestamp:     rows[i].Timestamp,
		})
	}

	result := &Descriptive{
		Insight:     fmt.Sprintf("Analyzed %d transactions", len(rows)),
		TotalCount:  int64(len(rows)),
		Statistics:  stats,
		SuccessRate: float64(successes) / float64(len(rows)) * 100,
	}
	if hasTimeKey(e) {
		result.TimeBreakdown = timeBreakdown(rows)
	}
	return result, nil
}

func timeBreakdown(rows []domain.Transaction) *TimeBreakdown {
	var hourly [24]int64
	var weekday [7]int64
	out := &TimeBreakdown{}
	for _, t := range rows {
		if t.HourOfDay >= 0 && t.HourOfDay < 24 {
			hourly[t.HourOfDay]++
		}
		if t.DayOfWeek >= 0 && t.DayOfWeek < 7 {
			weekday[t.DayOfWeek]++
		}
		if t.IsWeekend {
			out.WeekendCount++
		} else {
			out.WeekdayCount++
		}
	}
	for h, c := range hourly {
		if c > 0 {
			out.Hourly = append(out.Hourly, HourBucket{Hour: h, Count: c})
		}
	}
	for d, c := range weekday {
		if c > 0 {
			out.Weekday = append(out.Weekday, WeekdayBucket{Day: domain.WeekdayName(d), Count: c})
		}
	}

	peaks := append([]HourBucket(nil), out.Hourly...)
	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Count > peaks[j].Count })
	if len(peaks) > 3 {
		peaks = peaks[:3]
	}
	out.PeakHours = peaks
	return out
}

// comparative groups by the comparison dimension and ranks groups by the
// requested metric.
func (b *Builder) comparative(ctx context.Context, e nlp.EntitySet, _ string) (Result, error) {
	topN, hasTopN := e.Int(nlp.KeyTopN)
	bottomN, hasBottomN := e.Int(nlp.KeyBottomN)

	var dim string
	explicit, hasExplicit := e.String(nlp.KeyComparisonDimension)
	switch {
	case hasTopN && e.Has(nlp.KeyMerchantCategory) && !hasExplicit:
		// "top N" next to a category mention means "top N categories":
		// the category filter is lifted into the grouping.
		dim = domain.DimMerchantCategory
		e = e.Clone()
		e[nlp.KeyMetric] = nlp.MetricCount
	case hasExplicit:
		dim = groupingDimension(explicit)
	case e.Has(nlp.KeyDeviceType):
		dim = domain.DimNetworkType
	default:
		dim = domain.DimDeviceType
	}

	groups, err := b.data.GroupBy(ctx, dim, predicates(e, map[string]bool{dim: true}))
	if err != nil {
		return nil, fmt.Errorf("comparative analysis: %w", err)
	}

	if values, ok := e.Strings(nlp.KeyComparisonValues); ok {
		groups = restrictGroups(groups, values)
	}

	metric, _ := e.String(nlp.KeyMetric)
	sortGroups(groups, metric, hasBottomN && !hasTopN)
	if hasTopN && len(groups) > topN {
		groups = groups[:topN]
	} else if hasBottomN && !hasTopN && len(groups) > bottomN {
		groups = groups[:bottomN]
	}

	result := &Comparative{
		Insight:       fmt.Sprintf("Compared across %s", dim),
		ComparisonKey: dim,
	}
	for _, g := range groups {
		result.Data = append(result.Data, GroupStat{
			Name:             g.Value,
			TransactionCount: g.Count,
			AverageAmount:    g.AvgAmount,
			TotalAmount:      g.TotalAmount,
			SuccessRate:      g.SuccessRate(),
		})
		result.TotalCount += g.Count
	}
	if len(result.Data) > 0 {
		result.BestPerformer = result.Data[0].Name
	} else {
		result.Note = NoMatchNote
	}
	return result, nil
}

func restrictGroups(groups []dataset.GroupRow, values []string) []dataset.GroupRow {
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[strings.ToLower(v)] = true
	}
	var out []dataset.GroupRow
	for _, g := range groups {
		if allowed[strings.ToLower(g.Value)] {
			out = append(out, g)
		}
	}
	return out
}

// sortGroups orders groups by the requested metric, descending by default,
// ascending for bottom-N requests.
func sortGroups(groups []dataset.GroupRow, metric string, ascending bool) {
	value := func(g dataset.GroupRow) float64 {
		switch metric {
		case nlp.MetricCount:
			return float64(g.Count)
		case nlp.MetricAmount:
			return g.TotalAmount
		default:
			return g.AvgAmount
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if ascending {
			return value(groups[i]) < value(groups[j])
		}
		return value(groups[i]) > value(groups[j])
	})
}

// segmentation groups by the segmentation dimension and ranks by volume.
func (b *Builder) segmentation(ctx context.Context, e nlp.EntitySet, _ string) (Result, error) {
	dim := domain.DimSenderAgeGroup
	if v, ok := e.String(nlp.KeySegmentBy); ok {
		dim = groupingDimension(v)
	}

	groups, err := b.data.GroupBy(ctx, dim, predicates(e, map[string]bool{dim: true}))
	if err != nil {
		return nil, fmt.Errorf("segmentation analysis: %w", err)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })

	result := &Segmentation{
		Insight:    fmt.Sprintf("Segmented users by %s", dim),
		SegmentKey: dim,
	}
	for _, g := range groups {
		result.Segments = append(result.Segments, Segment{
			Segment:                 g.Value,
			TransactionCount:        g.Count,
			AverageTransactionValue: g.AvgAmount,
			TotalAmount:             g.TotalAmount,
		})
		result.TotalCount += g.Count
	}
	if len(result.Segments) > 0 {
		result.TopSegment = result.Segments[0].Segment
	} else {
		result.Note = NoMatchNote
	}
	return result, nil
}

// risk computes fraud and failure metrics, plus conditional hotspot
// rankings and a per-group breakdown on explicit request.
func (b *Builder) risk(ctx context.Context, e nlp.EntitySet, rawQuery string) (Result, error) {
	preds := predicates(e, nil)

	// One status grouping yields total, fraud and failure counts together.
	statusGroups, err := b.data.GroupBy(ctx, domain.DimTransactionStatus, preds)
	if err != nil {
		return nil, fmt.Errorf("risk analysis: %w", err)
	}

	result := &Risk{Insight: "Risk analysis summary"}
	for _, g := range statusGroups {
		result.TotalTransactions += g.Count
		result.FraudCount += g.FraudCount
		if strings.EqualFold(g.Value, domain.StatusFailed) {
			result.FailedCount += g.Count
		}
	}
	result.TotalCount = result.TotalTransactions

	if result.TotalTransactions == 0 {
		result.Note = NoMatchNote
		result.RiskLevel = RiskLevelLow
		return result, nil
	}

	result.FraudRatePercent = float64(result.FraudCount) / float64(result.TotalTransactions) * 100
	result.FailureRatePercent = float64(result.FailedCount) / float64(result.TotalTransactions) * 100
	switch {
	case result.FraudRatePercent > 5:
		result.RiskLevel = RiskLevelHigh
	case result.FraudRatePercent > 2:
		result.RiskLevel = RiskLevelMedium
	default:
		result.RiskLevel = RiskLevelLow
	}

	categoryGroups, err := b.data.GroupBy(ctx, domain.DimMerchantCategory, preds)
	if err != nil {
		return nil, fmt.Errorf("risk analysis: fraud by category: %w", err)
	}
	for _, g := range categoryGroups {
		if g.FraudCount > 0 {
			result.FraudByCategory = append(result.FraudByCategory, CategoryFraud{
				Category:   g.Value,
				FraudCount: g.FraudCount,
			})
		}
	}
	sort.SliceStable(result.FraudByCategory, func(i, j int) bool {
		return result.FraudByCategory[i].FraudCount > result.FraudByCategory[j].FraudCount
	})
	// "top 3 fraud categories" bounds the per-category list.
	if n, ok := e.Int(nlp.KeyTopN); ok && len(result.FraudByCategory) > n {
		result.FraudByCategory = result.FraudByCategory[:n]
	}

	q := strings.ToLower(rawQuery)
	if hasRankingCue(q) {
		if err := b.attachHotspots(ctx, result, categoryGroups, preds, failureCue(q)); err != nil {
			return nil, err
		}
	}

	if explicit, ok := e.String(nlp.KeyComparisonDimension); ok {
		dim := groupingDimension(explicit)
		groups := categoryGroups
		if dim != domain.DimMerchantCategory {
			groups, err = b.data.GroupBy(ctx, dim, predicates(e, map[string]bool{dim: true}))
			if err != nil {
				return nil, fmt.Errorf("risk analysis: group breakdown: %w", err)
			}
		}
		for _, g := range groups {
			result.Groups = append(result.Groups, RiskGroup{
				Group:       g.Value,
				Total:       g.Count,
				FraudCount:  g.FraudCount,
				FraudRate:   g.FraudRate(),
				FailedCount: g.FailedCount,
				FailureRate: g.FailureRate(),
			})
		}
		sort.SliceStable(result.Groups, func(i, j int) bool {
			return result.Groups[i].FraudRate > result.Groups[j].FraudRate
		})
	}

	return result, nil
}

func hasRankingCue(q string) bool {
	return strings.Contains(q, "top") || strings.Contains(q, "highest") || strings.Contains(q, "worst")
}

func failureCue(q string) bool {
	return strings.Contains(q, "failure") || strings.Contains(q, "failed")
}

// attachHotspots populates the top-5 rate rankings across category, state
// and bank, for the metric implied by the cue only.
func (b *Builder) attachHotspots(ctx context.Context, result *Risk, categoryGroups []dataset.GroupRow, preds []dataset.Predicate, failure bool) error {
	stateGroups, err := b.data.GroupBy(ctx, domain.DimSenderState, preds)
	if err != nil {
		return fmt.Errorf("risk analysis: state hotspots: %w", err)
	}
	bankGroups, err := b.data.GroupBy(ctx, domain.DimSenderBank, preds)
	if err != nil {
		return fmt.Errorf("risk analysis: bank hotspots: %w", err)
	}

	if failure {
		result.FailureHotspotsByCategory = topHotspots(categoryGroups, true)
		result.FailureHotspotsByState = topHotspots(stateGroups, true)
		result.FailureHotspotsByBank = topHotspots(bankGroups, true)
	} else {
		result.FraudHotspotsByCategory = topHotspots(categoryGroups, false)
		result.FraudHotspotsByState = topHotspots(stateGroups, false)
		result.FraudHotspotsByBank = topHotspots(bankGroups, false)
	}
	return nil
}

func topHotspots(groups []dataset.GroupRow, failure bool) []Hotspot {
	var out []Hotspot
	for _, g := range groups {
		if g.Count == 0 {
			continue
		}
		h := Hotspot{Name: g.Value, Total: g.Count}
		if failure {
			h.Rate = g.FailureRate()
			h.Count = g.FailedCount
		} else {
			h.Rate = g.FraudRate()
			h.Count = g.FraudCount
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rate > out[j].Rate })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample standard deviation; 0 for fewer than two values.
func stdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
