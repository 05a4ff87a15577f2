// Package analysis turns a resolved intent and entity set into one of four
// structured results by executing filter/group/aggregate plans against the
// dataset accessor.
package analysis

import (
	"time"

	"github.com/insightx/insightx/internal/nlp"
)

// Result is the discriminated union over the four analysis shapes. The
// interface is sealed so the dispatch set stays closed.
type Result interface {
	Kind() nlp.Intent
	Summary() string
	RowCount() int64
	sealed()
}

// SampleTransaction is one bounded sample row in a descriptive result.
type SampleTransaction struct {
	TransactionID string    `json:"transaction_id"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
}

// Statistics carries the descriptive aggregates.
type Statistics struct {
	TotalAmount        float64             `json:"total_amount"`
	AverageAmount      float64             `json:"average_amount"`
	MedianAmount       float64             `json:"median_amount"`
	MinAmount          float64             `json:"min_amount"`
	MaxAmount          float64             `json:"max_amount"`
	StdDev             float64             `json:"std_dev"`
	SampleTransactions []SampleTransaction `json:"sample_transactions"`
}

// HourBucket is a per-hour transaction count.
type HourBucket struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// WeekdayBucket is a per-weekday transaction count.
type WeekdayBucket struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// TimeBreakdown is attached to descriptive results when the query carried
// any time-related entity.
type TimeBreakdown struct {
	Hourly       []HourBucket    `json:"hourly"`
	Weekday      []WeekdayBucket `json:"weekday"`
	WeekendCount int64           `json:"weekend_count"`
	WeekdayCount int64           `json:"weekday_count"`
	PeakHours    []HourBucket    `json:"peak_hours"`
}

// Descriptive is the summary-statistics result shape.
type Descriptive struct {
	Insight       string         `json:"insight"`
	TotalCount    int64          `json:"total_count"`
	Statistics    *Statistics    `json:"statistics"`
	SuccessRate   float64        `json:"success_rate"`
	TimeBreakdown *TimeBreakdown `json:"time_breakdown,omitempty"`
	Note          string         `json:"note,omitempty"`
}

func (*Descriptive) Kind() nlp.Intent  { return nlp.IntentDescriptive }
func (d *Descriptive) Summary() string { return d.Insight }
func (d *Descriptive) RowCount() int64 { return d.TotalCount }
func (*Descriptive) sealed()           {}

// GroupStat is one compared group.
type GroupStat struct {
	Name             string  `json:"category"`
	TransactionCount int64   `json:"transaction_count"`
	AverageAmount    float64 `json:"average_amount"`
	TotalAmount      float64 `json:"total_amount"`
	SuccessRate      float64 `json:"success_rate"`
}

// Comparative is the grouped-comparison result shape.
type Comparative struct {
	Insight       string      `json:"insight"`
	ComparisonKey string      `json:"comparison_key"`
	Data          []GroupStat `json:"data"`
	BestPerformer string      `json:"best_performer,omitempty"`
	TotalCount    int64       `json:"total_count"`
	Note          string      `json:"note,omitempty"`
}

func (*Comparative) Kind() nlp.Intent  { return nlp.IntentComparative }
func (c *Comparative) Summary() string { return c.Insight }
func (c *Comparative) RowCount() int64 { return c.TotalCount }
func (*Comparative) sealed()           {}

// Segment is one segmentation bucket.
type Segment struct {
	Segment                 string  `json:"segment"`
	TransactionCount        int64   `json:"transaction_count"`
	AverageTransactionValue float64 `json:"average_transaction_value"`
	TotalAmount             float64 `json:"total_amount"`
}

// Segmentation is the per-segment breakdown result shape.
type Segmentation struct {
	Insight    string    `json:"insight"`
	SegmentKey string    `json:"segment_key"`
	Segments   []Segment `json:"segments"`
	TopSegment string    `json:"top_segment,omitempty"`
	TotalCount int64     `json:"total_count"`
	Note       string    `json:"note,omitempty"`
}

func (*Segmentation) Kind() nlp.Intent  { return nlp.IntentSegmentation }
func (s *Segmentation) Summary() string { return s.Insight }
func (s *Segmentation) RowCount() int64 { return s.TotalCount }
func (*Segmentation) sealed()           {}

// CategoryFraud is a fraud count for one merchant category.
type CategoryFraud struct {
	Category   string `json:"category"`
	FraudCount int64  `json:"fraud_count"`
}

// Hotspot is one top-ranked group by fraud or failure rate, returned only on
// explicit request.
type Hotspot struct {
	Name  string  `json:"name"`
	Rate  float64 `json:"rate_percent"`
	Count int64   `json:"count"`
	Total int64   `json:"total"`
}

// RiskGroup is one row of the flat per-group risk breakdown.
type RiskGroup struct {
	Group       string  `json:"group"`
	Total       int64   `json:"total"`
	FraudCount  int64   `json:"fraud_count"`
	FraudRate   float64 `json:"fraud_rate"`
	FailedCount int64   `json:"failed_count"`
	FailureRate float64 `json:"failure_rate"`
}

// Risk levels derived from the fraud rate.
const (
	RiskLevelHigh   = "high"
	RiskLevelMedium = "medium"
	RiskLevelLow    = "low"
)

// Risk is the fraud/failure result shape. Hotspot lists are nil unless the
// query carried an explicit ranking cue, and only the lists matching the
// cue's metric are populated.
type Risk struct {
	Insight            string          `json:"insight"`
	TotalTransactions  int64           `json:"total_transactions"`
	TotalCount         int64           `json:"total_count"`
	FraudCount         int64           `json:"fraud_count"`
	FraudRatePercent   float64         `json:"fraud_rate_percent"`
	FailedCount        int64           `json:"failed_count"`
	FailureRatePercent float64         `json:"failure_rate_percent"`
	RiskLevel          string          `json:"risk_level"`
	FraudByCategory    []CategoryFraud `json:"fraud_by_category"`

	FraudHotspotsByCategory   []Hotspot `json:"fraud_hotspots_by_category,omitempty"`
	FraudHotspotsByState      []Hotspot `json:"fraud_hotspots_by_state,omitempty"`
	FraudHotspotsByBank       []Hotspot `json:"fraud_hotspots_by_bank,omitempty"`
	FailureHotspotsByCategory []Hotspot `json:"failure_hotspots_by_category,omitempty"`
	FailureHotspotsByState    []Hotspot `json:"failure_hotspots_by_state,omitempty"`
	FailureHotspotsByBank     []Hotspot `json:"failure_hotspots_by_bank,omitempty"`

	Groups []RiskGroup `json:"groups,omitempty"`
	Note   string      `json:"note,omitempty"`
}

func (*Risk) Kind() nlp.Intent  { return nlp.IntentRisk }
func (r *Risk) Summary() string { return r.Insight }
func (r *Risk) RowCount() int64 { return r.TotalCount }
func (*Risk) sealed()           {}
