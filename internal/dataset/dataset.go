// Package dataset defines the read-only accessor contract the analytics
// engine queries through. Implementations must AND-combine predicates and
// compare status values case-insensitively; the engine issues no writes.
package dataset

import (
	"context"

	"github.com/insightx/insightx/internal/domain"
)

// PredicateOp selects how a predicate matches a dimension value.
type PredicateOp string

const (
	// OpEqual matches a single value, case-insensitively for strings.
	OpEqual PredicateOp = "eq"
	// OpIn matches any of a set of values.
	OpIn PredicateOp = "in"
	// OpHourRange matches hour_of_day in [Min, Max]. Min > Max wraps past
	// midnight (e.g. the 21-5 night bucket).
	OpHourRange PredicateOp = "hour_range"
	// OpFraud matches the fraud flag.
	OpFraud PredicateOp = "fraud"
)

// Predicate is one AND-combined filter term.
type Predicate struct {
	Dimension string
	Op        PredicateOp
	Values    []string // OpEqual uses Values[0]; OpIn uses all
	Min, Max  int      // OpHourRange bounds, inclusive
	Flag      bool     // OpFraud value
}

// Equal builds an equality predicate on a dimension.
func Equal(dimension, value string) Predicate {
	return Predicate{Dimension: dimension, Op: OpEqual, Values: []string{value}}
}

// In builds a membership predicate on a dimension.
func In(dimension string, values []string) Predicate {
	return Predicate{Dimension: dimension, Op: OpIn, Values: values}
}

// HourRange builds an inclusive hour_of_day range predicate.
func HourRange(min, max int) Predicate {
	return Predicate{Dimension: domain.DimHourOfDay, Op: OpHourRange, Min: min, Max: max}
}

// FraudOnly builds a fraud-flag predicate.
func FraudOnly(flag bool) Predicate {
	return Predicate{Op: OpFraud, Flag: flag}
}

// GroupRow is one aggregated group. Every row carries the full aggregate
// set so a single GroupBy call per dimension serves counts, averages,
// success rates and fraud/failure rates alike.
type GroupRow struct {
	Value        string  `json:"value"`
	Count        int64   `json:"count"`
	TotalAmount  float64 `json:"total_amount"`
	AvgAmount    float64 `json:"avg_amount"`
	SuccessCount int64   `json:"success_count"`
	FraudCount   int64   `json:"fraud_count"`
	FailedCount  int64   `json:"failed_count"`
}

// SuccessRate returns the percentage of successful transactions in the group.
func (g GroupRow) SuccessRate() float64 {
	if g.Count == 0 {
		return 0
	}
	return float64(g.SuccessCount) / float64(g.Count) * 100
}

// FraudRate returns the percentage of fraud-flagged transactions in the group.
func (g GroupRow) FraudRate() float64 {
	if g.Count == 0 {
		return 0
	}
	return float64(g.FraudCount) / float64(g.Count) * 100
}

// FailureRate returns the percentage of failed transactions in the group.
func (g GroupRow) FailureRate() float64 {
	if g.Count == 0 {
		return 0
	}
	return float64(g.FailedCount) / float64(g.Count) * 100
}

// Accessor exposes the dataset through filter/group/aggregate primitives.
type Accessor interface {
	// Filter returns the transactions matching all predicates.
	Filter(ctx context.Context, predicates []Predicate) ([]domain.Transaction, error)

	// GroupBy groups the transactions matching all predicates by one
	// dimension and aggregates each group.
	GroupBy(ctx context.Context, dimension string, predicates []Predicate) ([]GroupRow, error)
}
