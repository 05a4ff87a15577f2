// Package memory provides the default in-memory dataset accessor. The row
// slice is immutable after construction, so the store is safe for concurrent
// use without locking.
package memory

import (
	"context"
	"strings"

	"github.com/insightx/insightx/internal/dataset"
	"github.com/insightx/insightx/internal/domain"
)

// Store holds the full transaction dataset in memory.
type Store struct {
	rows []domain.Transaction
}

// NewStore creates an accessor over the given rows. The caller must not
// mutate the slice afterwards.
func NewStore(rows []domain.Transaction) *Store {
	return &Store{rows: rows}
}

// Len returns the number of rows in the dataset.
func (s *Store) Len() int {
	return len(s.rows)
}

// Filter implements the Accessor interface with a single pass over the
// dataset. Predicates are AND-combined; string comparison is
// case-insensitive.
func (s *Store) Filter(ctx context.Context, predicates []dataset.Predicate) ([]domain.Transaction, error) {
	matchers := compileMatchers(predicates)

	var out []domain.Transaction
	for i := range s.rows {
		if matchesAll(&s.rows[i], matchers) {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

// GroupBy implements the Accessor interface: one pass to filter and bucket,
// aggregates computed per bucket.
func (s *Store) GroupBy(ctx context.Context, dimension string, predicates []dataset.Predicate) ([]dataset.GroupRow, error) {
	matchers := compileMatchers(predicates)

	grouped := make(map[string]*dataset.GroupRow)
	order := make([]string, 0)

	for i := range s.rows {
		t := &s.rows[i]
		if !matchesAll(t, matchers) {
			continue
		}
		key, ok := domain.DimensionValue(t, dimension)
		if !ok {
			continue
		}
		row, exists := grouped[key]
		if !exists {
			row = &dataset.GroupRow{Value: key}
			grouped[key] = row
			order = append(order, key)
		}
		row.Count++
		row.TotalAmount += t.Amount
		if strings.EqualFold(t.Status, domain.StatusSuccess) {
			row.SuccessCount++
		}
		if strings.EqualFold(t.Status, domain.StatusFailed) {
			row.FailedCount++
		}
		if t.FraudFlag {
			row.FraudCount++
		}
	}

	out := make([]dataset.GroupRow, 0, len(order))
	for _, key := range order {
		row := grouped[key]
		if row.Count > 0 {
			row.AvgAmount = row.TotalAmount / float64(row.Count)
		}
		out = append(out, *row)
	}
	return out, nil
}

type matcher func(*domain.Transaction) bool

// compileMatchers pre-builds lowercase lookup sets so the row loop does no
// per-row allocation.
func compileMatchers(predicates []dataset.Predicate) []matcher {
	matchers := make([]matcher, 0, len(predicates))
	for _, p := range predicates {
		p := p
		switch p.Op {
		case dataset.OpEqual, dataset.OpIn:
			set := toLowerSet(p.Values)
			dim := p.Dimension
			matchers = append(matchers, func(t *domain.Transaction) bool {
				val, ok := domain.DimensionValue(t, dim)
				if !ok {
					return false
				}
				return set[strings.ToLower(val)]
			})
		case dataset.OpHourRange:
			matchers = append(matchers, func(t *domain.Transaction) bool {
				if p.Min <= p.Max {
					return t.HourOfDay >= p.Min && t.HourOfDay <= p.Max
				}
				// Wrapping bucket, e.g. night 21-5.
				return t.HourOfDay >= p.Min || t.HourOfDay <= p.Max
			})
		case dataset.OpFraud:
			matchers = append(matchers, func(t *domain.Transaction) bool {
				return t.FraudFlag == p.Flag
			})
		}
	}
	return matchers
}

func matchesAll(t *domain.Transaction, matchers []matcher) bool {
	for _, m := range matchers {
		if !m(t) {
			return false
		}
	}
	return true
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// Ensure Store implements the Accessor interface.
var _ dataset.Accessor = (*Store)(nil)
