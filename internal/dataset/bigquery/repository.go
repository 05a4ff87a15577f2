// Package bigquery implements the dataset accessor on a BigQuery table, for
// deployments where the transaction export lives in the warehouse instead of
// process memory. Aggregation is pushed down; the engine sees the same
// filter/group contract as the in-memory store.
package bigquery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/insightx/insightx/internal/dataset"
	"github.com/insightx/insightx/internal/domain"
)

// Repository is a read-only accessor over one transactions table.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	table     string
}

var _ dataset.Accessor = (*Repository)(nil)

// NewRepository creates a BigQuery-backed accessor and owns the client.
func NewRepository(ctx context.Context, projectID, datasetID, table string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery client: %w", err)
	}
	return NewRepositoryWithClient(client, projectID, datasetID, table), nil
}

// NewRepositoryWithClient creates an accessor over a caller-owned client.
func NewRepositoryWithClient(client *bigquery.Client, projectID, datasetID, table string) *Repository {
	return &Repository{client: client, projectID: projectID, datasetID: datasetID, table: table}
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.datasetID, r.table)
}

// transactionRow mirrors the warehouse schema.
type transactionRow struct {
	TransactionID     string    `bigquery:"transaction_id"`
	Timestamp         time.Time `bigquery:"timestamp"`
	TransactionType   string    `bigquery:"transaction_type"`
	MerchantCategory  string    `bigquery:"merchant_category"`
	Amount            float64   `bigquery:"amount"`
	TransactionStatus string    `bigquery:"transaction_status"`
	SenderAgeGroup    string    `bigquery:"sender_age_group"`
	SenderState       string    `bigquery:"sender_state"`
	SenderBank        string    `bigquery:"sender_bank"`
	ReceiverAgeGroup  string    `bigquery:"receiver_age_group"`
	ReceiverBank      string    `bigquery:"receiver_bank"`
	DeviceType        string    `bigquery:"device_type"`
	NetworkType       string    `bigquery:"network_type"`
	FraudFlag         bool      `bigquery:"fraud_flag"`
	HourOfDay         int64     `bigquery:"hour_of_day"`
	DayOfWeek         int64     `bigquery:"day_of_week"`
	IsWeekend         bool      `bigquery:"is_weekend"`
}

func (t *transactionRow) domain() domain.Transaction {
	return domain.Transaction{
		ID:               t.TransactionID,
		Timestamp:        t.Timestamp,
		Type:             t.TransactionType,
		MerchantCategory: t.MerchantCategory,
		Amount:           t.Amount,
		Status:           t.TransactionStatus,
		SenderAgeGroup:   t.SenderAgeGroup,
		SenderState:      t.SenderState,
		SenderBank:       t.SenderBank,
		ReceiverAgeGroup: t.ReceiverAgeGroup,
		ReceiverBank:     t.ReceiverBank,
		DeviceType:       t.DeviceType,
		NetworkType:      t.NetworkType,
		FraudFlag:        t.FraudFlag,
		HourOfDay:        int(t.HourOfDay),
		DayOfWeek:        int(t.DayOfWeek),
		IsWeekend:        t.IsWeekend,
	}
}

// intDimensions are stored as INT64/BOOL instead of STRING.
var intDimensions = map[string]bool{
	domain.DimHourOfDay: true,
	domain.DimDayOfWeek: true,
}

// whereClause renders predicates as a parameterized WHERE body. Dimension
// names are validated against the closed vocabulary, never interpolated from
// user input.
func whereClause(predicates []dataset.Predicate) (string, []bigquery.QueryParameter, error) {
	var conds []string
	var params []bigquery.QueryParameter
	param := func(v interface{}) string {
		name := fmt.Sprintf("p%d", len(params))
		params = append(params, bigquery.QueryParameter{Name: name, Value: v})
		return "@" + name
	}

	for _, p := range predicates {
		switch p.Op {
		case dataset.OpEqual:
			if !domain.KnownDimension(p.Dimension) {
				return "", nil, fmt.Errorf("unknown dimension %q", p.Dimension)
			}
			switch {
			case intDimensions[p.Dimension]:
				n, err := strconv.Atoi(p.Values[0])
				if err != nil {
					return "", nil, fmt.Errorf("dimension %s: %w", p.Dimension, err)
				}
				conds = append(conds, fmt.Sprintf("%s = %s", p.Dimension, param(n)))
			case p.Dimension == domain.DimIsWeekend:
				conds = append(conds, fmt.Sprintf("%s = %s", p.Dimension, param(p.Values[0] == "true")))
			default:
				conds = append(conds, fmt.Sprintf("LOWER(%s) = LOWER(%s)", p.Dimension, param(p.Values[0])))
			}
		case dataset.OpIn:
			if !domain.KnownDimension(p.Dimension) {
				return "", nil, fmt.Errorf("unknown dimension %q", p.Dimension)
			}
			lowered := make([]string, len(p.Values))
			for i, v := range p.Values {
				lowered[i] = strings.ToLower(v)
			}
			conds = append(conds, fmt.Sprintf("LOWER(%s) IN UNNEST(%s)", p.Dimension, param(lowered)))
		case dataset.OpHourRange:
			if p.Min > p.Max {
				// Wraps past midnight, e.g. the 21-5 night bucket.
				conds = append(conds, fmt.Sprintf("(hour_of_day >= %s OR hour_of_day <= %s)",
					param(p.Min), param(p.Max)))
			} else {
				conds = append(conds, fmt.Sprintf("hour_of_day BETWEEN %s AND %s",
					param(p.Min), param(p.Max)))
			}
		case dataset.OpFraud:
			conds = append(conds, fmt.Sprintf("fraud_flag = %s", param(p.Flag)))
		default:
			return "", nil, fmt.Errorf("unknown predicate op %q", p.Op)
		}
	}

	if len(conds) == 0 {
		return "TRUE", params, nil
	}
	return strings.Join(conds, " AND "), params, nil
}

// Filter returns the transactions matching all predicates.
func (r *Repository) Filter(ctx context.Context, predicates []dataset.Predicate) ([]domain.Transaction, error) {
	where, params, err := whereClause(predicates)
	if err != nil {
		return nil, fmt.Errorf("Filter: %w", err)
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			transaction_id, timestamp, transaction_type, merchant_category,
			amount, transaction_status, sender_age_group, sender_state,
			sender_bank, receiver_age_group, receiver_bank, device_type,
			network_type, fraud_flag, hour_of_day, day_of_week, is_weekend
		FROM %s
		WHERE %s
		ORDER BY timestamp
	`, r.tableRef(), where))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Filter: query read: %w", err)
	}

	var rows []domain.Transaction
	for {
		var row transactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Filter: iter next: %w", err)
		}
		rows = append(rows, row.domain())
	}
	return rows, nil
}

type groupRow struct {
	Value        string  `bigquery:"value"`
	Count        int64   `bigquery:"count"`
	TotalAmount  float64 `bigquery:"total_amount"`
	AvgAmount    float64 `bigquery:"avg_amount"`
	SuccessCount int64   `bigquery:"success_count"`
	FraudCount   int64   `bigquery:"fraud_count"`
	FailedCount  int64   `bigquery:"failed_count"`
}

// GroupBy groups matching transactions by one dimension with the full
// aggregate set per group.
func (r *Repository) GroupBy(ctx context.Context, dimension string, predicates []dataset.Predicate) ([]dataset.GroupRow, error) {
	if !domain.KnownDimension(dimension) {
		return nil, fmt.Errorf("GroupBy: unknown dimension %q", dimension)
	}
	where, params, err := whereClause(predicates)
	if err != nil {
		return nil, fmt.Errorf("GroupBy: %w", err)
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT
			CAST(%s AS STRING) AS value,
			COUNT(*) AS count,
			SUM(amount) AS total_amount,
			AVG(amount) AS avg_amount,
			COUNTIF(LOWER(transaction_status) = 'success') AS success_count,
			COUNTIF(fraud_flag) AS fraud_count,
			COUNTIF(LOWER(transaction_status) = 'failed') AS failed_count
		FROM %s
		WHERE %s
		GROUP BY value
		ORDER BY count DESC
	`, dimension, r.tableRef(), where))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GroupBy: query read: %w", err)
	}

	var groups []dataset.GroupRow
	for {
		var row groupRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("GroupBy: iter next: %w", err)
		}
		groups = append(groups, dataset.GroupRow(row))
	}
	return groups, nil
}
