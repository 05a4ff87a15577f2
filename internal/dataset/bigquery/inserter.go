package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/insightx/insightx/internal/domain"
)

// insertBatchSize bounds one streaming insert request.
const insertBatchSize = 500

// InsertTransactions streams domain transactions into the repository's
// table, batched for the streaming insert quota.
func (r *Repository) InsertTransactions(ctx context.Context, rows []domain.Transaction) error {
	if len(rows) == 0 {
		return nil
	}

	table := r.client.DatasetInProject(r.projectID, r.datasetID).Table(r.table)
	inserter := table.Inserter()

	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := make([]*transactionRow, 0, end-start)
		for i := start; i < end; i++ {
			row := rowFromDomain(rows[i])
			batch = append(batch, &row)
		}
		if err := inserter.Put(ctx, batch); err != nil {
			return fmt.Errorf("InsertTransactions: inserting rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func rowFromDomain(t domain.Transaction) transactionRow {
	return transactionRow{
		TransactionID:     t.ID,
		Timestamp:         t.Timestamp,
		TransactionType:   t.Type,
		MerchantCategory:  t.MerchantCategory,
		Amount:            t.Amount,
		TransactionStatus: t.Status,
		SenderAgeGroup:    t.SenderAgeGroup,
		SenderState:       t.SenderState,
		SenderBank:        t.SenderBank,
		ReceiverAgeGroup:  t.ReceiverAgeGroup,
		ReceiverBank:      t.ReceiverBank,
		DeviceType:        t.DeviceType,
		NetworkType:       t.NetworkType,
		FraudFlag:         t.FraudFlag,
		HourOfDay:         int64(t.HourOfDay),
		DayOfWeek:         int64(t.DayOfWeek),
		IsWeekend:         t.IsWeekend,
	}
}

// EnsureTable creates the transactions table from the row schema when it
// does not exist yet.
func (r *Repository) EnsureTable(ctx context.Context) error {
	schema, err := bigquery.InferSchema(transactionRow{})
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}

	table := r.client.DatasetInProject(r.projectID, r.datasetID).Table(r.table)
	if _, err := table.Metadata(ctx); err == nil {
		return nil
	}
	if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("EnsureTable: create table: %w", err)
	}
	return nil
}
