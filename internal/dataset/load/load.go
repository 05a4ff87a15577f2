// Package load reads the transaction dataset from CSV (local or GCS) or
// generates a synthetic one. Malformed rows are skipped and counted, never
// fatal: the export the dataset comes from is known to carry irregular
// column names and mixed encodings.
package load

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/insightx/insightx/internal/domain"
)

// CSVLoader decodes transaction CSV exports.
type CSVLoader struct {
	log zerolog.Logger
}

// NewCSVLoader creates a CSV loader.
func NewCSVLoader(log zerolog.Logger) *CSVLoader {
	return &CSVLoader{log: log}
}

// Column names as they appear in the export. Some carry spaces or units.
const (
	colTransactionID = "transaction id"
	colTimestamp     = "timestamp"
	colType          = "transaction type"
	colCategory      = "merchant_category"
	colAmountINR     = "amount (inr)"
	colAmount        = "amount"
	colStatus        = "transaction_status"
	colSenderAge     = "sender_age_group"
	colSenderState   = "sender_state"
	colSenderBank    = "sender_bank"
	colReceiverAge   = "receiver_age_group"
	colReceiverBank  = "receiver_bank"
	colDevice        = "device_type"
	colNetwork       = "network_type"
	colFraudFlag     = "fraud_flag"
	colHourOfDay     = "hour_of_day"
	colDayOfWeek     = "day_of_week"
	colIsWeekend     = "is_weekend"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var dayNumbers = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// FromFile reads transactions from a local CSV file.
func (l *CSVLoader) FromFile(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()
	return l.FromReader(f)
}

// FromReader decodes transactions from CSV data. The first record is the
// header; unknown columns are ignored, rows with unparseable required fields
// are skipped.
func (l *CSVLoader) FromReader(r io.Reader) ([]domain.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var rows []domain.Transaction
	var skipped int
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		t, err := decodeRow(cols, record)
		if err != nil {
			l.log.Debug().Err(err).Int("line", line).Msg("skipping malformed row")
			skipped++
			continue
		}
		rows = append(rows, t)
	}

	if skipped > 0 {
		l.log.Warn().Int("skipped", skipped).Int("loaded", len(rows)).Msg("dataset rows skipped")
	} else {
		l.log.Info().Int("loaded", len(rows)).Msg("dataset loaded")
	}
	return rows, nil
}

func decodeRow(cols map[string]int, record []string) (domain.Transaction, error) {
	field := func(name, fallback string) string {
		if i, ok := cols[name]; ok && i < len(record) {
			if v := strings.TrimSpace(record[i]); v != "" {
				return v
			}
		}
		return fallback
	}

	amountStr := field(colAmountINR, "")
	if amountStr == "" {
		amountStr = field(colAmount, "0")
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount %q: %w", amountStr, err)
	}

	ts, err := parseTimestamp(field(colTimestamp, ""))
	if err != nil {
		return domain.Transaction{}, err
	}

	hour, err := strconv.Atoi(field(colHourOfDay, strconv.Itoa(ts.Hour())))
	if err != nil || hour < 0 || hour > 23 {
		return domain.Transaction{}, fmt.Errorf("hour_of_day %q out of range", field(colHourOfDay, ""))
	}

	return domain.Transaction{
		ID:               field(colTransactionID, ""),
		Timestamp:        ts,
		Type:             field(colType, "Transfer"),
		MerchantCategory: field(colCategory, "Other"),
		Amount:           amount,
		Status:           strings.ToLower(field(colStatus, domain.StatusSuccess)),
		SenderAgeGroup:   field(colSenderAge, "25-35"),
		SenderState:      field(colSenderState, "Delhi"),
		SenderBank:       field(colSenderBank, "HDFC"),
		ReceiverAgeGroup: field(colReceiverAge, "25-35"),
		ReceiverBank:     field(colReceiverBank, "ICICI"),
		DeviceType:       field(colDevice, "Android"),
		NetworkType:      field(colNetwork, "WiFi"),
		FraudFlag:        parseBool(field(colFraudFlag, "false")),
		HourOfDay:        hour,
		DayOfWeek:        parseDay(field(colDayOfWeek, "Monday")),
		IsWeekend:        parseBool(field(colIsWeekend, "false")),
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: no known layout", raw)
}

// parseBool accepts the export's mixed true/false spellings.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseDay accepts day names or 0-6 integers.
func parseDay(raw string) int {
	raw = strings.TrimSpace(raw)
	if d, ok := dayNumbers[strings.ToLower(raw)]; ok {
		return d
	}
	if d, err := strconv.Atoi(raw); err == nil && d >= 0 && d <= 6 {
		return d
	}
	return 0
}
