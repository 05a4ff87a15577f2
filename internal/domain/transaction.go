package domain

import (
	"strconv"
	"time"
)

// Transaction is one row of the fixed payments dataset. The analytics core
// never mutates transactions; it only reads them through the dataset
// accessor's filter/group primitives.
type Transaction struct {
	ID               string    `json:"transaction_id"`
	Timestamp        time.Time `json:"timestamp"`
	Type             string    `json:"transaction_type"`
	MerchantCategory string    `json:"merchant_category"`
	Amount           float64   `json:"amount"`
	Status           string    `json:"transaction_status"`

	SenderAgeGroup string `json:"sender_age_group"`
	SenderState    string `json:"sender_state"`
	SenderBank     string `json:"sender_bank"`

	ReceiverAgeGroup string `json:"receiver_age_group"`
	ReceiverBank     string `json:"receiver_bank"`

	DeviceType  string `json:"device_type"`
	NetworkType string `json:"network_type"`

	FraudFlag bool `json:"fraud_flag"`

	HourOfDay int  `json:"hour_of_day"` // 0-23
	DayOfWeek int  `json:"day_of_week"` // 0-6, Monday-Sunday
	IsWeekend bool `json:"is_weekend"`
}

// Dimension names form the closed vocabulary shared by the extractor, the
// plan builder and the dataset accessors. Grouping and filtering dispatch
// through DimensionValue instead of branching on names.
const (
	DimMerchantCategory  = "merchant_category"
	DimTransactionType   = "transaction_type"
	DimTransactionStatus = "transaction_status"
	DimSenderAgeGroup    = "sender_age_group"
	DimSenderState       = "sender_state"
	DimSenderBank        = "sender_bank"
	DimReceiverAgeGroup  = "receiver_age_group"
	DimReceiverBank      = "receiver_bank"
	DimDeviceType        = "device_type"
	DimNetworkType       = "network_type"
	DimHourOfDay         = "hour_of_day"
	DimDayOfWeek         = "day_of_week"
	DimIsWeekend         = "is_weekend"
)

var dimensionAccessors = map[string]func(*Transaction) string{
	DimMerchantCategory:  func(t *Transaction) string { return t.MerchantCategory },
	DimTransactionType:   func(t *Transaction) string { return t.Type },
	DimTransactionStatus: func(t *Transaction) string { return t.Status },
	DimSenderAgeGroup:    func(t *Transaction) string { return t.SenderAgeGroup },
	DimSenderState:       func(t *Transaction) string { return t.SenderState },
	DimSenderBank:        func(t *Transaction) string { return t.SenderBank },
	DimReceiverAgeGroup:  func(t *Transaction) string { return t.ReceiverAgeGroup },
	DimReceiverBank:      func(t *Transaction) string { return t.ReceiverBank },
	DimDeviceType:        func(t *Transaction) string { return t.DeviceType },
	DimNetworkType:       func(t *Transaction) string { return t.NetworkType },
	DimHourOfDay:         func(t *Transaction) string { return strconv.Itoa(t.HourOfDay) },
	DimDayOfWeek:         func(t *Transaction) string { return strconv.Itoa(t.DayOfWeek) },
	DimIsWeekend:         func(t *Transaction) string { return strconv.FormatBool(t.IsWeekend) },
}

// DimensionValue returns the value of a named dimension for a transaction.
// Unknown dimensions return the empty string and ok=false.
func DimensionValue(t *Transaction, dimension string) (string, bool) {
	accessor, ok := dimensionAccessors[dimension]
	if !ok {
		return "", false
	}
	return accessor(t), true
}

// KnownDimension reports whether a name is part of the dimension vocabulary.
func KnownDimension(dimension string) bool {
	_, ok := dimensionAccessors[dimension]
	return ok
}

// StatusSuccess is the canonical success status. Status comparisons are
// case-insensitive throughout.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// WeekdayName maps the 0-6 day_of_week encoding to a display name.
func WeekdayName(day int) string {
	names := [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if day < 0 || day >= len(names) {
		return "Unknown"
	}
	return names[day]
}
