package nlp

// EntityKey names one slot of the closed extraction vocabulary. Values
// stored under these keys are always canonical dictionary values, never raw
// user text, except generic scalars (top_n, hour_of_day, time_reference).
type EntityKey string

const (
	KeyMerchantCategory  EntityKey = "merchant_category"
	KeySenderState       EntityKey = "sender_state"
	KeyReceiverState     EntityKey = "receiver_state"
	KeySenderAgeGroup    EntityKey = "sender_age_group"
	KeyReceiverAgeGroup  EntityKey = "receiver_age_group"
	KeySenderBank        EntityKey = "sender_bank"
	KeyReceiverBank      EntityKey = "receiver_bank"
	KeyDeviceType        EntityKey = "device_type"
	KeyNetworkType       EntityKey = "network_type"
	KeyTransactionType   EntityKey = "transaction_type"
	KeyTransactionStatus EntityKey = "transaction_status"

	// Generic keys hold bank/age mentions that carried no sender/receiver
	// cue; the plan builder defaults them to the sender side, the
	// ambiguity resolver rewrites them when a direction arrives.
	KeyBank     EntityKey = "bank"
	KeyAgeGroup EntityKey = "age_group"

	KeyComparisonDimension EntityKey = "comparison_dimension"
	KeyComparisonValues    EntityKey = "comparison_values"
	KeySegmentBy           EntityKey = "segment_by"
	KeyMetric              EntityKey = "metric"
	KeyTimeReference       EntityKey = "time_reference"
	KeyHourOfDay           EntityKey = "hour_of_day"
	KeyDayOfWeek           EntityKey = "day_of_week"
	KeyIsWeekend           EntityKey = "is_weekend"
	KeyTopN                EntityKey = "top_n"
	KeyBottomN             EntityKey = "bottom_n"
)

// Metric values stored under KeyMetric.
const (
	MetricAmount      = "amount"
	MetricCount       = "count"
	MetricAvg         = "avg"
	MetricFraudRate   = "fraud_rate"
	MetricFailureRate = "failure_rate"
)

// Generic grouping dimension values that require direction disambiguation
// before a plan can execute.
const (
	GroupBank     = "bank"
	GroupState    = "state"
	GroupAgeGroup = "age_group"
)

// EntitySet maps extraction keys to resolved values. Within one turn, later
// extraction overwrites earlier for the same key.
type EntitySet map[EntityKey]any

// Clone returns a shallow copy of the set.
func (e EntitySet) Clone() EntitySet {
	out := make(EntitySet, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Has reports whether a key is present.
func (e EntitySet) Has(key EntityKey) bool {
	_, ok := e[key]
	return ok
}

// String returns the string value stored under key, if any.
func (e EntitySet) String(key EntityKey) (string, bool) {
	v, ok := e[key].(string)
	return v, ok
}

// Int returns the int value stored under key, if any.
func (e EntitySet) Int(key EntityKey) (int, bool) {
	v, ok := e[key].(int)
	return v, ok
}

// Bool returns the bool value stored under key, if any.
func (e EntitySet) Bool(key EntityKey) (bool, bool) {
	v, ok := e[key].(bool)
	return v, ok
}

// Strings returns the string-slice value stored under key, if any.
func (e EntitySet) Strings(key EntityKey) ([]string, bool) {
	v, ok := e[key].([]string)
	return v, ok
}

// GroupingKey returns the grouping key present in the set, preferring
// comparison_dimension over segment_by, with its value.
func (e EntitySet) GroupingKey() (EntityKey, string, bool) {
	if v, ok := e.String(KeyComparisonDimension); ok {
		return KeyComparisonDimension, v, true
	}
	if v, ok := e.String(KeySegmentBy); ok {
		return KeySegmentBy, v, true
	}
	return "", "", false
}
