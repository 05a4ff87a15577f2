package nlp

import (
	"reflect"
	"testing"
)

func TestExtractor_Extract(t *testing.T) {
	x := NewExtractor(NewDictionary())

	tests := []struct {
		name  string
		query string
		want  EntitySet
	}{
		{
			name:  "category with average metric",
			query: "What is the average transaction amount for Food?",
			want: EntitySet{
				KeyMerchantCategory: "Food",
				KeyMetric:           MetricAvg,
			},
		},
		{
			name:  "two categories become a comparison",
			query: "Compare Food and Travel spending",
			want: EntitySet{
				KeyComparisonDimension: "merchant_category",
				KeyComparisonValues:    []string{"Food", "Travel"},
				KeyMetric:              MetricAmount,
			},
		},
		{
			name:  "sender cue assigns bank direction",
			query: "transactions from HDFC",
			want: EntitySet{
				KeySenderBank: "HDFC",
			},
		},
		{
			name:  "receiver cue assigns bank direction",
			query: "transfers to ICICI",
			want: EntitySet{
				KeyReceiverBank: "ICICI",
			},
		},
		{
			name:  "cue-less bank stays generic",
			query: "show HDFC transactions",
			want: EntitySet{
				KeyBank: "HDFC",
			},
		},
		{
			name:  "top n with state and bare grouping",
			query: "top 3 fraud categories in Delhi",
			want: EntitySet{
				KeyTopN:                3,
				KeySenderState:         "Delhi",
				KeyComparisonDimension: "merchant_category",
			},
		},
		{
			name:  "fraud rate grouping goes to comparison dimension",
			query: "fraud rate by banks",
			want: EntitySet{
				KeyMetric:              MetricFraudRate,
				KeyComparisonDimension: GroupBank,
			},
		},
		{
			name:  "number word top n",
			query: "top five banks by total amount",
			want: EntitySet{
				KeyTopN:                5,
				KeyMetric:              MetricAmount,
				KeyComparisonDimension: GroupBank,
			},
		},
		{
			name:  "pm hour reference",
			query: "transactions at 3 pm",
			want: EntitySet{
				KeyHourOfDay: 15,
			},
		},
		{
			name:  "weekend with amount metric",
			query: "weekend spend",
			want: EntitySet{
				KeyIsWeekend: true,
				KeyMetric:    MetricAmount,
			},
		},
		{
			name:  "day of week",
			query: "show transactions on Mondays",
			want: EntitySet{
				KeyDayOfWeek: 0,
			},
		},
		{
			name:  "explicit age group with sender grouping",
			query: "total value by sender age group",
			want: EntitySet{
				KeyMetric:              MetricAmount,
				KeyComparisonDimension: "sender_age_group",
			},
		},
		{
			name:  "age range filter",
			query: "transactions by users aged 18-25",
			want: EntitySet{
				KeyAgeGroup: "18-25",
			},
		},
		{
			name:  "fuzzy state match",
			query: "purchases in Karnatka",
			want: EntitySet{
				KeySenderState: "Karnataka",
			},
		},
		{
			name:  "longest transaction type wins",
			query: "bill payment volume",
			want: EntitySet{
				KeyTransactionType: "Bill Payment",
				KeyMetric:          MetricCount,
			},
		},
		{
			name:  "successful status filter",
			query: "successful transactions in Gujarat",
			want: EntitySet{
				KeyTransactionStatus: "success",
				KeySenderState:       "Gujarat",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// Extraction must be idempotent: the same query always yields the same set.
func TestExtractor_ExtractIdempotent(t *testing.T) {
	x := NewExtractor(NewDictionary())

	queries := []string{
		"Compare Food and Travel spending",
		"top 3 fraud categories in Delhi",
		"fraud rate by banks",
		"average amount for Shopping on WiFi",
	}
	for _, q := range queries {
		first := x.Extract(q)
		second := x.Extract(q)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Extract(%q) not idempotent: %v vs %v", q, first, second)
		}
	}
}

// Exact canonical occurrences always extract to the canonical value.
func TestExtractor_ExactCanonicalValues(t *testing.T) {
	dict := NewDictionary()
	x := NewExtractor(dict)

	for _, state := range dict.States {
		e := x.Extract("show transactions in " + state)
		if got, _ := e.String(KeySenderState); got != state {
			t.Errorf("state %q extracted as %q", state, got)
		}
	}
	for _, cat := range dict.Categories {
		e := x.Extract("average amount for " + cat)
		if got, _ := e.String(KeyMerchantCategory); got != cat {
			t.Errorf("category %q extracted as %q", cat, got)
		}
	}
}

func TestDirectionBefore(t *testing.T) {
	tests := []struct {
		query, value, want string
	}{
		{"transactions from hdfc", "hdfc", "sender"},
		{"transfers to icici", "icici", "receiver"},
		{"show hdfc transactions", "hdfc", ""},
		{"sender bank hdfc stats", "hdfc", "sender"},
		{"money sent from the receiver bank icici", "icici", "receiver"},
	}
	for _, tt := range tests {
		if got := directionBefore(tt.query, tt.value); got != tt.want {
			t.Errorf("directionBefore(%q, %q) = %q, want %q", tt.query, tt.value, got, tt.want)
		}
	}
}
