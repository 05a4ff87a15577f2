package memory

import (
	"context"
	"testing"

	"github.com/insightx/insightx/internal/dataset"
	"github.com/insightx/insightx/internal/domain"
)

func testRows() []domain.Transaction {
	return []domain.Transaction{
		{ID: "t1", MerchantCategory: "Food", Amount: 100, Status: "success", SenderState: "Delhi", SenderBank: "HDFC", HourOfDay: 9, DeviceType: "iOS"},
		{ID: "t2", MerchantCategory: "Food", Amount: 300, Status: "failed", SenderState: "Delhi", SenderBank: "ICICI", HourOfDay: 22, DeviceType: "Android"},
		{ID: "t3", MerchantCategory: "Travel", Amount: 500, Status: "success", SenderState: "Karnataka", SenderBank: "HDFC", HourOfDay: 3, FraudFlag: true, DeviceType: "iOS"},
		{ID: "t4", MerchantCategory: "Travel", Amount: 700, Status: "SUCCESS", SenderState: "Delhi", SenderBank: "SBI", HourOfDay: 14, DeviceType: "Web"},
	}
}

func ids(rows []domain.Transaction) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestStore_Filter(t *testing.T) {
	s := NewStore(testRows())
	ctx := context.Background()

	tests := []struct {
		name       string
		predicates []dataset.Predicate
		wantIDs    []string
	}{
		{
			name:    "no predicates returns everything",
			wantIDs: []string{"t1", "t2", "t3", "t4"},
		},
		{
			name:       "equality is case-insensitive",
			predicates: []dataset.Predicate{dataset.Equal("transaction_status", "Success")},
			wantIDs:    []string{"t1", "t3", "t4"},
		},
		{
			name: "predicates are AND-combined",
			predicates: []dataset.Predicate{
				dataset.Equal("merchant_category", "Food"),
				dataset.Equal("sender_state", "Delhi"),
				dataset.Equal("sender_bank", "HDFC"),
			},
			wantIDs: []string{"t1"},
		},
		{
			name:       "membership predicate",
			predicates: []dataset.Predicate{dataset.In("sender_bank", []string{"hdfc", "sbi"})},
			wantIDs:    []string{"t1", "t3", "t4"},
		},
		{
			name:       "hour range",
			predicates: []dataset.Predicate{dataset.HourRange(6, 11)},
			wantIDs:    []string{"t1"},
		},
		{
			name:       "wrapping night hour range",
			predicates: []dataset.Predicate{dataset.HourRange(21, 5)},
			wantIDs:    []string{"t2", "t3"},
		},
		{
			name:       "fraud flag",
			predicates: []dataset.Predicate{dataset.FraudOnly(true)},
			wantIDs:    []string{"t3"},
		},
		{
			name:       "no matches",
			predicates: []dataset.Predicate{dataset.Equal("merchant_category", "Education")},
			wantIDs:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Filter(ctx, tt.predicates)
			if err != nil {
				t.Fatalf("Filter failed: %v", err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.wantIDs) {
				t.Fatalf("Filter returned %v, want %v", gotIDs, tt.wantIDs)
			}
			for i := range tt.wantIDs {
				if gotIDs[i] != tt.wantIDs[i] {
					t.Errorf("Filter returned %v, want %v", gotIDs, tt.wantIDs)
					break
				}
			}
		})
	}
}

func TestStore_GroupBy(t *testing.T) {
	s := NewStore(testRows())
	ctx := context.Background()

	groups, err := s.GroupBy(ctx, "merchant_category", nil)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("GroupBy returned %d groups, want 2", len(groups))
	}

	// First-seen order: Food appears before Travel.
	food, travel := groups[0], groups[1]
	if food.Value != "Food" || travel.Value != "Travel" {
		t.Fatalf("group order = %q, %q, want Food, Travel", food.Value, travel.Value)
	}

	if food.Count != 2 || food.TotalAmount != 400 || food.AvgAmount != 200 {
		t.Errorf("Food aggregates = %+v", food)
	}
	if food.SuccessCount != 1 || food.FailedCount != 1 || food.FraudCount != 0 {
		t.Errorf("Food status counts = %+v", food)
	}

	// Mixed-case status still counts as success.
	if travel.SuccessCount != 2 || travel.FraudCount != 1 {
		t.Errorf("Travel status counts = %+v", travel)
	}
	if travel.FraudRate() != 50 {
		t.Errorf("Travel fraud rate = %v, want 50", travel.FraudRate())
	}
}

func TestStore_GroupByWithPredicates(t *testing.T) {
	s := NewStore(testRows())

	groups, err := s.GroupBy(context.Background(), "sender_bank",
		[]dataset.Predicate{dataset.Equal("sender_state", "Delhi")})
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}

	want := map[string]int64{"HDFC": 1, "ICICI": 1, "SBI": 1}
	if len(groups) != len(want) {
		t.Fatalf("GroupBy returned %d groups, want %d", len(groups), len(want))
	}
	for _, g := range groups {
		if want[g.Value] != g.Count {
			t.Errorf("group %q count = %d, want %d", g.Value, g.Count, want[g.Value])
		}
	}
}

func TestStore_GroupByUnknownDimension(t *testing.T) {
	s := NewStore(testRows())

	groups, err := s.GroupBy(context.Background(), "no_such_dimension", nil)
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("unknown dimension produced %d groups, want 0", len(groups))
	}
}
