package conversation

import (
	"testing"
	"time"

	"github.com/insightx/insightx/internal/nlp"
)

// testStore returns a store with a controllable clock.
func testStore(ttl time.Duration) (*Store, *time.Time) {
	s := NewStore(ttl)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStore_CreateAndGet(t *testing.T) {
	s, _ := testStore(time.Hour)

	sess := s.Create()
	if sess.ID == "" {
		t.Fatal("Create returned empty session id")
	}
	if len(sess.LastEntities) != 0 {
		t.Errorf("new session has entities: %v", sess.LastEntities)
	}

	got, ok := s.Get(sess.ID)
	if !ok {
		t.Fatal("Get did not find freshly created session")
	}
	if got.ID != sess.ID {
		t.Errorf("Get returned id %q, want %q", got.ID, sess.ID)
	}
	if _, ok := s.Get("no-such-session"); ok {
		t.Error("Get found a session that was never created")
	}
}

func TestStore_TTLBoundaries(t *testing.T) {
	s, now := testStore(time.Hour)
	sess := s.Create()

	// At exactly TTL the session is still live.
	*now = now.Add(time.Hour)
	if _, ok := s.Get(sess.ID); !ok {
		t.Error("session expired at exactly TTL, want live")
	}

	// One step past TTL it is gone; expiry refreshes nothing.
	*now = now.Add(time.Nanosecond)
	if _, ok := s.Get(sess.ID); ok {
		t.Error("session live past TTL, want expired")
	}
	if s.Len() != 0 {
		t.Errorf("expired session not removed, Len = %d", s.Len())
	}
}

func TestStore_UpdateRefreshesTTL(t *testing.T) {
	s, now := testStore(time.Hour)
	sess := s.Create()

	*now = now.Add(30 * time.Minute)
	s.Update(sess.ID, "q", nlp.IntentDescriptive, nlp.EntitySet{}, "summary", nil)

	*now = now.Add(59 * time.Minute)
	if _, ok := s.Get(sess.ID); !ok {
		t.Error("session expired despite activity inside TTL")
	}
}

func TestStore_MergeEntities(t *testing.T) {
	tests := []struct {
		name     string
		prior    nlp.EntitySet
		incoming nlp.EntitySet
		want     nlp.EntitySet
	}{
		{
			name:     "new values win per key",
			prior:    nlp.EntitySet{nlp.KeyMerchantCategory: "Food"},
			incoming: nlp.EntitySet{nlp.KeyMerchantCategory: "Travel"},
			want:     nlp.EntitySet{nlp.KeyMerchantCategory: "Travel"},
		},
		{
			name: "prior grouping survives a filter-only turn",
			prior: nlp.EntitySet{
				nlp.KeyComparisonDimension: "sender_state",
				nlp.KeyMerchantCategory:    "Food",
			},
			incoming: nlp.EntitySet{nlp.KeyMerchantCategory: "Travel"},
			want: nlp.EntitySet{
				nlp.KeyComparisonDimension: "sender_state",
				nlp.KeyMerchantCategory:    "Travel",
			},
		},
		{
			name: "new grouping replaces the prior grouping entirely",
			prior: nlp.EntitySet{
				nlp.KeyComparisonDimension: "merchant_category",
				nlp.KeyComparisonValues:    []string{"Food", "Travel"},
			},
			incoming: nlp.EntitySet{nlp.KeySegmentBy: "sender_age_group"},
			want:     nlp.EntitySet{nlp.KeySegmentBy: "sender_age_group"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := testStore(time.Hour)
			sess := s.Create()
			s.Update(sess.ID, "q", nlp.IntentDescriptive, tt.prior, "summary", nil)

			got := s.MergeEntities(sess.ID, tt.incoming)
			if len(got) != len(tt.want) {
				t.Fatalf("merged = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if _, isSlice := v.([]string); isSlice {
					continue
				}
				if got[k] != v {
					t.Errorf("merged[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestStore_MergeEntitiesUnknownSession(t *testing.T) {
	s, _ := testStore(time.Hour)

	in := nlp.EntitySet{nlp.KeyMerchantCategory: "Food"}
	got := s.MergeEntities("missing", in)
	if got[nlp.KeyMerchantCategory] != "Food" {
		t.Errorf("merge on unknown session = %v, want clone of input", got)
	}
}

func TestStore_HistoryBounded(t *testing.T) {
	s, _ := testStore(time.Hour)
	sess := s.Create()

	for i := 0; i < DefaultMaxHistory+5; i++ {
		s.Update(sess.ID, "q", nlp.IntentDescriptive, nlp.EntitySet{}, "summary", nil)
	}

	history, ok := s.History(sess.ID)
	if !ok {
		t.Fatal("History did not find session")
	}
	if len(history) != DefaultMaxHistory {
		t.Errorf("history length = %d, want %d", len(history), DefaultMaxHistory)
	}
}

func TestStore_PendingClarification(t *testing.T) {
	s, _ := testStore(time.Hour)
	sess := s.Create()

	s.SetPending(sess.ID, &Clarification{
		Kind: ClarifyBankDirection,
		Mode: ModeComparative,
	})

	got, _ := s.Get(sess.ID)
	if got.Pending == nil || got.Pending.Kind != ClarifyBankDirection {
		t.Fatalf("pending = %+v, want bank_direction", got.Pending)
	}

	// The copy must not alias store state.
	got.Pending.Kind = ClarifyAgeDirection
	again, _ := s.Get(sess.ID)
	if again.Pending.Kind != ClarifyBankDirection {
		t.Error("mutating a returned session leaked into the store")
	}

	s.ClearPending(sess.ID)
	cleared, _ := s.Get(sess.ID)
	if cleared.Pending != nil {
		t.Error("pending clarification not cleared")
	}
}

func TestStore_ResetKeepsID(t *testing.T) {
	s, _ := testStore(time.Hour)
	sess := s.Create()
	s.Update(sess.ID, "q", nlp.IntentRisk, nlp.EntitySet{nlp.KeyMerchantCategory: "Food"}, "summary", nil)

	if !s.Reset(sess.ID) {
		t.Fatal("Reset did not find session")
	}

	got, ok := s.Get(sess.ID)
	if !ok {
		t.Fatal("session gone after Reset")
	}
	if got.LastIntent != "" || len(got.LastEntities) != 0 || len(got.History) != 0 {
		t.Errorf("Reset left state behind: %+v", got)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := testStore(time.Hour)
	sess := s.Create()

	if !s.Delete(sess.ID) {
		t.Fatal("Delete did not find session")
	}
	if s.Delete(sess.ID) {
		t.Error("second Delete reported success")
	}
	if _, ok := s.Get(sess.ID); ok {
		t.Error("deleted session still retrievable")
	}
}
