package nlp

import "testing"

func TestDictionary_Match(t *testing.T) {
	dict := NewDictionary()

	tests := []struct {
		name      string
		token     string
		list      []string
		want      string
		wantMatch bool
	}{
		{
			name:      "exact match case-insensitive",
			token:     "food",
			list:      dict.Categories,
			want:      "Food",
			wantMatch: true,
		},
		{
			name:      "fuzzy state with dropped letter",
			token:     "karnatka",
			list:      dict.States,
			want:      "Karnataka",
			wantMatch: true,
		},
		{
			name:      "fuzzy category with dropped letter",
			token:     "entertainmet",
			list:      dict.Categories,
			want:      "Entertainment",
			wantMatch: true,
		},
		{
			name:      "below threshold",
			token:     "xyz",
			list:      dict.Categories,
			wantMatch: false,
		},
		{
			name:      "empty token",
			token:     "  ",
			list:      dict.Categories,
			wantMatch: false,
		},
		{
			name:      "exact bank",
			token:     "hdfc",
			list:      dict.Banks,
			want:      "HDFC",
			wantMatch: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := dict.Match(tt.token, tt.list, DefaultFuzzyThreshold)
			if ok != tt.wantMatch {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.token, ok, tt.wantMatch)
			}
			if ok && got != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

// A fuzzy result must never come from below the threshold: raising the
// threshold above a candidate's similarity makes the match disappear.
func TestDictionary_MatchThresholdFloor(t *testing.T) {
	dict := NewDictionary()

	if _, ok := dict.Match("karnatka", dict.States, 0.95); ok {
		t.Error("Match accepted a candidate below the configured threshold")
	}
	if _, ok := dict.Match("karnatka", dict.States, 0.8); !ok {
		t.Error("Match rejected a candidate above the configured threshold")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"food", "food", 1},
		{"", "food", 0},
		{"abcd", "wxyz", 0},
	}
	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}

	// One edit in nine runes.
	got := similarity("karnatka", "karnataka")
	if got < 0.88 || got > 0.89 {
		t.Errorf("similarity(karnatka, karnataka) = %v, want ~0.888", got)
	}
}
