package load

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/insightx/insightx/internal/domain"
)

var (
	synthCategories = []string{
		"Food", "Entertainment", "Travel", "Shopping", "Utilities",
		"Healthcare", "Education", "Bills", "Downloads", "Other",
	}
	synthStates = []string{
		"Maharashtra", "Karnataka", "Delhi", "Tamil Nadu", "Telangana",
		"Gujarat", "Rajasthan", "Punjab", "West Bengal", "Uttar Pradesh",
		"Andhra Pradesh", "Haryana", "Madhya Pradesh", "Bihar", "Odisha",
	}
	synthBanks = []string{
		"HDFC", "ICICI", "SBI", "Axis", "Kotak",
		"PNB", "Canara", "IndusInd", "Yes Bank", "IDFC",
	}
	synthAgeGroups = []string{"13-18", "18-25", "25-35", "35-45", "45-55", "55+"}
	synthDevices   = []string{"iOS", "Android", "Web"}
	synthNetworks  = []string{"WiFi", "4G", "5G"}
	synthTypes     = []string{"Transfer", "Payment", "Bill Payment", "Recharge"}

	// Category-dependent amount centers and fraud odds; network-dependent
	// failure odds.
	synthBaseAmount = map[string]float64{
		"Food": 500, "Entertainment": 2000, "Travel": 5000,
		"Shopping": 3000, "Utilities": 1500, "Healthcare": 4000,
		"Education": 8000, "Bills": 2000, "Downloads": 500, "Other": 2000,
	}
	synthFraudChance = map[string]float64{
		"Shopping": 0.08, "Downloads": 0.06, "Entertainment": 0.04,
		"Travel": 0.03, "Other": 0.05,
	}
	synthFailureChance = map[string]float64{
		"5G": 0.01, "WiFi": 0.02, "4G": 0.03,
	}
)

// Synthetic generates a deterministic dataset for local development and
// tests. The distributions mirror the production export: amounts clustered
// per category, elevated fraud in card-not-present categories, network-
// dependent failure rates.
func Synthetic(n int, seed int64) []domain.Transaction {
	rng := rand.New(rand.NewSource(seed))
	base := time.Now().AddDate(0, 0, -90)

	rows := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		category := synthCategories[rng.Intn(len(synthCategories))]
		baseAmount := synthBaseAmount[category]
		amount := baseAmount + rng.NormFloat64()*baseAmount*0.3
		amount = math.Max(100, math.Min(50000, amount))

		network := synthNetworks[rng.Intn(len(synthNetworks))]
		status := domain.StatusSuccess
		if rng.Float64() < synthFailureChance[network] {
			status = domain.StatusFailed
		} else if rng.Float64() < 0.05 {
			status = domain.StatusPending
		}

		fraudChance := synthFraudChance[category]
		if fraudChance == 0 {
			fraudChance = 0.02
		}

		ts := base.Add(time.Duration(rng.Intn(90*24)) * time.Hour).Add(time.Duration(rng.Intn(60)) * time.Minute)
		day := (int(ts.Weekday()) + 6) % 7 // Monday = 0

		rows = append(rows, domain.Transaction{
			ID:               fmt.Sprintf("TXN%010d", i+1),
			Timestamp:        ts,
			Type:             synthTypes[rng.Intn(len(synthTypes))],
			MerchantCategory: category,
			Amount:           math.Round(amount*100) / 100,
			Status:           status,
			SenderAgeGroup:   synthAgeGroups[rng.Intn(len(synthAgeGroups))],
			SenderState:      synthStates[rng.Intn(len(synthStates))],
			SenderBank:       synthBanks[rng.Intn(len(synthBanks))],
			ReceiverAgeGroup: synthAgeGroups[rng.Intn(len(synthAgeGroups))],
			ReceiverBank:     synthBanks[rng.Intn(len(synthBanks))],
			DeviceType:       synthDevices[rng.Intn(len(synthDevices))],
			NetworkType:      network,
			FraudFlag:        rng.Float64() < fraudChance,
			HourOfDay:        ts.Hour(),
			DayOfWeek:        day,
			IsWeekend:        day >= 5,
		})
	}
	return rows
}
