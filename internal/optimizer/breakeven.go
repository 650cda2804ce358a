package optimizer

import (
	"sort"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// MarginalBreakEven estimates the orders-per-hour at which adding one runner
// pays for itself, by interpolating between two scenario results that differ
// only in runner count. The extra runner's value is the margin on orders the
// smaller fleet would otherwise fail to capture.
func MarginalBreakEven(base, plusOne models.ScenarioResult, hourlyCost, marginRate, serviceHours float64) float64 {
	if serviceHours <= 0 || marginRate <= 0 {
		return 0
	}
	extraRevenuePerHour := (plusOne.Revenue - base.Revenue) / serviceHours
	extraMarginPerHour := extraRevenuePerHour * marginRate
	if extraMarginPerHour <= 0 {
		return 0
	}
	// Scale the tier's throughput to the point where the captured margin
	// covers the wage: below this volume the extra runner loses money.
	return base.Scenario.OrdersPerHour * hourlyCost / extraMarginPerHour
}

// breakEvenByTier pairs adjacent runner counts within each volume tier
// (holding the blocking policy fixed at the tier's least-restrictive option)
// and reports the break-even throughput for the first upgrade step.
func breakEvenByTier(results []models.ScenarioResult, cfg *models.Config) map[string]float64 {
	byTier := make(map[string][]models.ScenarioResult)
	for _, r := range results {
		byTier[r.Scenario.VolumeTier] = append(byTier[r.Scenario.VolumeTier], r)
	}

	out := make(map[string]float64, len(byTier))
	for tier, rs := range byTier {
		// Compare like with like: same blocking policy, consecutive fleets.
		leastBlocked := rs[0]
		for _, r := range rs {
			if r.Scenario.BlockedZones < leastBlocked.Scenario.BlockedZones {
				leastBlocked = r
			}
		}
		var ladder []models.ScenarioResult
		for _, r := range rs {
			if r.Scenario.BlockingPolicy == leastBlocked.Scenario.BlockingPolicy {
				ladder = append(ladder, r)
			}
		}
		sort.Slice(ladder, func(i, j int) bool {
			return ladder[i].Scenario.Runners < ladder[j].Scenario.Runners
		})
		for i := 0; i+1 < len(ladder); i++ {
			if ladder[i+1].Scenario.Runners != ladder[i].Scenario.Runners+1 {
				continue
			}
			be := MarginalBreakEven(ladder[i], ladder[i+1], cfg.RunnerHourlyCost, cfg.MarginRate, cfg.ServiceHours)
			if be > 0 {
				out[tier] = be
				break
			}
		}
	}
	return out
}
