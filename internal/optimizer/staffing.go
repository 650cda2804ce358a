package optimizer

import (
	"sort"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// staffingPlan reduces the swept results to one recommendation per
// order-volume band: the cheapest configuration meeting the target, or the
// best performer with a failing verdict when nothing in the band passes.
func staffingPlan(results []models.ScenarioResult, target float64) []models.StaffingBand {
	byTier := make(map[string][]models.ScenarioResult)
	for _, r := range results {
		byTier[r.Scenario.VolumeTier] = append(byTier[r.Scenario.VolumeTier], r)
	}

	tiers := make([]string, 0, len(byTier))
	for tier := range byTier {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool {
		return byTier[tiers[i]][0].Scenario.OrdersPerHour < byTier[tiers[j]][0].Scenario.OrdersPerHour
	})

	plan := make([]models.StaffingBand, 0, len(tiers))
	for _, tier := range tiers {
		rs := byTier[tier]
		pick := cheapestPassing(rs)
		if pick == nil {
			ranked := rankResults(rs)
			pick = &ranked[0]
		}
		plan = append(plan, models.StaffingBand{
			VolumeTier:     tier,
			OrdersPerHour:  pick.Scenario.OrdersPerHour,
			Runners:        pick.Scenario.Runners,
			BlockingPolicy: pick.Scenario.BlockingPolicy,
			AchievedSLA:    pick.AchievedSLA,
			MeetsTarget:    pick.MeetsTarget,
		})
	}
	return plan
}
