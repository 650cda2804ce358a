package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sweepConfig() *models.Config {
	return &models.Config{
		Seed:               42,
		StartDate:          time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		ServiceHours:       10,
		Runners:            1,
		TotalOrders:        12,
		OrdersPerHour:      2,
		BlockingPolicy:     "none",
		MaxWaitMinutes:     30,
		TargetCycleMinutes: 40,
		AvgOrderValue:      24,
		OrderValueStd:      8,
		MinOrderValue:      6,
		MaxOrderValue:      80,
		RunnerHourlyCost:   18,
		MarginRate:         0.65,
		SLATarget:          0.9,
		Repetitions:        2,
		MaxParallelRuns:    2,
	}
}

func scenarioResult(name, tier string, ordersHr float64, runners, blocked int, sla float64, meets bool) models.ScenarioResult {
	verdict := models.VerdictRejected
	if meets {
		verdict = models.VerdictRecommended
	}
	return models.ScenarioResult{
		Scenario: models.Scenario{
			Name:          name,
			VolumeTier:    tier,
			OrdersPerHour: ordersHr,
			Runners:       runners,
			BlockedZones:  blocked,
		},
		AchievedSLA: sla,
		MeetsTarget: meets,
		Verdict:     verdict,
	}
}

func TestSearchSpace_CrossProduct(t *testing.T) {
	cfg := sweepConfig()
	cfg.VolumeTiers = []models.VolumeTierConfig{
		{Name: "slow", TotalOrders: 10, OrdersPerHour: 1},
		{Name: "peak", TotalOrders: 60, OrdersPerHour: 8},
	}
	cfg.RunnerOptions = []int{1, 2, 3}
	cfg.BlockingOptions = []string{"none", "front_back"}

	opt, err := New(cfg)
	require.NoError(t, err)
	cells, err := opt.searchSpace()
	require.NoError(t, err)
	assert.Len(t, cells, 12)
}

func TestSearchSpace_DefaultsToSingleCell(t *testing.T) {
	opt, err := New(sweepConfig())
	require.NoError(t, err)
	cells, err := opt.searchSpace()
	require.NoError(t, err)

	require.Len(t, cells, 1)
	assert.Equal(t, "baseline", cells[0].tier.Name)
	assert.Equal(t, 1, cells[0].runners)
	assert.Equal(t, "none", cells[0].policy.Name)
}

func TestSearchSpace_UnknownPolicyIsError(t *testing.T) {
	cfg := sweepConfig()
	cfg.BlockingOptions = []string{"sideways"}
	opt, err := New(cfg)
	require.NoError(t, err)
	_, err = opt.searchSpace()
	assert.Error(t, err)
}

func TestAggregate_AveragesRepsAndAppliesVerdict(t *testing.T) {
	opt, err := New(sweepConfig())
	require.NoError(t, err)

	policy, _ := models.ResolveBlockingPolicy("front_back")
	c := cell{
		tier:    models.VolumeTierConfig{Name: "steady", TotalOrders: 40, OrdersPerHour: 4},
		runners: 2,
		policy:  policy,
	}
	snaps := []models.MetricsSnapshot{
		{OnTimeRate: 0.95, FailedRate: 0.05, AvgQueueWaitMin: 4, AvgCycleMin: 20, P90CycleMin: 30, Revenue: 800},
		{OnTimeRate: 0.85, FailedRate: 0.15, AvgQueueWaitMin: 6, AvgCycleMin: 24, P90CycleMin: 34, Revenue: 760},
	}

	r := opt.aggregate(c, snaps)

	assert.Equal(t, "steady_2r_front_back", r.Scenario.Name)
	assert.Equal(t, 6, r.Scenario.BlockedZones)
	assert.Equal(t, 2, r.Scenario.Repetitions)
	assert.InDelta(t, 0.90, r.AchievedSLA, 1e-9)
	assert.InDelta(t, 0.10, r.FailedRate, 1e-9)
	assert.InDelta(t, 5.0, r.MeanWaitMin, 1e-9)
	assert.InDelta(t, 32.0, r.P90CycleMin, 1e-9)
	assert.InDelta(t, 780.0, r.Revenue, 1e-9)
	// 2 runners × $18/h × 10h.
	assert.InDelta(t, 360.0, r.RunnerCost, 1e-9)
	assert.InDelta(t, 420.0, r.Margin(), 1e-9)

	assert.True(t, r.MeetsTarget, "mean SLA exactly at target passes")
	assert.Equal(t, models.VerdictRecommended, r.Verdict)

	// A miss on the mean is rejected, whatever individual reps did.
	snaps[0].OnTimeRate = 0.92
	r = opt.aggregate(c, snaps)
	assert.False(t, r.MeetsTarget)
	assert.Equal(t, models.VerdictRejected, r.Verdict)
}

func TestRankResults_OrdersBySLAThenCost(t *testing.T) {
	results := []models.ScenarioResult{
		scenarioResult("b", "steady", 4, 3, 0, 0.95, true),
		scenarioResult("a", "steady", 4, 2, 0, 0.95, true),
		scenarioResult("d", "steady", 4, 2, 6, 0.80, false),
		scenarioResult("c", "steady", 4, 2, 0, 0.99, true),
	}

	ranked := rankResults(results)

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Scenario.Name
	}
	assert.Equal(t, []string{"c", "a", "b", "d"}, names)
}

func TestCheapestPassing_PrefersFewestRunnersThenLeastBlocking(t *testing.T) {
	results := []models.ScenarioResult{
		scenarioResult("three_runners", "steady", 4, 3, 0, 0.99, true),
		scenarioResult("two_blocked", "steady", 4, 2, 6, 0.93, true),
		scenarioResult("two_open", "steady", 4, 2, 0, 0.91, true),
		scenarioResult("one_failing", "steady", 4, 1, 0, 0.70, false),
	}

	pick := cheapestPassing(results)
	require.NotNil(t, pick)
	assert.Equal(t, "two_open", pick.Scenario.Name)
}

func TestCheapestPassing_NeverPicksFailingScenario(t *testing.T) {
	results := []models.ScenarioResult{
		scenarioResult("close_miss", "steady", 4, 1, 0, 0.899, false),
		scenarioResult("far_miss", "steady", 4, 2, 0, 0.60, false),
	}
	assert.Nil(t, cheapestPassing(results), "a shortfall is reported, not rounded away")
}

func TestStaffingPlan_OneBandPerTierSortedByVolume(t *testing.T) {
	results := []models.ScenarioResult{
		scenarioResult("peak_3r", "peak", 8, 3, 0, 0.92, true),
		scenarioResult("peak_2r", "peak", 8, 2, 0, 0.75, false),
		scenarioResult("slow_1r", "slow", 2, 1, 0, 0.97, true),
		scenarioResult("steady_2r", "steady", 4, 2, 0, 0.85, false),
	}

	plan := staffingPlan(results, 0.9)

	require.Len(t, plan, 3)
	assert.Equal(t, []string{"slow", "steady", "peak"},
		[]string{plan[0].VolumeTier, plan[1].VolumeTier, plan[2].VolumeTier})

	assert.Equal(t, 1, plan[0].Runners)
	assert.True(t, plan[0].MeetsTarget)

	// Nothing passes at steady volume; the plan flags the shortfall instead
	// of inventing a passing configuration.
	assert.Equal(t, 2, plan[1].Runners)
	assert.False(t, plan[1].MeetsTarget)

	assert.Equal(t, 3, plan[2].Runners)
}

func TestMarginalBreakEven(t *testing.T) {
	base := scenarioResult("one", "steady", 6, 1, 0, 0.7, false)
	base.Revenue = 500
	plusOne := scenarioResult("two", "steady", 6, 2, 0, 0.95, true)
	plusOne.Revenue = 800

	// Extra margin per hour: (800-500)/10h × 0.65 = $19.50 against an $18
	// wage; break-even sits just below the tier's throughput.
	be := MarginalBreakEven(base, plusOne, 18, 0.65, 10)
	assert.InDelta(t, 6*18/19.5, be, 1e-9)

	// No revenue gain means the upgrade never pays.
	assert.Equal(t, 0.0, MarginalBreakEven(plusOne, plusOne, 18, 0.65, 10))
}

func TestRun_SweepEndToEnd(t *testing.T) {
	cfg := sweepConfig()
	cfg.VolumeTiers = []models.VolumeTierConfig{
		{Name: "slow", TotalOrders: 8, OrdersPerHour: 1},
	}
	cfg.RunnerOptions = []int{1, 2}
	cfg.BlockingOptions = []string{"none"}

	opt, err := New(cfg)
	require.NoError(t, err)
	summary, err := opt.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, summary.Results, 2)
	require.NotNil(t, summary.Best)
	assert.Equal(t, 0.9, summary.SLATarget)
	assert.NotEmpty(t, summary.Recommendation)
	assert.Len(t, summary.StaffingPlan, 1)

	for _, r := range summary.Results {
		assert.Equal(t, 2, r.Scenario.Repetitions)
		assert.Equal(t, r.MeetsTarget, r.Verdict == models.VerdictRecommended)
		if r.MeetsTarget {
			assert.GreaterOrEqual(t, r.AchievedSLA, summary.SLATarget)
		}
	}
}

func TestRun_AllZonesBlockedIsHonestZero(t *testing.T) {
	cfg := sweepConfig()
	// A nine-hole course under front_nine blocking has no open zone at all.
	zones := make([]models.Zone, 0, 9)
	for hole := 1; hole <= 9; hole++ {
		zones = append(zones, models.Zone{
			ID:         hole,
			TravelMin:  float64(2 + hole),
			ServiceMin: 2,
		})
	}
	cfg.Zones = zones
	cfg.BlockingOptions = []string{"front_nine"}

	opt, err := New(cfg)
	require.NoError(t, err)
	summary, err := opt.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	r := summary.Results[0]
	assert.Equal(t, 0.0, r.AchievedSLA)
	assert.Equal(t, models.VerdictRejected, r.Verdict)
	assert.Nil(t, summary.Recommended)
	assert.Contains(t, summary.Recommendation, "no scenario achieved")
	assert.InDelta(t, cfg.SLATarget, summary.Shortfall, 1e-9)
}

func TestRun_CancelledContextStopsSweep(t *testing.T) {
	cfg := sweepConfig()
	cfg.RunnerOptions = []int{1, 2, 3}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt, err := New(cfg)
	require.NoError(t, err)
	_, err = opt.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
