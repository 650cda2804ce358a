package generator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *models.Config {
	return &models.Config{
		Seed:               42,
		StartDate:          time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		ServiceHours:       10,
		Runners:            2,
		TotalOrders:        40,
		OrdersPerHour:      4,
		AvgOrderValue:      24,
		OrderValueStd:      8,
		MinOrderValue:      6,
		MaxOrderValue:      80,
		MaxWaitMinutes:     30,
		TargetCycleMinutes: 40,
	}
}

func testRunConfig(cfg *models.Config) models.RunConfig {
	open, close := cfg.RunWindow()
	return models.RunConfig{
		RunID:         "run-test",
		Seed:          cfg.Seed,
		Runners:       cfg.Runners,
		TotalOrders:   cfg.TotalOrders,
		OrdersPerHour: cfg.OrdersPerHour,
		OpenAt:        open,
		CloseAt:       close,
	}
}

func TestGenerate_SameSeedProducesIdenticalStream(t *testing.T) {
	cfg := testConfig()
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	groupsA, ordersA := New(cfg, course, 7).Generate(rc)
	groupsB, ordersB := New(cfg, course, 7).Generate(rc)

	require.Equal(t, len(groupsA), len(groupsB))
	require.Equal(t, len(ordersA), len(ordersB))
	for i := range ordersA {
		assert.Equal(t, ordersA[i].ZoneID, ordersB[i].ZoneID)
		assert.Equal(t, ordersA[i].Value, ordersB[i].Value)
		assert.True(t, ordersA[i].CreatedAt.Equal(ordersB[i].CreatedAt))
	}
	for i := range groupsA {
		assert.Equal(t, groupsA[i].Size, groupsB[i].Size)
		assert.Equal(t, groupsA[i].PartyName, groupsB[i].PartyName)
	}
}

func TestGenerate_DifferentSeedsDiverge(t *testing.T) {
	cfg := testConfig()
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	_, ordersA := New(cfg, course, 1).Generate(rc)
	_, ordersB := New(cfg, course, 2).Generate(rc)

	same := len(ordersA) == len(ordersB)
	if same {
		for i := range ordersA {
			if ordersA[i].ZoneID != ordersB[i].ZoneID || ordersA[i].Value != ordersB[i].Value {
				same = false
				break
			}
		}
	}
	assert.False(t, same, "independent seeds should produce different streams")
}

func TestGenerate_RespectsOrderBudgetAndWindow(t *testing.T) {
	cfg := testConfig()
	cfg.TotalOrders = 10
	cfg.OrdersPerHour = 50 // more demand than the budget allows
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	groups, orders := New(cfg, course, 42).Generate(rc)

	require.NotEmpty(t, orders)
	assert.LessOrEqual(t, len(orders), 10)
	for _, o := range orders {
		assert.False(t, o.CreatedAt.Before(rc.OpenAt))
		assert.True(t, o.CreatedAt.Before(rc.CloseAt))
		assert.Equal(t, models.OrderStatusPending, o.Status)
		assert.GreaterOrEqual(t, o.Value, cfg.MinOrderValue)
		assert.LessOrEqual(t, o.Value, cfg.MaxOrderValue)
	}

	sizeSum := 0
	for _, g := range groups {
		sizeSum += g.Size
	}
	assert.Equal(t, len(orders), sizeSum, "every party member's order is materialized")
}

func TestGenerate_OrdersSortedAndBoundToGroups(t *testing.T) {
	cfg := testConfig()
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	groups, orders := New(cfg, course, 99).Generate(rc)
	require.NotEmpty(t, orders)

	zonesByGroup := make(map[string]int, len(groups))
	for _, g := range groups {
		zonesByGroup[g.ID] = g.ZoneID
	}
	for i, o := range orders {
		if i > 0 {
			assert.False(t, o.CreatedAt.Before(orders[i-1].CreatedAt), "orders sorted by creation time")
		}
		zone, ok := zonesByGroup[o.GroupID]
		require.True(t, ok, "order belongs to a known group")
		assert.Equal(t, zone, o.ZoneID, "group members order to the same hole")
	}
}

func TestGenerate_GroupMembersSpreadTheirOrders(t *testing.T) {
	cfg := testConfig()
	cfg.GroupOrderSpreadMin = 15
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	groups, orders := New(cfg, course, 7).Generate(rc)
	require.NotEmpty(t, orders)

	placedAt := make(map[string]time.Time, len(groups))
	for _, g := range groups {
		placedAt[g.ID] = g.PlacedAt
	}

	spread := time.Duration(cfg.GroupOrderSpreadMin * float64(time.Minute))
	staggered := 0
	for _, o := range orders {
		base, ok := placedAt[o.GroupID]
		require.True(t, ok)
		assert.False(t, o.CreatedAt.Before(base), "members never order before the party's first order")
		assert.True(t, o.CreatedAt.Before(base.Add(spread)), "members order within the spread window")
		assert.True(t, o.CreatedAt.Before(rc.CloseAt), "the spread never pushes past close")
		if o.CreatedAt.After(base) {
			staggered++
		}
	}
	assert.Greater(t, staggered, 0, "multi-member parties trickle in, not batch")
}

func TestGenerate_TeeSheetModePlacesOrdersDuringRounds(t *testing.T) {
	cfg := testConfig()
	cfg.PaceMinutesPerHole = 14
	cfg.AvgOrdersPerGroupRound = 2
	cfg.TeeTimes = []models.TeeTime{
		{Start: cfg.StartDate, PartySize: 4},
		{Start: cfg.StartDate.Add(10 * time.Minute), PartySize: 2},
		{Start: cfg.StartDate.Add(20 * time.Minute), PartySize: 4},
		{Start: cfg.StartDate.Add(30 * time.Minute), PartySize: 3},
	}
	course := models.DefaultCourse()
	rc := testRunConfig(cfg)

	groups, orders := New(cfg, course, 42).Generate(rc)

	holes := make(map[int]bool)
	for _, id := range course.HoleIDs() {
		holes[id] = true
	}
	for _, g := range groups {
		assert.True(t, holes[g.ZoneID], "tee sheet orders land on course holes")
		assert.LessOrEqual(t, g.Size, 4, "a party never orders more than its size")
		assert.False(t, g.PlacedAt.Before(rc.OpenAt))
		assert.True(t, g.PlacedAt.Before(rc.CloseAt))
	}
	for _, o := range orders {
		assert.False(t, o.CreatedAt.Before(rc.OpenAt))
	}
}

func TestSampleGroupSize_StaysWithinWeightTable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	weights := []float64{0.5, 0.3, 0.2}
	for i := 0; i < 1000; i++ {
		size := sampleGroupSize(rng, weights)
		assert.GreaterOrEqual(t, size, 1)
		assert.LessOrEqual(t, size, 3)
	}
	assert.Equal(t, 1, sampleGroupSize(rng, []float64{0, 0}), "degenerate weights fall back to singles")
}

func TestAverageGroupSize(t *testing.T) {
	assert.InDelta(t, 2.0, averageGroupSize([]float64{0.5, 0, 0.5}), 1e-9)
	assert.InDelta(t, 1.0, averageGroupSize([]float64{1}), 1e-9)
	// Empty weights use the default mix.
	assert.Greater(t, averageGroupSize(nil), 1.0)
}

func TestSampleExpMinutes_ZeroRateNeverArrives(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.True(t, math.IsInf(sampleExpMinutes(rng, 0), 1))
}

func TestSamplePoisson_ZeroMeanIsZero(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 0, samplePoisson(rng, 0))
}

func TestSampleOrderValue_Clamped(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := sampleOrderValue(rng, 24, 50, 10, 30)
		assert.GreaterOrEqual(t, v, 10.0)
		assert.LessOrEqual(t, v, 30.0)
	}
}
