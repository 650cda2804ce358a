package generator

import (
	"math/rand"
	"sort"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"
	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
)

// Generator produces the time-ordered order stream for one run. It owns its
// RNG, so the stream is re-derivable from the run's seed, and it never
// touches runner state.
type Generator struct {
	cfg    *models.Config
	course *models.Course
	rng    *rand.Rand
	fake   faker.Faker
}

func New(cfg *models.Config, course *models.Course, seed int64) *Generator {
	return &Generator{
		cfg:    cfg,
		course: course,
		rng:    rand.New(rand.NewSource(seed)),
		fake:   faker.NewWithSeed(rand.NewSource(seed)),
	}
}

// Generate builds the full arrival stream for the run: tee-sheet replay when
// a tee sheet is configured, otherwise rate-driven synthetic arrivals.
// Orders come back sorted by creation time, groups by placement time.
func (g *Generator) Generate(rc models.RunConfig) ([]*models.OrderGroup, []*models.Order) {
	var groups []*models.OrderGroup
	var orders []*models.Order

	if len(g.cfg.TeeTimes) > 0 {
		groups, orders = g.generateFromTeeSheet(rc)
	} else {
		groups, orders = g.generateFromRate(rc)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].PlacedAt.Before(groups[j].PlacedAt) })
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return groups, orders
}

// generateFromRate samples exponential gaps between ordering groups so the
// expected order throughput matches the configured orders per hour. The
// stream is bounded by the run's total-order budget and by the close of
// service, whichever comes first.
func (g *Generator) generateFromRate(rc models.RunConfig) ([]*models.OrderGroup, []*models.Order) {
	var groups []*models.OrderGroup
	var orders []*models.Order

	avgSize := averageGroupSize(g.cfg.GroupSizeWeights)
	groupsPerMinute := rc.OrdersPerHour / avgSize / 60.0
	holes := g.course.HoleIDs()

	now := rc.OpenAt
	for {
		gap := sampleExpMinutes(g.rng, groupsPerMinute)
		now = now.Add(time.Duration(gap * float64(time.Minute)))
		if !now.Before(rc.CloseAt) {
			break
		}
		if rc.TotalOrders > 0 && len(orders) >= rc.TotalOrders {
			break
		}

		size := sampleGroupSize(g.rng, g.cfg.GroupSizeWeights)
		if rc.TotalOrders > 0 && len(orders)+size > rc.TotalOrders {
			size = rc.TotalOrders - len(orders)
		}
		zone := holes[g.rng.Intn(len(holes))]
		group := g.newGroup(size, zone, now)
		groups = append(groups, group)
		orders = append(orders, g.newGroupOrders(group, rc.CloseAt)...)
	}

	return groups, orders
}

// generateFromTeeSheet replays the supplied tee sheet. Each party places at
// most one batch of orders during its round; the batch moment is uniform
// over the round and the zone follows the party's pace around the course.
func (g *Generator) generateFromTeeSheet(rc models.RunConfig) ([]*models.OrderGroup, []*models.Order) {
	var groups []*models.OrderGroup
	var orders []*models.Order

	pace := g.cfg.PaceMinutesPerHole
	if pace <= 0 {
		pace = 14.0
	}
	holes := g.course.HoleIDs()
	roundMinutes := pace * float64(len(holes))

	for _, tt := range g.cfg.TeeTimes {
		count := samplePoisson(g.rng, g.cfg.AvgOrdersPerGroupRound)
		if count == 0 {
			continue
		}
		if count > tt.PartySize {
			count = tt.PartySize
		}

		elapsed := g.rng.Float64() * roundMinutes
		placedAt := tt.Start.Add(time.Duration(elapsed * float64(time.Minute)))
		if !placedAt.Before(rc.CloseAt) || placedAt.Before(rc.OpenAt) {
			continue
		}

		holeIdx := int(elapsed / pace)
		if holeIdx >= len(holes) {
			holeIdx = len(holes) - 1
		}
		group := g.newGroup(count, holes[holeIdx], placedAt)
		groups = append(groups, group)
		orders = append(orders, g.newGroupOrders(group, rc.CloseAt)...)

		if rc.TotalOrders > 0 && len(orders) >= rc.TotalOrders {
			break
		}
	}

	return groups, orders
}

func (g *Generator) newGroup(size, zoneID int, placedAt time.Time) *models.OrderGroup {
	return &models.OrderGroup{
		ID:        cuid.New(),
		PartyName: g.fake.Person().LastName(),
		Size:      size,
		ZoneID:    zoneID,
		PlacedAt:  placedAt,
	}
}

// newGroupOrders materializes one order per party member. The first member
// orders at the group's placement moment; the rest trickle in over the
// configured spread window, never past the close of service.
func (g *Generator) newGroupOrders(group *models.OrderGroup, closeAt time.Time) []*models.Order {
	orders := make([]*models.Order, 0, group.Size)
	for i := 0; i < group.Size; i++ {
		createdAt := group.PlacedAt
		if i > 0 && g.cfg.GroupOrderSpreadMin > 0 {
			offset := g.rng.Float64() * g.cfg.GroupOrderSpreadMin
			createdAt = createdAt.Add(time.Duration(offset * float64(time.Minute)))
			if !createdAt.Before(closeAt) {
				createdAt = closeAt.Add(-time.Second)
			}
		}
		orders = append(orders, &models.Order{
			ID:        cuid.New(),
			GroupID:   group.ID,
			ZoneID:    group.ZoneID,
			Value:     sampleOrderValue(g.rng, g.cfg.AvgOrderValue, g.cfg.OrderValueStd, g.cfg.MinOrderValue, g.cfg.MaxOrderValue),
			CreatedAt: createdAt,
			Status:    models.OrderStatusPending,
		})
	}
	return orders
}

func averageGroupSize(weights []float64) float64 {
	if len(weights) == 0 {
		weights = defaultGroupSizeWeights
	}
	total, weighted := 0.0, 0.0
	for i, w := range weights {
		total += w
		weighted += w * float64(i+1)
	}
	if total <= 0 {
		return 1
	}
	return weighted / total
}
