package sim

import (
	"math"
	"sort"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"
)

// Compute derives the published metrics snapshot from one finalized run.
// Pure function of the run state: no side effects, deterministic given the
// same result.
func Compute(result *models.RunResult) models.MetricsSnapshot {
	rc := result.Config
	snap := models.MetricsSnapshot{
		RunID:            rc.RunID,
		Seed:             rc.Seed,
		ActiveHours:      rc.ServiceHours(),
		TotalOrders:      len(result.Orders),
		TotalGroups:      len(result.Groups),
		ZoneCycleMinutes: make(map[int]float64),
		ZoneDeliveries:   make(map[int]int),
	}

	var (
		onTime     int
		cycleTimes []time.Duration
		queueWaits []time.Duration
		revenue    float64
		zoneCycles = make(map[int]float64)
		target     = time.Duration(rc.TargetCycleMinutes * float64(time.Minute))
	)

	for _, o := range result.Orders {
		switch o.Status {
		case models.OrderStatusDelivered:
			snap.DeliveredOrders++
			revenue += o.Value
			cycle := o.CycleTime()
			cycleTimes = append(cycleTimes, cycle)
			queueWaits = append(queueWaits, o.QueueWait())
			if cycle <= target {
				onTime++
			}
			zoneCycles[o.ZoneID] += cycle.Minutes()
			snap.ZoneDeliveries[o.ZoneID]++
		case models.OrderStatusFailed:
			snap.FailedOrders++
			if o.FailReason == models.FailReasonQueueWait || o.FailReason == models.FailReasonCutoff {
				queueWaits = append(queueWaits, o.QueueWait())
			}
		default:
			snap.PendingAtCutoff++
		}
	}

	for zone, total := range zoneCycles {
		snap.ZoneCycleMinutes[zone] = total / float64(snap.ZoneDeliveries[zone])
	}

	if snap.TotalOrders > 0 {
		snap.OnTimeRate = float64(onTime) / float64(snap.TotalOrders)
		snap.FailedRate = float64(snap.FailedOrders) / float64(snap.TotalOrders)
	}

	snap.AvgQueueWaitMin = meanMinutes(queueWaits)
	snap.AvgCycleMin = meanMinutes(cycleTimes)
	snap.P50CycleMin = percentileMinutes(cycleTimes, 50)
	snap.P90CycleMin = percentileMinutes(cycleTimes, 90)

	var drive, prep, idle float64
	for _, r := range result.Runners {
		drive += r.DriveMinutes
		prep += r.PrepMinutes
		idle += r.IdleMinutes
	}
	snap.RunnerHours = float64(rc.Runners) * rc.ServiceHours()
	if totalMin := snap.RunnerHours * 60; totalMin > 0 {
		snap.DrivePct = clampPct(drive / totalMin)
		snap.PrepPct = clampPct(prep / totalMin)
		snap.IdlePct = clampPct(idle / totalMin)
	}

	snap.Revenue = revenue
	if snap.TotalGroups > 0 {
		snap.RevenuePerGroup = revenue / float64(snap.TotalGroups)
	}
	if snap.RunnerHours > 0 {
		snap.OrdersPerRunnerHr = float64(snap.DeliveredOrders) / snap.RunnerHours
	}

	if snap.DeliveredOrders > 0 {
		snap.AvgOrderValue = revenue / float64(snap.DeliveredOrders)
		snap.DriveMinPerOrder = drive / float64(snap.DeliveredOrders)
		snap.BreakEvenOrdersHr = breakEvenOrdersPerHour(rc.RunnerHourlyCost, snap.AvgOrderValue, rc.MarginRate)
	} else {
		// Zero deliveries is a legitimate evaluated point (e.g. a blocking
		// policy removing every valid zone); rates degrade to sentinel zeros.
		snap.Degenerate = true
	}

	return snap
}

// breakEvenOrdersPerHour is the throughput at which an additional runner's
// hourly cost equals the margin on the orders it would capture.
func breakEvenOrdersPerHour(hourlyCost, avgOrderValue, marginRate float64) float64 {
	contribution := avgOrderValue * marginRate
	if contribution <= 0 {
		return 0
	}
	return hourlyCost / contribution
}

func meanMinutes(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range durations {
		sum += d.Minutes()
	}
	return sum / float64(len(durations))
}

// percentileMinutes computes the p-th percentile of the durations in
// minutes, with linear interpolation between ranks. Empty input yields the
// sentinel zero.
func percentileMinutes(durations []time.Duration, p float64) float64 {
	n := len(durations)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	for i, d := range durations {
		sorted[i] = d.Minutes()
	}
	sort.Float64s(sorted)

	rank := p / 100.0 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper || upper >= n {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

func clampPct(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
