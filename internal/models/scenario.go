package models

import "time"

// RunConfig fixes everything a single simulation run depends on. It is
// immutable once built; the optimizer constructs one per (configuration ×
// repetition) cell rather than mutating a shared config.
type RunConfig struct {
	RunID              string
	Seed               int64
	Runners            int
	TotalOrders        int
	OrdersPerHour      float64
	Blocking           BlockingPolicy
	MaxWaitMinutes     float64
	TargetCycleMinutes float64
	OpenAt             time.Time
	CloseAt            time.Time
	RunnerHourlyCost   float64
	MarginRate         float64
}

// ServiceHours is the active span of the run.
func (rc RunConfig) ServiceHours() float64 {
	return rc.CloseAt.Sub(rc.OpenAt).Hours()
}

// RunResult is the finalized state of one run: every generated order and
// group in arrival order, the fleet's closing books, and the processed event
// stream. Immutable once the engine returns it.
type RunResult struct {
	Config  RunConfig
	Orders  []*Order
	Groups  []*OrderGroup
	Runners []*Runner
	Events  []*Event
}

// MetricsSnapshot is the published per-run metric set, a pure projection of
// a finalized RunResult.
type MetricsSnapshot struct {
	RunID       string  `json:"run_id"`
	Seed        int64   `json:"seed"`
	ActiveHours float64 `json:"active_hours"`

	TotalOrders     int `json:"total_orders"`
	TotalGroups     int `json:"total_groups"`
	DeliveredOrders int `json:"delivered_orders"`
	FailedOrders    int `json:"failed_orders"`
	PendingAtCutoff int `json:"pending_at_cutoff"`

	OnTimeRate float64 `json:"on_time_rate"`
	FailedRate float64 `json:"failed_rate"`

	AvgQueueWaitMin float64 `json:"avg_queue_wait_min"`
	AvgCycleMin     float64 `json:"avg_cycle_min"`
	P50CycleMin     float64 `json:"p50_cycle_min"`
	P90CycleMin     float64 `json:"p90_cycle_min"`

	DrivePct float64 `json:"drive_pct"`
	PrepPct  float64 `json:"prep_pct"`
	IdlePct  float64 `json:"idle_pct"`

	Revenue           float64         `json:"revenue"`
	RevenuePerGroup   float64         `json:"revenue_per_group"`
	AvgOrderValue     float64         `json:"avg_order_value"`
	OrdersPerRunnerHr float64         `json:"orders_per_runner_hour"`
	RunnerHours       float64         `json:"runner_hours"`
	DriveMinPerOrder  float64         `json:"drive_min_per_order"`
	BreakEvenOrdersHr float64         `json:"break_even_orders_per_hour"`
	ZoneCycleMinutes  map[int]float64 `json:"zone_cycle_minutes"`
	ZoneDeliveries    map[int]int     `json:"zone_deliveries"`

	// Degenerate marks runs with zero deliveries, where rate and percentile
	// fields carry sentinel zeros instead of meaningful values.
	Degenerate bool `json:"degenerate"`
}

// Scenario is one named point in the optimizer's search space, evaluated
// across several seeded repetitions.
type Scenario struct {
	Name           string  `json:"name"`
	VolumeTier     string  `json:"volume_tier"`
	TotalOrders    int     `json:"total_orders"`
	OrdersPerHour  float64 `json:"orders_per_hour"`
	Runners        int     `json:"runners"`
	BlockingPolicy string  `json:"blocking_policy"`
	BlockedZones   int     `json:"blocked_zones"`
	Repetitions    int     `json:"repetitions"`
}

// ScenarioResult aggregates a scenario's repetition snapshots into the
// published per-configuration figures and the verdict against the SLA
// target.
type ScenarioResult struct {
	Scenario Scenario `json:"scenario"`

	AchievedSLA     float64 `json:"achieved_sla"`
	FailedRate      float64 `json:"failed_rate"`
	MeanWaitMin     float64 `json:"mean_wait_min"`
	MeanCycleMin    float64 `json:"mean_cycle_min"`
	P90CycleMin     float64 `json:"p90_cycle_min"`
	Revenue         float64 `json:"revenue"`
	RunnerCost      float64 `json:"runner_cost"`
	MeetsTarget     bool    `json:"meets_target"`
	Verdict         string  `json:"verdict"`
	Snapshots       []MetricsSnapshot `json:"-"`
}

// Margin is revenue net of runner wages across the scenario's active hours.
func (r ScenarioResult) Margin() float64 {
	return r.Revenue - r.RunnerCost
}

// OptimizationSummary is the full output of a sweep: every evaluated
// scenario ranked, the best performer, the cheapest configuration meeting
// the target (if any), and a staffing plan keyed to volume bands.
type OptimizationSummary struct {
	SLATarget      float64          `json:"sla_target"`
	Results        []ScenarioResult `json:"results"`
	Best           *ScenarioResult  `json:"best"`
	Recommended    *ScenarioResult  `json:"recommended"`
	Recommendation string           `json:"recommendation"`
	Shortfall      float64          `json:"shortfall"`
	StaffingPlan   []StaffingBand   `json:"staffing_plan"`

	// BreakEvenByTier estimates, per volume tier, the orders-per-hour at
	// which one more runner pays for itself, interpolated from adjacent
	// runner-count scenarios.
	BreakEvenByTier map[string]float64 `json:"break_even_by_tier"`
}

// StaffingBand recommends a fleet size and blocking policy for one
// order-volume band.
type StaffingBand struct {
	VolumeTier     string  `json:"volume_tier"`
	OrdersPerHour  float64 `json:"orders_per_hour"`
	Runners        int     `json:"runners"`
	BlockingPolicy string  `json:"blocking_policy"`
	AchievedSLA    float64 `json:"achieved_sla"`
	MeetsTarget    bool    `json:"meets_target"`
}
