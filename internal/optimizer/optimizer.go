package optimizer

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"github.com/fairwaysim/fairwaysim/internal/generator"
	"github.com/fairwaysim/fairwaysim/internal/models"
	"github.com/fairwaysim/fairwaysim/internal/sim"
	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// Optimizer sweeps the configured search space (volume tiers, runner
// counts, blocking policies), running each cell several times with
// independent seeds, and reports the cheapest configuration that meets the
// target on-time rate.
type Optimizer struct {
	cfg    *models.Config
	course *models.Course
}

// cell is one configuration of the sweep's cross product.
type cell struct {
	tier    models.VolumeTierConfig
	runners int
	policy  models.BlockingPolicy
}

func New(cfg *models.Config) (*Optimizer, error) {
	course, err := cfg.Course()
	if err != nil {
		return nil, err
	}
	return &Optimizer{cfg: cfg, course: course}, nil
}

// Run executes the full sweep. Runs share no mutable state, so cells execute
// on parallel workers; each result lands in its own pre-sized slot and
// completion order does not matter.
func (o *Optimizer) Run(ctx context.Context) (*models.OptimizationSummary, error) {
	cells, err := o.searchSpace()
	if err != nil {
		return nil, err
	}
	reps := o.cfg.Repetitions
	if reps <= 0 {
		reps = 1
	}

	snapshots := make([][]models.MetricsSnapshot, len(cells))
	for i := range snapshots {
		snapshots[i] = make([]models.MetricsSnapshot, reps)
	}

	bar := progressbar.Default(int64(len(cells)*reps), "simulating scenarios")

	g, ctx := errgroup.WithContext(ctx)
	limit := o.cfg.MaxParallelRuns
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)

	for ci := range cells {
		for rep := 0; rep < reps; rep++ {
			ci, rep := ci, rep
			g.Go(func() error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				snap, err := o.runOnce(cells[ci], rep)
				if err != nil {
					return err
				}
				snapshots[ci][rep] = snap
				_ = bar.Add(1)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]models.ScenarioResult, len(cells))
	for ci, c := range cells {
		results[ci] = o.aggregate(c, snapshots[ci])
	}

	return o.summarize(results), nil
}

// runOnce executes a single (configuration × repetition) simulation. Each
// repetition derives its own seed from the base seed and the cell label, so
// runs are reproducible and independent.
func (o *Optimizer) runOnce(c cell, rep int) (models.MetricsSnapshot, error) {
	label := fmt.Sprintf("%s|%dr|%s|rep%d", c.tier.Name, c.runners, c.policy.Name, rep)
	seed := sim.DeriveSeed(o.cfg.Seed, label)

	course, err := o.course.WithBlocking(c.policy)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}

	open, close := o.cfg.RunWindow()
	rc := models.RunConfig{
		RunID:              cuid.New(),
		Seed:               seed,
		Runners:            c.runners,
		TotalOrders:        c.tier.TotalOrders,
		OrdersPerHour:      c.tier.OrdersPerHour,
		Blocking:           c.policy,
		MaxWaitMinutes:     o.cfg.MaxWaitMinutes,
		TargetCycleMinutes: o.cfg.TargetCycleMinutes,
		OpenAt:             open,
		CloseAt:            close,
		RunnerHourlyCost:   o.cfg.RunnerHourlyCost,
		MarginRate:         o.cfg.MarginRate,
	}

	gen := generator.New(o.cfg, course, seed)
	groups, orders := gen.Generate(rc)

	engine, err := sim.NewEngine(rc, course, groups, orders)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}
	result := engine.Run()
	return sim.Compute(result), nil
}

// aggregate averages a cell's repetition snapshots into its ScenarioResult
// and applies the verdict.
func (o *Optimizer) aggregate(c cell, snaps []models.MetricsSnapshot) models.ScenarioResult {
	scenario := models.Scenario{
		Name:           fmt.Sprintf("%s_%dr_%s", c.tier.Name, c.runners, c.policy.Name),
		VolumeTier:     c.tier.Name,
		TotalOrders:    c.tier.TotalOrders,
		OrdersPerHour:  c.tier.OrdersPerHour,
		Runners:        c.runners,
		BlockingPolicy: c.policy.Name,
		BlockedZones:   c.policy.BlockedCount(),
		Repetitions:    len(snaps),
	}

	r := models.ScenarioResult{Scenario: scenario, Snapshots: snaps}
	n := float64(len(snaps))
	for _, s := range snaps {
		r.AchievedSLA += s.OnTimeRate / n
		r.FailedRate += s.FailedRate / n
		r.MeanWaitMin += s.AvgQueueWaitMin / n
		r.MeanCycleMin += s.AvgCycleMin / n
		r.P90CycleMin += s.P90CycleMin / n
		r.Revenue += s.Revenue / n
	}
	r.RunnerCost = float64(c.runners) * o.cfg.RunnerHourlyCost * o.cfg.ServiceHours
	r.MeetsTarget = r.AchievedSLA >= o.cfg.SLATarget
	if r.MeetsTarget {
		r.Verdict = models.VerdictRecommended
	} else {
		r.Verdict = models.VerdictRejected
	}
	return r
}

// summarize ranks the results, selects the best performer and the cheapest
// passing configuration, and derives the staffing plan. Search exhaustion,
// where nothing meets the target, is a normal reportable outcome.
func (o *Optimizer) summarize(results []models.ScenarioResult) *models.OptimizationSummary {
	summary := &models.OptimizationSummary{
		SLATarget:       o.cfg.SLATarget,
		Results:         rankResults(results),
		BreakEvenByTier: breakEvenByTier(results, o.cfg),
	}

	if len(summary.Results) == 0 {
		summary.Recommendation = "no scenarios evaluated"
		return summary
	}

	best := summary.Results[0]
	summary.Best = &best

	if recommended := cheapestPassing(summary.Results); recommended != nil {
		summary.Recommended = recommended
		summary.Recommendation = fmt.Sprintf(
			"scenario %s meets the %.0f%% on-time target with %d runner(s) and blocking policy %q",
			recommended.Scenario.Name, o.cfg.SLATarget*100,
			recommended.Scenario.Runners, recommended.Scenario.BlockingPolicy)
	} else {
		summary.Shortfall = o.cfg.SLATarget - best.AchievedSLA
		summary.Recommendation = fmt.Sprintf(
			"no scenario achieved the %.0f%% on-time target; best is %s at %.1f%% (shortfall %.1f points)",
			o.cfg.SLATarget*100, best.Scenario.Name,
			best.AchievedSLA*100, summary.Shortfall*100)
	}

	summary.StaffingPlan = staffingPlan(summary.Results, o.cfg.SLATarget)
	return summary
}

// rankResults orders scenarios best-first: highest achieved SLA, then
// fewest runners, then least-restrictive blocking.
func rankResults(results []models.ScenarioResult) []models.ScenarioResult {
	ranked := make([]models.ScenarioResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.AchievedSLA != b.AchievedSLA {
			return a.AchievedSLA > b.AchievedSLA
		}
		if a.Scenario.Runners != b.Scenario.Runners {
			return a.Scenario.Runners < b.Scenario.Runners
		}
		return a.Scenario.BlockedZones < b.Scenario.BlockedZones
	})
	return ranked
}

// cheapestPassing picks the lowest-cost configuration meeting the target:
// fewest runners, then least-restrictive blocking, then highest SLA.
func cheapestPassing(results []models.ScenarioResult) *models.ScenarioResult {
	var pick *models.ScenarioResult
	for i := range results {
		r := &results[i]
		if !r.MeetsTarget {
			continue
		}
		if pick == nil {
			pick = r
			continue
		}
		switch {
		case r.Scenario.Runners != pick.Scenario.Runners:
			if r.Scenario.Runners < pick.Scenario.Runners {
				pick = r
			}
		case r.Scenario.BlockedZones != pick.Scenario.BlockedZones:
			if r.Scenario.BlockedZones < pick.Scenario.BlockedZones {
				pick = r
			}
		case r.AchievedSLA > pick.AchievedSLA:
			pick = r
		}
	}
	return pick
}

// searchSpace builds the explicit cross product of the sweep. Single-run
// settings act as one-element dimensions so the optimizer degrades cleanly
// to a repeated single scenario.
func (o *Optimizer) searchSpace() ([]cell, error) {
	tiers := o.cfg.VolumeTiers
	if len(tiers) == 0 {
		tiers = []models.VolumeTierConfig{{
			Name:          "baseline",
			TotalOrders:   o.cfg.TotalOrders,
			OrdersPerHour: o.cfg.OrdersPerHour,
		}}
	}
	runnerOptions := o.cfg.RunnerOptions
	if len(runnerOptions) == 0 {
		runnerOptions = []int{o.cfg.Runners}
	}
	blockingOptions := o.cfg.BlockingOptions
	if len(blockingOptions) == 0 {
		blockingOptions = []string{o.cfg.BlockingPolicy}
	}

	var cells []cell
	for _, tier := range tiers {
		for _, runners := range runnerOptions {
			for _, policyName := range blockingOptions {
				policy, err := models.ResolveBlockingPolicy(policyName)
				if err != nil {
					return nil, err
				}
				cells = append(cells, cell{tier: tier, runners: runners, policy: policy})
			}
		}
	}
	return cells, nil
}
