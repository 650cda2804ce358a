package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/fairwaysim/fairwaysim/internal/generator"
	"github.com/fairwaysim/fairwaysim/internal/models"
	"github.com/fairwaysim/fairwaysim/internal/optimizer"
	"github.com/fairwaysim/fairwaysim/internal/output"
	"github.com/fairwaysim/fairwaysim/internal/sim"

	"github.com/lucsky/cuid"
)

func runSimulate(cfg *models.Config) error {
	course, err := cfg.Course()
	if err != nil {
		return err
	}
	policy, err := models.ResolveBlockingPolicy(cfg.BlockingPolicy)
	if err != nil {
		return err
	}
	course, err = course.WithBlocking(policy)
	if err != nil {
		return err
	}

	openAt, closeAt := cfg.RunWindow()
	rc := models.RunConfig{
		RunID:              cuid.New(),
		Seed:               cfg.Seed,
		Runners:            cfg.Runners,
		TotalOrders:        cfg.TotalOrders,
		OrdersPerHour:      cfg.OrdersPerHour,
		Blocking:           policy,
		MaxWaitMinutes:     cfg.MaxWaitMinutes,
		TargetCycleMinutes: cfg.TargetCycleMinutes,
		OpenAt:             openAt,
		CloseAt:            closeAt,
		RunnerHourlyCost:   cfg.RunnerHourlyCost,
		MarginRate:         cfg.MarginRate,
	}

	gen := generator.New(cfg, course, cfg.Seed)
	groups, orders := gen.Generate(rc)

	engine, err := sim.NewEngine(rc, course, groups, orders)
	if err != nil {
		return err
	}

	dest, err := output.Determine(cfg)
	if err != nil {
		return err
	}
	defer dest.Close()
	engine.AttachSink(dest)
	engine.SetVerbose(cfg.Verbose)

	result := engine.Run()
	snap := sim.Compute(result)

	if pg, ok := dest.(*output.PostgresOutput); ok {
		if err := pg.InsertRunSnapshot(snap); err != nil {
			return err
		}
	}

	printSnapshot(snap)
	return nil
}

func runOptimize(ctx context.Context, cfg *models.Config) error {
	opt, err := optimizer.New(cfg)
	if err != nil {
		return err
	}

	summary, err := opt.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(summary)

	if cfg.OutputFormat == "postgres" && cfg.PostgresDSN != "" {
		pg, err := output.NewPostgresOutput(cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.BatchInsertScenarioResults(summary.Results); err != nil {
			return err
		}
	}
	return nil
}

func printSnapshot(snap models.MetricsSnapshot) {
	fmt.Printf("\nRun %s (seed %d, %.1fh service day)\n", snap.RunID, snap.Seed, snap.ActiveHours)
	if snap.Degenerate {
		fmt.Println("No orders were delivered; rate and percentile figures are zero.")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Orders\t%d (%d groups)\n", snap.TotalOrders, snap.TotalGroups)
	fmt.Fprintf(w, "Delivered\t%d\n", snap.DeliveredOrders)
	fmt.Fprintf(w, "Failed\t%d (%.1f%%)\n", snap.FailedOrders, snap.FailedRate*100)
	fmt.Fprintf(w, "On-time rate\t%.1f%%\n", snap.OnTimeRate*100)
	fmt.Fprintf(w, "Avg queue wait\t%.1f min\n", snap.AvgQueueWaitMin)
	fmt.Fprintf(w, "Cycle time\tavg %.1f / p50 %.1f / p90 %.1f min\n", snap.AvgCycleMin, snap.P50CycleMin, snap.P90CycleMin)
	fmt.Fprintf(w, "Runner time\tdrive %.1f%% / prep %.1f%% / idle %.1f%%\n", snap.DrivePct*100, snap.PrepPct*100, snap.IdlePct*100)
	fmt.Fprintf(w, "Revenue\t$%.2f ($%.2f per group)\n", snap.Revenue, snap.RevenuePerGroup)
	fmt.Fprintf(w, "Throughput\t%.2f orders per runner-hour\n", snap.OrdersPerRunnerHr)
	fmt.Fprintf(w, "Break-even\t%.2f orders/hr per runner\n", snap.BreakEvenOrdersHr)
	w.Flush()

	if len(snap.ZoneDeliveries) > 0 {
		zones := make([]int, 0, len(snap.ZoneDeliveries))
		for id := range snap.ZoneDeliveries {
			zones = append(zones, id)
		}
		sort.Ints(zones)
		fmt.Println("\nPer-hole deliveries:")
		zw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, id := range zones {
			fmt.Fprintf(zw, "Hole %d\t%d delivered\tavg cycle %.1f min\n",
				id, snap.ZoneDeliveries[id], snap.ZoneCycleMinutes[id])
		}
		zw.Flush()
	}
}

func printSummary(summary *models.OptimizationSummary) {
	fmt.Printf("\nEvaluated %d scenarios against a %.0f%% on-time SLA\n\n",
		len(summary.Results), summary.SLATarget*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tRUNNERS\tBLOCKING\tSLA\tFAILED\tP90 CYCLE\tMARGIN\tVERDICT")
	for _, r := range summary.Results {
		fmt.Fprintf(w, "%s\t%d\t%s\t%.1f%%\t%.1f%%\t%.1f min\t$%.2f\t%s\n",
			r.Scenario.Name, r.Scenario.Runners, r.Scenario.BlockingPolicy,
			r.AchievedSLA*100, r.FailedRate*100, r.P90CycleMin, r.Margin(), r.Verdict)
	}
	w.Flush()

	fmt.Println()
	fmt.Println(summary.Recommendation)
	if summary.Recommended == nil && summary.Best != nil {
		fmt.Printf("Best available: %s at %.1f%% on-time (%.1f points short)\n",
			summary.Best.Scenario.Name, summary.Best.AchievedSLA*100, summary.Shortfall*100)
	}

	if len(summary.StaffingPlan) > 0 {
		fmt.Println("\nStaffing plan by volume:")
		sw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(sw, "VOLUME\tORDERS/HR\tRUNNERS\tBLOCKING\tSLA")
		for _, band := range summary.StaffingPlan {
			marker := ""
			if !band.MeetsTarget {
				marker = " (below target)"
			}
			fmt.Fprintf(sw, "%s\t%.1f\t%d\t%s\t%.1f%%%s\n",
				band.VolumeTier, band.OrdersPerHour, band.Runners,
				band.BlockingPolicy, band.AchievedSLA*100, marker)
		}
		sw.Flush()
	}

	if len(summary.BreakEvenByTier) > 0 {
		tiers := make([]string, 0, len(summary.BreakEvenByTier))
		for tier := range summary.BreakEvenByTier {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		fmt.Println("\nMarginal runner break-even:")
		for _, tier := range tiers {
			fmt.Printf("  %s: an extra runner pays for itself above %.1f orders/hr\n",
				tier, summary.BreakEvenByTier[tier])
		}
	}
}
