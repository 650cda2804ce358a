package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairwaysim/fairwaysim/internal/models"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fairwaysim",
	Short: "Simulates on-course food and beverage delivery operations",
	Long: `fairwaysim is a CLI tool that replays a golf course's food and beverage
service day as a discrete-event simulation: order arrivals across the holes,
runner dispatch from the clubhouse, delivery legs, and the resulting service
metrics. It can run a single configured day or sweep staffing and
hole-blocking configurations to find the cheapest fleet that meets a
delivery-time SLA.`,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a single service day and report its metrics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := runSimulate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error running simulation: %v\n", err)
			os.Exit(1)
		}
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Sweep runner counts and blocking policies against the SLA target",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		if err := runOptimize(signalContext(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error running optimization: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is examples/config.json)")

	flags := rootCmd.PersistentFlags()
	flags.Int64("seed", 42, "Base random seed")
	flags.String("start-date", time.Now().Format(time.RFC3339), "Service day open time")
	flags.Float64("service-hours", 10.0, "Length of the service day in hours")
	flags.Int("runners", 1, "Number of delivery runners")
	flags.Int("total-orders", 20, "Total orders to generate")
	flags.Float64("orders-per-hour", 4.0, "Mean order arrival rate")
	flags.String("blocking-policy", "none", "Hole blocking policy (none, front_nine, back_nine, front_back, outer_holes)")
	flags.Float64("max-wait-minutes", 30.0, "Queue wait before an order is abandoned")
	flags.Float64("target-cycle-minutes", 40.0, "Delivery cycle time counted as on-time")
	flags.Float64("sla-target", 0.9, "Required on-time rate")
	flags.Int("repetitions", 5, "Seeded repetitions per scenario")
	flags.String("tee-sheet-path", "", "Tab-separated tee sheet to replay instead of rate arrivals")
	flags.String("output-format", "console", "Output destination (console, json, csv, parquet, postgres)")
	flags.String("output-folder", "output", "Folder for file-based outputs")
	flags.Bool("kafka-enabled", false, "Stream events to Kafka")
	flags.String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	flags.Bool("verbose", false, "Log every processed event")

	// Flag names are kebab-case on the command line; config keys are
	// snake_case, so bind each flag to its config key explicitly.
	for flagName, key := range map[string]string{
		"seed":                 "seed",
		"start-date":           "start_date",
		"service-hours":        "service_hours",
		"runners":              "runners",
		"total-orders":         "total_orders",
		"orders-per-hour":      "orders_per_hour",
		"blocking-policy":      "blocking_policy",
		"max-wait-minutes":     "max_wait_minutes",
		"target-cycle-minutes": "target_cycle_minutes",
		"sla-target":           "sla_target",
		"repetitions":          "repetitions",
		"tee-sheet-path":       "tee_sheet_path",
		"output-format":        "output_format",
		"output-folder":        "output_folder",
		"kafka-enabled":        "kafka_enabled",
		"kafka-broker-list":    "kafka_broker_list",
		"verbose":              "verbose",
	} {
		viper.BindPFlag(key, flags.Lookup(flagName))
	}

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(optimizeCmd)
}

func mustLoadConfig() *models.Config {
	cfg, err := models.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.TeeSheetPath != "" && len(cfg.TeeTimes) == 0 {
		if err := cfg.LoadTeeSheet(cfg.TeeSheetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading tee sheet: %v\n", err)
			os.Exit(1)
		}
	}
	return cfg
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()
	return ctx
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
