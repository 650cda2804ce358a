package models

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// TeeTime is one entry of an externally supplied tee sheet: a party and the
// time it starts its round.
type TeeTime struct {
	Start     time.Time `mapstructure:"start"`
	PartySize int       `mapstructure:"party_size"`
}

// VolumeTierConfig names one order-volume point of the optimizer's search
// space.
type VolumeTierConfig struct {
	Name          string  `mapstructure:"name"`
	TotalOrders   int     `mapstructure:"total_orders"`
	OrdersPerHour float64 `mapstructure:"orders_per_hour"`
}

type Config struct {
	Seed         int64     `mapstructure:"seed"`
	StartDate    time.Time `mapstructure:"start_date"`
	ServiceHours float64   `mapstructure:"service_hours"`

	Runners        int     `mapstructure:"runners"`
	TotalOrders    int     `mapstructure:"total_orders"`
	OrdersPerHour  float64 `mapstructure:"orders_per_hour"`
	BlockingPolicy string  `mapstructure:"blocking_policy"`

	MaxWaitMinutes     float64 `mapstructure:"max_wait_minutes"`
	TargetCycleMinutes float64 `mapstructure:"target_cycle_minutes"`

	// Order value and party size distributions.
	AvgOrderValue    float64   `mapstructure:"avg_order_value"`
	OrderValueStd    float64   `mapstructure:"order_value_std"`
	MinOrderValue    float64   `mapstructure:"min_order_value"`
	MaxOrderValue    float64   `mapstructure:"max_order_value"`
	GroupSizeWeights []float64 `mapstructure:"group_size_weights"` // weight of party sizes 1..n
	// Minutes over which members of one party place their individual
	// orders; zero means the whole party orders in a single moment.
	GroupOrderSpreadMin float64 `mapstructure:"group_order_spread_minutes"`

	// Tee-sheet replay mode.
	TeeSheetPath           string    `mapstructure:"tee_sheet_path"`
	TeeTimes               []TeeTime `mapstructure:"tee_times"`
	PaceMinutesPerHole     float64   `mapstructure:"pace_minutes_per_hole"`
	AvgOrdersPerGroupRound float64   `mapstructure:"avg_orders_per_group_round"`

	// Economics.
	RunnerHourlyCost float64 `mapstructure:"runner_hourly_cost"`
	MarginRate       float64 `mapstructure:"margin_rate"`

	// Optimizer search space.
	SLATarget       float64            `mapstructure:"sla_target"`
	Repetitions     int                `mapstructure:"repetitions"`
	MaxParallelRuns int                `mapstructure:"max_parallel_runs"`
	VolumeTiers     []VolumeTierConfig `mapstructure:"volume_tiers"`
	RunnerOptions   []int              `mapstructure:"runner_options"`
	BlockingOptions []string           `mapstructure:"blocking_options"`

	// Course topology override; empty means the default 18-hole table.
	Zones []Zone `mapstructure:"zones"`

	// Outputs.
	OutputFormat     string `mapstructure:"output_format"` // console, json, csv, parquet, postgres
	OutputFile       string `mapstructure:"output_file_path"`
	OutputFolder     string `mapstructure:"output_folder"`
	KafkaEnabled     bool   `mapstructure:"kafka_enabled"`
	KafkaBrokerList  string `mapstructure:"kafka_broker_list"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	CloudStorage     bool   `mapstructure:"cloud_storage"`
	S3Bucket         string `mapstructure:"s3_bucket"`
	S3Region         string `mapstructure:"s3_region"`

	Verbose bool `mapstructure:"verbose"`
}

// LoadConfig initializes and reads the configuration using Viper
func LoadConfig(cfgFile string) (*Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Default config location
		viper.AddConfigPath("examples")
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	viper.AutomaticEnv() // Read in environment variables that match

	viper.SetDefault("start_date", time.Now().Format(time.RFC3339))
	viper.SetDefault("service_hours", 10.0)
	viper.SetDefault("runners", 1)
	viper.SetDefault("orders_per_hour", 5.5)
	viper.SetDefault("total_orders", 20)
	viper.SetDefault("max_wait_minutes", 55.0)
	viper.SetDefault("group_order_spread_minutes", 15.0)
	viper.SetDefault("target_cycle_minutes", 40.0)
	viper.SetDefault("avg_order_value", 24.0)
	viper.SetDefault("order_value_std", 8.0)
	viper.SetDefault("min_order_value", 6.0)
	viper.SetDefault("max_order_value", 80.0)
	viper.SetDefault("pace_minutes_per_hole", 14.0)
	viper.SetDefault("avg_orders_per_group_round", 1.5)
	viper.SetDefault("runner_hourly_cost", 18.0)
	viper.SetDefault("margin_rate", 0.65)
	viper.SetDefault("sla_target", 0.9)
	viper.SetDefault("repetitions", 5)

	if err := viper.ReadInConfig(); err != nil {
		// A missing default config is fine: flags and defaults carry a run.
		// An explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := viper.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects malformed configuration before any simulated time
// advances. These are the only user-visible failures; everything after load
// is a recorded statistic.
func (cfg *Config) Validate() error {
	if cfg.Runners <= 0 {
		return fmt.Errorf("runners must be positive, got %d", cfg.Runners)
	}
	if cfg.ServiceHours <= 0 {
		return fmt.Errorf("service_hours must be positive, got %.1f", cfg.ServiceHours)
	}
	if cfg.OrdersPerHour < 0 || cfg.TotalOrders < 0 {
		return fmt.Errorf("order volume cannot be negative")
	}
	if cfg.SLATarget < 0 || cfg.SLATarget > 1 {
		return fmt.Errorf("sla_target must be within [0,1], got %.2f", cfg.SLATarget)
	}
	if _, err := ResolveBlockingPolicy(cfg.BlockingPolicy); err != nil {
		return err
	}
	for _, name := range cfg.BlockingOptions {
		if _, err := ResolveBlockingPolicy(name); err != nil {
			return err
		}
	}
	for _, n := range cfg.RunnerOptions {
		if n <= 0 {
			return fmt.Errorf("runner_options must be positive, got %d", n)
		}
	}
	for i, tt := range cfg.TeeTimes {
		if tt.PartySize <= 0 {
			return fmt.Errorf("tee sheet entry %d: party size must be positive", i)
		}
	}
	return nil
}

// Course builds the course topology for this configuration, either the
// default layout or the configured zone table.
func (cfg *Config) Course() (*Course, error) {
	if len(cfg.Zones) == 0 {
		return DefaultCourse(), nil
	}
	return NewCourse(cfg.Zones)
}

// RunWindow returns the open and close times of the simulated service day.
func (cfg *Config) RunWindow() (time.Time, time.Time) {
	return cfg.StartDate, cfg.StartDate.Add(time.Duration(cfg.ServiceHours * float64(time.Hour)))
}

// LoadTeeSheet reads a tab-separated tee sheet of "RFC3339 start\tparty
// size" rows into the configuration. A header row is skipped.
func (cfg *Config) LoadTeeSheet(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = '\t'
	reader.Read()

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(fields) < 2 {
			return fmt.Errorf("malformed tee sheet row %q: want start time and party size", fields)
		}
		start, err := time.Parse(time.RFC3339, fields[0])
		if err != nil {
			return fmt.Errorf("malformed tee time %q: %w", fields[0], err)
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("malformed party size %q: %w", fields[1], err)
		}
		cfg.TeeTimes = append(cfg.TeeTimes, TeeTime{Start: start, PartySize: size})
	}

	return nil
}
