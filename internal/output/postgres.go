package output

import (
	"database/sql"
	"fmt"

	"github.com/fairwaysim/fairwaysim/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresOutput persists the event stream and the published result
// documents. The core only ever writes; reporting tools query these tables
// directly.
type PostgresOutput struct {
	db *sql.DB
}

func NewPostgresOutput(dsn string) (*PostgresOutput, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres output requires a DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	p := &PostgresOutput{db: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PostgresOutput) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS simulation_events (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			payload JSONB NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS run_metrics (
			run_id TEXT PRIMARY KEY,
			seed BIGINT NOT NULL,
			active_hours DOUBLE PRECISION NOT NULL,
			total_orders INT NOT NULL,
			total_groups INT NOT NULL,
			delivered_orders INT NOT NULL,
			failed_orders INT NOT NULL,
			pending_at_cutoff INT NOT NULL,
			on_time_rate DOUBLE PRECISION NOT NULL,
			failed_rate DOUBLE PRECISION NOT NULL,
			avg_queue_wait_min DOUBLE PRECISION NOT NULL,
			avg_cycle_min DOUBLE PRECISION NOT NULL,
			p90_cycle_min DOUBLE PRECISION NOT NULL,
			revenue DOUBLE PRECISION NOT NULL,
			revenue_per_group DOUBLE PRECISION NOT NULL,
			orders_per_runner_hour DOUBLE PRECISION NOT NULL,
			break_even_orders_per_hour DOUBLE PRECISION NOT NULL,
			degenerate BOOLEAN NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS scenario_results (
			name TEXT NOT NULL,
			volume_tier TEXT NOT NULL,
			orders_per_hour DOUBLE PRECISION NOT NULL,
			runners INT NOT NULL,
			blocking_policy TEXT NOT NULL,
			repetitions INT NOT NULL,
			achieved_sla DOUBLE PRECISION NOT NULL,
			failed_rate DOUBLE PRECISION NOT NULL,
			mean_wait_min DOUBLE PRECISION NOT NULL,
			p90_cycle_min DOUBLE PRECISION NOT NULL,
			revenue DOUBLE PRECISION NOT NULL,
			runner_cost DOUBLE PRECISION NOT NULL,
			meets_target BOOLEAN NOT NULL,
			verdict TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresOutput) WriteMessage(topic string, msg []byte) error {
	_, err := p.db.Exec(
		`INSERT INTO simulation_events (topic, payload) VALUES ($1, $2)`,
		topic, msg,
	)
	if err != nil {
		return fmt.Errorf("error inserting event for topic %s: %w", topic, err)
	}
	return nil
}

// InsertRunSnapshot records one run's metrics snapshot.
func (p *PostgresOutput) InsertRunSnapshot(snap models.MetricsSnapshot) error {
	_, err := p.db.Exec(`
		INSERT INTO run_metrics (
			run_id, seed, active_hours, total_orders, total_groups,
			delivered_orders, failed_orders, pending_at_cutoff,
			on_time_rate, failed_rate, avg_queue_wait_min, avg_cycle_min,
			p90_cycle_min, revenue, revenue_per_group,
			orders_per_runner_hour, break_even_orders_per_hour, degenerate
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (run_id) DO NOTHING`,
		snap.RunID, snap.Seed, snap.ActiveHours, snap.TotalOrders, snap.TotalGroups,
		snap.DeliveredOrders, snap.FailedOrders, snap.PendingAtCutoff,
		snap.OnTimeRate, snap.FailedRate, snap.AvgQueueWaitMin, snap.AvgCycleMin,
		snap.P90CycleMin, snap.Revenue, snap.RevenuePerGroup,
		snap.OrdersPerRunnerHr, snap.BreakEvenOrdersHr, snap.Degenerate,
	)
	if err != nil {
		return fmt.Errorf("error inserting run snapshot %s: %w", snap.RunID, err)
	}
	return nil
}

// BatchInsertScenarioResults records a sweep's scenario table in one
// transaction.
func (p *PostgresOutput) BatchInsertScenarioResults(results []models.ScenarioResult) error {
	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scenario_results (
			name, volume_tier, orders_per_hour, runners, blocking_policy,
			repetitions, achieved_sla, failed_rate, mean_wait_min,
			p90_cycle_min, revenue, runner_cost, meets_target, verdict
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(
			r.Scenario.Name, r.Scenario.VolumeTier, r.Scenario.OrdersPerHour,
			r.Scenario.Runners, r.Scenario.BlockingPolicy, r.Scenario.Repetitions,
			r.AchievedSLA, r.FailedRate, r.MeanWaitMin,
			r.P90CycleMin, r.Revenue, r.RunnerCost, r.MeetsTarget, r.Verdict,
		)
		if err != nil {
			return fmt.Errorf("error inserting scenario %s: %w", r.Scenario.Name, err)
		}
	}

	return tx.Commit()
}

func (p *PostgresOutput) Close() error {
	return p.db.Close()
}
