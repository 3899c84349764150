// Package postgres provides pgx-backed persistence for productivity records,
// teams, weekly metrics, partidas, and the outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/events"
	"example.com/analytics/internal/observability"
	"example.com/analytics/internal/progress"
)

const uniqueViolation = "23505"

const dateFormat = "2006-01-02"

// Repository provides Postgres-backed persistence for the analytics service.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// DailyRecordExists reports whether a productivity record exists for the team and day.
func (r *Repository) DailyRecordExists(ctx context.Context, tenantID, teamID string, date time.Time) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return false, err
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM daily_productivity WHERE tenant_id=$1 AND team_id=$2 AND work_date=$3)`,
		tenantID, teamID, date,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, tx.Commit(ctx)
}

// InsertDailyRecord persists the record and its outbox event inside one
// transaction. A concurrent duplicate surfaces as ErrDuplicateRecord via the
// unique constraint, which is the authoritative guard.
func (r *Repository) InsertDailyRecord(ctx context.Context, record domain.DailyRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", record.TenantID); err != nil {
		return err
	}

	const insertRecord = `INSERT INTO daily_productivity
        (record_id, tenant_id, team_id, work_date, hours_worked, tasks_completed, units_completed,
         productivity_score, quality_score, safety_incidents, notes, recorded_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

	_, err = tx.Exec(ctx, insertRecord,
		record.ID,
		record.TenantID,
		record.TeamID,
		record.Date,
		record.HoursWorked,
		record.TasksCompleted,
		record.UnitsCompleted,
		record.ProductivityScore,
		record.QualityScore,
		record.SafetyIncidents,
		nullIfEmpty(record.Notes),
		record.RecordedBy,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = fmt.Errorf("%w: %v", domain.ErrDuplicateRecord, pgErr.ConstraintName)
		}
		return err
	}

	if err = r.insertOutbox(ctx, tx, record.TenantID, "daily_productivity", record.ID, "productivity.recorded", events.ProductivityRecorded{
		RecordID:        record.ID,
		TenantID:        record.TenantID,
		TeamID:          record.TeamID,
		Date:            record.Date.Format(dateFormat),
		HoursWorked:     record.HoursWorked,
		TasksCompleted:  record.TasksCompleted,
		UnitsCompleted:  record.UnitsCompleted,
		SafetyIncidents: record.SafetyIncidents,
		RecordedBy:      record.RecordedBy,
		RecordedAt:      record.CreatedAt,
	}, record.TenantID+":"+record.TeamID, record.ID+":productivity.recorded"); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordProductivityPersisted(record.CreatedAt)
	return nil
}

// ListDailyRecords returns records ordered by date descending. Zero bounds
// are open; a non-positive limit disables the cap.
func (r *Repository) ListDailyRecords(ctx context.Context, tenantID, teamID string, from, to time.Time, limit int) ([]domain.DailyRecord, error) {
	query := `SELECT record_id, tenant_id, team_id, work_date, hours_worked, tasks_completed, units_completed,
        productivity_score, quality_score, safety_incidents, COALESCE(notes, ''), recorded_by, created_at
        FROM daily_productivity WHERE tenant_id=$1 AND team_id=$2`
	args := []interface{}{tenantID, teamID}

	if !from.IsZero() {
		args = append(args, from)
		query += fmt.Sprintf(" AND work_date >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to)
		query += fmt.Sprintf(" AND work_date <= $%d", len(args))
	}

	query += " ORDER BY work_date DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DailyRecord, 0)
	for rows.Next() {
		var record domain.DailyRecord
		if err := rows.Scan(&record.ID, &record.TenantID, &record.TeamID, &record.Date,
			&record.HoursWorked, &record.TasksCompleted, &record.UnitsCompleted,
			&record.ProductivityScore, &record.QualityScore, &record.SafetyIncidents,
			&record.Notes, &record.RecordedBy, &record.CreatedAt); err != nil {
			return nil, err
		}
		record.Date = domain.DateOf(record.Date)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, tx.Commit(ctx)
}

// GetTeam retrieves a team by ID, or nil when absent.
func (r *Repository) GetTeam(ctx context.Context, tenantID, teamID string) (*domain.Team, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	var team domain.Team
	err = tx.QueryRow(ctx,
		`SELECT team_id, tenant_id, name, status, productivity_target, member_count
         FROM teams WHERE tenant_id=$1 AND team_id=$2`,
		tenantID, teamID,
	).Scan(&team.ID, &team.TenantID, &team.Name, &team.Status, &team.ProductivityTarget, &team.MemberCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}

	return &team, tx.Commit(ctx)
}

// ListTeams returns every team visible to the tenant.
func (r *Repository) ListTeams(ctx context.Context, tenantID string) ([]domain.Team, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT team_id, tenant_id, name, status, productivity_target, member_count
         FROM teams WHERE tenant_id=$1 ORDER BY name`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.TenantID, &team.Name, &team.Status, &team.ProductivityTarget, &team.MemberCount); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return teams, tx.Commit(ctx)
}

// UpsertTeamMetrics writes the weekly rollup as a single atomic conditional
// write keyed by (tenant, team, week_start), so concurrent rollup triggers
// for the same week converge to one row.
func (r *Repository) UpsertTeamMetrics(ctx context.Context, metrics domain.TeamMetrics) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", metrics.TenantID); err != nil {
		return err
	}

	const upsert = `INSERT INTO team_metrics
        (tenant_id, team_id, week_start, avg_productivity, avg_quality_score, attendance_rate, safety_score, tasks_completed, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (tenant_id, team_id, week_start) DO UPDATE SET
            avg_productivity = EXCLUDED.avg_productivity,
            avg_quality_score = EXCLUDED.avg_quality_score,
            attendance_rate = EXCLUDED.attendance_rate,
            safety_score = EXCLUDED.safety_score,
            tasks_completed = EXCLUDED.tasks_completed,
            updated_at = EXCLUDED.updated_at`

	_, err = tx.Exec(ctx, upsert,
		metrics.TenantID,
		metrics.TeamID,
		metrics.WeekStart,
		metrics.AvgProductivity,
		metrics.AvgQualityScore,
		metrics.AttendanceRate,
		metrics.SafetyScore,
		metrics.TasksCompleted,
		metrics.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, metrics.TenantID, "team_metrics",
		metrics.TeamID+":"+metrics.WeekStart.Format(dateFormat), "team_metrics.updated",
		events.TeamMetricsUpdated{
			TenantID:        metrics.TenantID,
			TeamID:          metrics.TeamID,
			WeekStart:       metrics.WeekStart.Format(dateFormat),
			AvgProductivity: metrics.AvgProductivity,
			AvgQualityScore: metrics.AvgQualityScore,
			AttendanceRate:  metrics.AttendanceRate,
			SafetyScore:     metrics.SafetyScore,
			TasksCompleted:  metrics.TasksCompleted,
			UpdatedAt:       metrics.UpdatedAt,
		}, metrics.TeamID,
		fmt.Sprintf("%s:%s:team_metrics.updated:%d", metrics.TeamID, metrics.WeekStart.Format(dateFormat), metrics.UpdatedAt.Unix()),
	); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordRollupWritten(metrics.UpdatedAt)
	return nil
}

// ListTeamMetrics returns the most recent weekly rollups, newest first.
func (r *Repository) ListTeamMetrics(ctx context.Context, tenantID, teamID string, limit int) ([]domain.TeamMetrics, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT tenant_id, team_id, week_start, avg_productivity, avg_quality_score, attendance_rate, safety_score, tasks_completed, updated_at
         FROM team_metrics WHERE tenant_id=$1 AND team_id=$2
         ORDER BY week_start DESC LIMIT $3`,
		tenantID, teamID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make([]domain.TeamMetrics, 0, limit)
	for rows.Next() {
		var m domain.TeamMetrics
		if err := rows.Scan(&m.TenantID, &m.TeamID, &m.WeekStart, &m.AvgProductivity, &m.AvgQualityScore,
			&m.AttendanceRate, &m.SafetyScore, &m.TasksCompleted, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.WeekStart = domain.DateOf(m.WeekStart)
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metrics, tx.Commit(ctx)
}

// ListPartidas returns the work items of a project in sequence order.
func (r *Repository) ListPartidas(ctx context.Context, tenantID, projectID string) ([]progress.Partida, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT partida_id, tenant_id, sequence,
            kit_material_inicial, kit_material_ajustado, faena_contratada, subcontrato_asignado,
            kit_inicial_cotizado, solped_inicial_emitida, kit_comprado, kit_disponible_bodega, kit_entregado_terreno,
            faena_ejecutada, entregado_calidad, trato_pagado, pago_cursado
         FROM partidas WHERE tenant_id=$1 AND project_id=$2 ORDER BY sequence`,
		tenantID, projectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partidas := make([]progress.Partida, 0)
	for rows.Next() {
		var p progress.Partida
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Sequence,
			&p.KitMaterialInicial, &p.KitMaterialAjustado, &p.FaenaContratada, &p.SubcontratoAsignado,
			&p.KitInicialCotizado, &p.SolpedInicialEmitida, &p.KitComprado, &p.KitDisponibleBodega, &p.KitEntregadoTerreno,
			&p.FaenaEjecutada, &p.EntregadoCalidad, &p.TratoPagado, &p.PagoCursado); err != nil {
			return nil, err
		}
		partidas = append(partidas, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return partidas, tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, tenantID, aggregateType, aggregateID, eventType string, payload interface{}, partitionKey, dedupeKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	// DO NOTHING keeps repeated rollup runs from stacking duplicate events.
	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		tenantID,
		aggregateType,
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"productivity.recorded": {
		Topic:         "productivity_events",
		SchemaSubject: "productivity_events-value",
	},
	"team_metrics.updated": {
		Topic:         "team_metrics_events",
		SchemaSubject: "team_metrics_events-value",
	},
}
