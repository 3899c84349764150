package domain

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"example.com/analytics/internal/clock"
	"example.com/analytics/internal/progress"
)

// standardShiftHours is the reference shift length for score derivation.
const standardShiftHours = 8.0

// maxShiftEfficiency caps derived efficiency at 150% of a standard shift.
const maxShiftEfficiency = 1.5

// weekClosingDay is the weekday whose record closes a 7-day rollup window.
const weekClosingDay = time.Sunday

// Repository captures persistence operations for records, teams, and rollups.
type Repository interface {
	DailyRecordExists(ctx context.Context, tenantID, teamID string, date time.Time) (bool, error)
	InsertDailyRecord(ctx context.Context, record DailyRecord) error
	ListDailyRecords(ctx context.Context, tenantID, teamID string, from, to time.Time, limit int) ([]DailyRecord, error)
	GetTeam(ctx context.Context, tenantID, teamID string) (*Team, error)
	ListTeams(ctx context.Context, tenantID string) ([]Team, error)
	UpsertTeamMetrics(ctx context.Context, metrics TeamMetrics) error
	ListTeamMetrics(ctx context.Context, tenantID, teamID string, limit int) ([]TeamMetrics, error)
}

// PartidaRepository reads work items for progress reporting.
type PartidaRepository interface {
	ListPartidas(ctx context.Context, tenantID, projectID string) ([]progress.Partida, error)
}

// Service orchestrates productivity workflows.
type Service struct {
	repo   Repository
	clock  clock.Clock
	logger *log.Logger
}

// Option configures optional Service behaviour.
type Option func(*Service)

// WithClock overrides the time source used for window math.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLogger overrides the logger used for rollup failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		clock:  clock.System(),
		logger: log.New(log.Writer(), "[productivity] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInput captures the payload for a daily productivity entry.
type RecordInput struct {
	TenantID          string
	TeamID            string
	Date              time.Time
	HoursWorked       float64
	TasksCompleted    int
	UnitsCompleted    int
	ProductivityScore *float64
	QualityScore      *float64
	SafetyIncidents   int
	Notes             string
	RecordedBy        string
}

// RecordDailyProductivity writes one day's entry for a team. The in-process
// existence check produces a friendly error for the common case; the unique
// constraint in Postgres remains the authoritative guard against races.
// A record landing on the week-closing day triggers a rollup whose failure
// is logged but never fails the write.
func (s *Service) RecordDailyProductivity(ctx context.Context, input RecordInput) (*DailyRecord, error) {
	team, err := s.repo.GetTeam(ctx, input.TenantID, input.TeamID)
	if err != nil {
		return nil, err
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}

	date := DateOf(input.Date)

	exists, err := s.repo.DailyRecordExists(ctx, input.TenantID, input.TeamID, date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateRecord
	}

	score := input.ProductivityScore
	if score == nil && team.ProductivityTarget > 0 {
		derived := deriveScore(input.HoursWorked, team.ProductivityTarget)
		score = &derived
	}

	record := DailyRecord{
		ID:                uuid.NewString(),
		TenantID:          input.TenantID,
		TeamID:            input.TeamID,
		Date:              date,
		HoursWorked:       input.HoursWorked,
		TasksCompleted:    input.TasksCompleted,
		UnitsCompleted:    input.UnitsCompleted,
		ProductivityScore: score,
		QualityScore:      input.QualityScore,
		SafetyIncidents:   input.SafetyIncidents,
		Notes:             input.Notes,
		RecordedBy:        input.RecordedBy,
		CreatedAt:         s.clock.Now(),
	}

	if err := s.repo.InsertDailyRecord(ctx, record); err != nil {
		return nil, err
	}

	if IsWeekClosingDay(date) {
		if _, rollupErr := s.RecomputeWeeklyMetrics(ctx, input.TenantID, input.TeamID, date); rollupErr != nil {
			s.logger.Printf("weekly rollup failed (team=%s, week_ending=%s): %v",
				input.TeamID, date.Format("2006-01-02"), rollupErr)
		}
	}

	return &record, nil
}

// IsWeekClosingDay reports whether the date falls on the weekday whose record
// closes a weekly rollup window.
func IsWeekClosingDay(t time.Time) bool {
	return t.Weekday() == weekClosingDay
}

// deriveScore estimates a productivity score from hours worked when no
// explicit score was supplied.
func deriveScore(hoursWorked float64, target int) float64 {
	efficiency := math.Min(hoursWorked/standardShiftHours, maxShiftEfficiency)
	return math.Round(efficiency * float64(target))
}

// RecomputeWeeklyMetrics rolls up the 7-day window ending at weekEnding into
// the team's metrics snapshot. An empty window is a no-op and returns nil.
// The upsert is atomic, so concurrent triggers for the same week converge.
func (s *Service) RecomputeWeeklyMetrics(ctx context.Context, tenantID, teamID string, weekEnding time.Time) (*TeamMetrics, error) {
	end := DateOf(weekEnding)
	start := end.AddDate(0, 0, -6)

	window, err := s.repo.ListDailyRecords(ctx, tenantID, teamID, start, end, 0)
	if err != nil {
		return nil, err
	}

	metrics := ComputeWeeklyMetrics(tenantID, teamID, end, window, s.clock.Now())
	if metrics == nil {
		return nil, nil
	}

	if err := s.repo.UpsertTeamMetrics(ctx, *metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// TeamProductivitySummary fetches a window of records and summarises it.
// A zero from/to leaves the corresponding bound open.
func (s *Service) TeamProductivitySummary(ctx context.Context, tenantID, teamID string, from, to time.Time, limit int) (*Team, []DailyRecord, ProductivitySummary, error) {
	team, err := s.repo.GetTeam(ctx, tenantID, teamID)
	if err != nil {
		return nil, nil, ProductivitySummary{}, err
	}
	if team == nil {
		return nil, nil, ProductivitySummary{}, ErrTeamNotFound
	}

	records, err := s.repo.ListDailyRecords(ctx, tenantID, teamID, from, to, limit)
	if err != nil {
		return nil, nil, ProductivitySummary{}, err
	}

	return team, records, Summarize(*team, records), nil
}
