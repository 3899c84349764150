package domain

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/clock"
)

type stubRepo struct {
	team    *Team
	teamErr error

	exists    bool
	existsErr error

	inserted  []DailyRecord
	insertErr error

	records  []DailyRecord
	listErr  error
	listFrom time.Time
	listTo   time.Time

	upserted  []TeamMetrics
	upsertErr error
}

func (r *stubRepo) DailyRecordExists(ctx context.Context, tenantID, teamID string, date time.Time) (bool, error) {
	return r.exists, r.existsErr
}

func (r *stubRepo) InsertDailyRecord(ctx context.Context, record DailyRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, record)
	return nil
}

func (r *stubRepo) ListDailyRecords(ctx context.Context, tenantID, teamID string, from, to time.Time, limit int) ([]DailyRecord, error) {
	r.listFrom, r.listTo = from, to
	return r.records, r.listErr
}

func (r *stubRepo) GetTeam(ctx context.Context, tenantID, teamID string) (*Team, error) {
	return r.team, r.teamErr
}

func (r *stubRepo) ListTeams(ctx context.Context, tenantID string) ([]Team, error) {
	return nil, nil
}

func (r *stubRepo) UpsertTeamMetrics(ctx context.Context, metrics TeamMetrics) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserted = append(r.upserted, metrics)
	return nil
}

func (r *stubRepo) ListTeamMetrics(ctx context.Context, tenantID, teamID string, limit int) ([]TeamMetrics, error) {
	return nil, nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testService(repo *stubRepo, now time.Time) *Service {
	return NewService(repo, WithClock(clock.Fixed(now)), WithLogger(quietLogger()))
}

func TestRecordDailyProductivityDerivesScore(t *testing.T) {
	repo := &stubRepo{team: &Team{ID: "t-1", ProductivityTarget: 85}}
	service := testService(repo, day(0).Add(20*time.Hour))

	// Saturday, so no rollup trigger fires.
	record, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID:    "tenant-1",
		TeamID:      "t-1",
		Date:        day(-1),
		HoursWorked: 12,
		RecordedBy:  "capataz",
	})
	require.NoError(t, err)
	require.NotNil(t, record.ProductivityScore)
	// 12h against an 8h shift caps efficiency at 1.5: round(1.5 * 85) = 128.
	require.InDelta(t, 128.0, *record.ProductivityScore, 0.001)
	require.Len(t, repo.inserted, 1)
	require.Empty(t, repo.upserted)
}

func TestRecordDailyProductivityKeepsExplicitScore(t *testing.T) {
	repo := &stubRepo{team: &Team{ID: "t-1", ProductivityTarget: 85}}
	service := testService(repo, day(0))

	record, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID:          "tenant-1",
		TeamID:            "t-1",
		Date:              day(-1),
		HoursWorked:       12,
		ProductivityScore: score(40),
	})
	require.NoError(t, err)
	require.InDelta(t, 40.0, *record.ProductivityScore, 0.001)
}

func TestRecordDailyProductivityDuplicate(t *testing.T) {
	repo := &stubRepo{team: &Team{ID: "t-1", ProductivityTarget: 85}, exists: true}
	service := testService(repo, day(0))

	_, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID: "tenant-1",
		TeamID:   "t-1",
		Date:     day(-1),
	})
	require.ErrorIs(t, err, ErrDuplicateRecord)
	require.Empty(t, repo.inserted)
}

func TestRecordDailyProductivityUnknownTeam(t *testing.T) {
	service := testService(&stubRepo{}, day(0))

	_, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID: "tenant-1",
		TeamID:   "missing",
		Date:     day(-1),
	})
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestRecordOnWeekClosingDayTriggersRollup(t *testing.T) {
	repo := &stubRepo{
		team: &Team{ID: "t-1", ProductivityTarget: 85},
		records: []DailyRecord{
			{Date: day(0), TasksCompleted: 3, ProductivityScore: score(90)},
		},
	}
	service := testService(repo, day(0).Add(21*time.Hour))

	_, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID:    "tenant-1",
		TeamID:      "t-1",
		Date:        day(0), // Sunday
		HoursWorked: 8,
	})
	require.NoError(t, err)
	require.Len(t, repo.upserted, 1)
	require.Equal(t, day(-6), repo.upserted[0].WeekStart)
}

func TestRollupFailureDoesNotFailWrite(t *testing.T) {
	repo := &stubRepo{
		team:      &Team{ID: "t-1", ProductivityTarget: 85},
		records:   []DailyRecord{{Date: day(0), ProductivityScore: score(90)}},
		upsertErr: errors.New("postgres down"),
	}
	service := testService(repo, day(0))

	record, err := service.RecordDailyProductivity(context.Background(), RecordInput{
		TenantID:    "tenant-1",
		TeamID:      "t-1",
		Date:        day(0),
		HoursWorked: 8,
	})
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Len(t, repo.inserted, 1)
}

func TestRecomputeWeeklyMetricsWindowBounds(t *testing.T) {
	repo := &stubRepo{records: []DailyRecord{{Date: day(0), ProductivityScore: score(80)}}}
	service := testService(repo, day(0))

	metrics, err := service.RecomputeWeeklyMetrics(context.Background(), "tenant-1", "t-1", day(0))
	require.NoError(t, err)
	require.NotNil(t, metrics)
	require.Equal(t, day(-6), repo.listFrom)
	require.Equal(t, day(0), repo.listTo)
	require.Equal(t, day(-6), metrics.WeekStart)
}

func TestRecomputeWeeklyMetricsEmptyWindowNoOp(t *testing.T) {
	repo := &stubRepo{}
	service := testService(repo, day(0))

	metrics, err := service.RecomputeWeeklyMetrics(context.Background(), "tenant-1", "t-1", day(0))
	require.NoError(t, err)
	require.Nil(t, metrics)
	require.Empty(t, repo.upserted)
}

func TestRecomputeWeeklyMetricsIsRepeatable(t *testing.T) {
	now := day(0).Add(12 * time.Hour)
	repo := &stubRepo{records: []DailyRecord{
		{Date: day(0), TasksCompleted: 5, ProductivityScore: score(90), QualityScore: score(85)},
		{Date: day(-3), TasksCompleted: 2, ProductivityScore: score(70)},
	}}
	service := testService(repo, now)

	first, err := service.RecomputeWeeklyMetrics(context.Background(), "tenant-1", "t-1", day(0))
	require.NoError(t, err)
	second, err := service.RecomputeWeeklyMetrics(context.Background(), "tenant-1", "t-1", day(0))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, repo.upserted, 2)
	require.Equal(t, repo.upserted[0], repo.upserted[1])
}

func TestTeamProductivitySummary(t *testing.T) {
	repo := &stubRepo{
		team: &Team{ID: "t-1", ProductivityTarget: 85},
		records: []DailyRecord{
			{Date: day(0), HoursWorked: 8, TasksCompleted: 4, ProductivityScore: score(85)},
		},
	}
	service := testService(repo, day(0))

	team, records, summary, err := service.TeamProductivitySummary(context.Background(), "tenant-1", "t-1", time.Time{}, time.Time{}, 30)
	require.NoError(t, err)
	require.Equal(t, "t-1", team.ID)
	require.Len(t, records, 1)
	require.Equal(t, 100, summary.TargetComparison)
}
