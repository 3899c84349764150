package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func score(v float64) *float64 {
	return &v
}

func day(offset int) time.Time {
	base := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestMeanScoresZeroFillMissing(t *testing.T) {
	records := []DailyRecord{
		{ProductivityScore: score(90), QualityScore: score(80)},
		{ProductivityScore: nil, QualityScore: nil},
		{ProductivityScore: score(60), QualityScore: score(70)},
	}

	// Missing scores count as zero, they are not excluded.
	require.InDelta(t, 50.0, MeanProductivityScore(records), 0.001)
	require.InDelta(t, 50.0, MeanQualityScore(records), 0.001)
}

func TestSummarizeTotalsAndRates(t *testing.T) {
	team := Team{ID: "t-1", ProductivityTarget: 85}
	records := []DailyRecord{
		{Date: day(0), HoursWorked: 9, TasksCompleted: 5, UnitsCompleted: 3, SafetyIncidents: 1, ProductivityScore: score(90), QualityScore: score(88)},
		{Date: day(-1), HoursWorked: 8, TasksCompleted: 4, UnitsCompleted: 2, ProductivityScore: score(80), QualityScore: score(92)},
	}

	summary := Summarize(team, records)
	require.Equal(t, 2, summary.RecordCount)
	require.InDelta(t, 17.0, summary.TotalHours, 0.001)
	require.Equal(t, 9, summary.TotalTasks)
	require.Equal(t, 5, summary.TotalUnits)
	require.Equal(t, 1, summary.TotalSafetyIncidents)
	require.InDelta(t, 85.0, summary.AvgProductivity, 0.001)
	require.InDelta(t, 90.0, summary.AvgQuality, 0.001)
	require.Equal(t, 100, summary.TargetComparison)
	require.InDelta(t, 8.5, summary.HoursPerDay, 0.001)
	require.InDelta(t, 4.5, summary.TasksPerDay, 0.001)
	require.InDelta(t, 2.5, summary.UnitsPerDay, 0.001)
}

func TestSummarizeEmptyWindow(t *testing.T) {
	summary := Summarize(Team{ProductivityTarget: 85}, nil)
	require.Equal(t, ProductivitySummary{}, summary)
}

func TestSummarizeZeroTargetSkipsComparison(t *testing.T) {
	summary := Summarize(Team{}, []DailyRecord{{ProductivityScore: score(90)}})
	require.Equal(t, 0, summary.TargetComparison)
}

func TestWeeklyTrendComparesSubWindows(t *testing.T) {
	records := make([]DailyRecord, 0, 14)
	for i := 0; i < 7; i++ {
		records = append(records, DailyRecord{Date: day(-i), ProductivityScore: score(90)})
	}
	for i := 7; i < 14; i++ {
		records = append(records, DailyRecord{Date: day(-i), ProductivityScore: score(80)})
	}

	summary := Summarize(Team{ProductivityTarget: 85}, records)
	require.InDelta(t, 10.0, summary.WeeklyTrend, 0.001)
}

func TestWeeklyTrendWithoutPriorWindow(t *testing.T) {
	records := []DailyRecord{
		{Date: day(0), ProductivityScore: score(75)},
		{Date: day(-1), ProductivityScore: score(85)},
	}

	summary := Summarize(Team{ProductivityTarget: 85}, records)
	// Prior window is empty and contributes zero.
	require.InDelta(t, 80.0, summary.WeeklyTrend, 0.001)
}

func TestComputeWeeklyMetrics(t *testing.T) {
	now := time.Date(2026, time.March, 15, 18, 30, 0, 0, time.UTC)
	weekEnding := day(0)

	window := []DailyRecord{
		{Date: day(0), TasksCompleted: 6, SafetyIncidents: 2, ProductivityScore: score(88), QualityScore: score(90)},
		{Date: day(-2), TasksCompleted: 4, SafetyIncidents: 1, ProductivityScore: score(92), QualityScore: score(86)},
	}

	metrics := ComputeWeeklyMetrics("tenant-1", "t-1", weekEnding, window, now)
	require.NotNil(t, metrics)
	require.Equal(t, "tenant-1", metrics.TenantID)
	require.Equal(t, "t-1", metrics.TeamID)
	require.Equal(t, day(-6), metrics.WeekStart)
	require.InDelta(t, 90.0, metrics.AvgProductivity, 0.001)
	require.InDelta(t, 88.0, metrics.AvgQualityScore, 0.001)
	require.InDelta(t, 2.0/7*100, metrics.AttendanceRate, 0.001)
	require.InDelta(t, 70.0, metrics.SafetyScore, 0.001)
	require.Equal(t, 10, metrics.TasksCompleted)
	require.Equal(t, now, metrics.UpdatedAt)
}

func TestComputeWeeklyMetricsEmptyWindowIsNoOp(t *testing.T) {
	require.Nil(t, ComputeWeeklyMetrics("tenant-1", "t-1", day(0), nil, time.Now()))
}

func TestComputeWeeklyMetricsSafetyScoreFloorsAtZero(t *testing.T) {
	window := []DailyRecord{{Date: day(0), SafetyIncidents: 15}}
	metrics := ComputeWeeklyMetrics("tenant-1", "t-1", day(0), window, time.Now())
	require.NotNil(t, metrics)
	require.InDelta(t, 0.0, metrics.SafetyScore, 0.001)
}
