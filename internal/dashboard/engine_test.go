package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/analytics/internal/clock"
	"example.com/analytics/internal/domain"
)

var testNow = time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return domain.DateOf(testNow).AddDate(0, 0, offset)
}

func score(v float64) *float64 {
	return &v
}

func record(offset int, prod, qual float64, incidents int) domain.DailyRecord {
	return domain.DailyRecord{
		Date:              day(offset),
		ProductivityScore: score(prod),
		QualityScore:      score(qual),
		SafetyIncidents:   incidents,
	}
}

func team(id, name string) domain.Team {
	return domain.Team{ID: id, Name: name, Status: domain.TeamStatusActive, ProductivityTarget: 85}
}

func newTestEngine() *Engine {
	return NewEngine(clock.Fixed(testNow))
}

func TestComputeEmptyInput(t *testing.T) {
	overview := newTestEngine().Compute(nil, domain.DefaultProductivityTarget)

	require.Equal(t, KPIs{}, overview.KPIs)
	require.Empty(t, overview.Alerts)
	require.Empty(t, overview.TopPerformingTeams)
	require.Empty(t, overview.TeamBreakdown)
}

func TestComputeMeanOfMeansWeighsTeamsEqually(t *testing.T) {
	// Team A has many records at 90, team B a single record at 70. Each team
	// counts once in the aggregate regardless of record count.
	snapshots := []TeamSnapshot{
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{
			record(0, 90, 95, 0),
			record(-1, 90, 95, 0),
			record(-2, 90, 95, 0),
		}},
		{Team: team("b", "Instalaciones"), Records: []domain.DailyRecord{
			record(0, 70, 85, 0),
		}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	require.Equal(t, 80, overview.KPIs.OverallProductivity)
	require.Equal(t, 90, overview.KPIs.QualityScore)
	require.Equal(t, 2, overview.KPIs.TotalTeams)
	require.Equal(t, 2, overview.KPIs.ActiveTeams)
	// round(80/85*100)
	require.Equal(t, 94, overview.KPIs.DailyEfficiency)
	require.Equal(t, 100, overview.KPIs.SafetyScore)
	require.Empty(t, overview.Alerts)
}

func TestComputeExcludesTeamsWithoutCurrentRecords(t *testing.T) {
	idle := team("idle", "Terminaciones")
	snapshots := []TeamSnapshot{
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{record(0, 90, 90, 0)}},
		// Only stale records outside the current window.
		{Team: idle, Records: []domain.DailyRecord{record(-20, 40, 40, 0)}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	require.Equal(t, 90, overview.KPIs.OverallProductivity)
	require.Equal(t, 2, overview.KPIs.TotalTeams)
	require.Equal(t, 2, overview.KPIs.ActiveTeams)
	require.Len(t, overview.TopPerformingTeams, 1)

	var idleBreakdown *TeamBreakdown
	for i := range overview.TeamBreakdown {
		if overview.TeamBreakdown[i].TeamID == "idle" {
			idleBreakdown = &overview.TeamBreakdown[i]
		}
	}
	require.NotNil(t, idleBreakdown)
	require.False(t, idleBreakdown.Contributing)
}

func TestComputeOrgSafetyPenalty(t *testing.T) {
	snapshots := []TeamSnapshot{
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{
			record(0, 90, 90, 2),
			record(-1, 90, 90, 1),
		}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	// Org level deducts 5 per incident: 100 - 3*5.
	require.Equal(t, 85, overview.KPIs.SafetyScore)

	var safety *Alert
	for i := range overview.Alerts {
		if overview.Alerts[i].Type == "safety" {
			safety = &overview.Alerts[i]
		}
	}
	require.NotNil(t, safety)
	require.Equal(t, "high", safety.Severity)
}

func TestComputeLowProductivityAndQualityAlerts(t *testing.T) {
	snapshots := []TeamSnapshot{
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{record(0, 65, 75, 0)}},
		{Team: team("b", "Instalaciones"), Records: []domain.DailyRecord{record(0, 95, 95, 0)}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)

	byType := make(map[string]Alert)
	for _, alert := range overview.Alerts {
		byType[alert.Type] = alert
	}

	require.Contains(t, byType, "low_productivity")
	require.Equal(t, []string{"Hormigón"}, byType["low_productivity"].Teams)
	require.Contains(t, byType, "quality")
	require.Equal(t, []string{"Hormigón"}, byType["quality"].Teams)
	require.NotContains(t, byType, "safety")
}

func TestComputeWeeklyTrendOverDifferentTeamSets(t *testing.T) {
	snapshots := []TeamSnapshot{
		// Data in both windows: 90 now vs 80 before.
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{
			record(0, 90, 90, 0),
			record(-8, 80, 80, 0),
		}},
		// Data only in the previous window.
		{Team: team("b", "Instalaciones"), Records: []domain.DailyRecord{
			record(-9, 60, 60, 0),
		}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	// current mean = 90 (team a only); previous mean = (80+60)/2 = 70.
	require.Equal(t, 20, overview.KPIs.WeeklyTrend)
}

func TestComputeDaysWithoutIncidents(t *testing.T) {
	snapshots := []TeamSnapshot{
		{Team: team("a", "Hormigón"), Records: []domain.DailyRecord{
			record(0, 90, 90, 0),
			record(-2, 90, 90, 1),
		}},
		{Team: team("b", "Instalaciones"), Records: []domain.DailyRecord{
			record(-1, 85, 85, 0),
		}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	// Streak runs today and yesterday, broken by the incident two days ago.
	require.Equal(t, 2, overview.KPIs.DaysWithoutIncidents)
}

func TestComputeTopPerformersCapped(t *testing.T) {
	snapshots := []TeamSnapshot{
		{Team: team("a", "A"), Records: []domain.DailyRecord{record(0, 70, 90, 0)}},
		{Team: team("b", "B"), Records: []domain.DailyRecord{record(0, 95, 90, 0)}},
		{Team: team("c", "C"), Records: []domain.DailyRecord{record(0, 88, 90, 0)}},
		{Team: team("d", "D"), Records: []domain.DailyRecord{record(0, 91, 90, 0)}},
	}

	overview := newTestEngine().Compute(snapshots, domain.DefaultProductivityTarget)
	require.Len(t, overview.TopPerformingTeams, 3)
	require.Equal(t, "B", overview.TopPerformingTeams[0].TeamName)
	require.Equal(t, "D", overview.TopPerformingTeams[1].TeamName)
	require.Equal(t, "C", overview.TopPerformingTeams[2].TeamName)
}
