// Package dashboard computes organization-wide KPIs, rankings, and alerts
// over multi-team productivity data.
package dashboard

import (
	"math"
	"sort"
	"time"

	"example.com/analytics/internal/clock"
	"example.com/analytics/internal/domain"
)

// topTeamCount limits the performer ranking.
const topTeamCount = 3

// orgSafetyPenalty is the per-incident deduction at organization level.
// The team-level weekly rollup deducts 10; the org view is deliberately
// more forgiving. Both scales are established business rules.
const orgSafetyPenalty = 5

// TeamSnapshot bundles one team with its recent data, pre-filtered by the
// caller's access scope.
type TeamSnapshot struct {
	Team    domain.Team
	Records []domain.DailyRecord // last 30 days, descending by date
	Weekly  []domain.TeamMetrics // last 4 rollups, descending by week start
}

// KPIs are the headline numbers rendered on the dashboard. Never persisted.
type KPIs struct {
	OverallProductivity  int
	QualityScore         int
	SafetyScore          int
	DailyEfficiency      int
	WeeklyTrend          int
	DaysWithoutIncidents int
	TotalTeams           int
	ActiveTeams          int
}

// TeamStanding is one entry in the performer ranking.
type TeamStanding struct {
	TeamID       string
	TeamName     string
	Productivity float64
	RecordCount  int
}

// Alert flags a condition that needs attention. Recomputed on every call.
type Alert struct {
	Type     string
	Severity string
	Message  string
	Teams    []string
}

// TeamBreakdown carries per-team detail alongside the aggregate KPIs.
type TeamBreakdown struct {
	TeamID              string
	TeamName            string
	Status              string
	Contributing        bool
	CurrentProductivity float64
	CurrentQuality      float64
	Incidents           int
	Weekly              []domain.TeamMetrics
}

// Overview is the full dashboard payload.
type Overview struct {
	KPIs               KPIs
	TopPerformingTeams []TeamStanding
	Alerts             []Alert
	TeamBreakdown      []TeamBreakdown
}

// Engine derives dashboard analytics from team snapshots.
type Engine struct {
	clock clock.Clock
}

// NewEngine constructs an Engine around the provided time source.
func NewEngine(c clock.Clock) *Engine {
	return &Engine{clock: c}
}

type teamWindow struct {
	snapshot     TeamSnapshot
	current      []domain.DailyRecord
	previous     []domain.DailyRecord
	currentProd  float64
	currentQual  float64
	previousProd float64
	incidents    int
}

// Compute builds the dashboard for the supplied teams. Teams with no record
// in the current 7-day window stay in the totals but are excluded from the
// aggregate means, which weight every contributing team equally. Empty input
// yields an all-zero overview rather than an error.
func (e *Engine) Compute(snapshots []TeamSnapshot, orgTarget int) Overview {
	today := domain.DateOf(e.clock.Now())
	currentStart := today.AddDate(0, 0, -6)
	previousStart := today.AddDate(0, 0, -13)
	previousEnd := today.AddDate(0, 0, -7)

	overview := Overview{
		TopPerformingTeams: make([]TeamStanding, 0, topTeamCount),
		Alerts:             make([]Alert, 0),
		TeamBreakdown:      make([]TeamBreakdown, 0, len(snapshots)),
	}
	overview.KPIs.TotalTeams = len(snapshots)

	windows := make([]teamWindow, 0, len(snapshots))
	allRecords := make([]domain.DailyRecord, 0)

	for _, snapshot := range snapshots {
		if snapshot.Team.Status == domain.TeamStatusActive {
			overview.KPIs.ActiveTeams++
		}

		w := teamWindow{snapshot: snapshot}
		for _, record := range snapshot.Records {
			date := domain.DateOf(record.Date)
			if !date.Before(currentStart) && !date.After(today) {
				w.current = append(w.current, record)
			} else if !date.Before(previousStart) && !date.After(previousEnd) {
				w.previous = append(w.previous, record)
			}
			w.incidents += record.SafetyIncidents
			allRecords = append(allRecords, record)
		}
		w.currentProd = domain.MeanProductivityScore(w.current)
		w.currentQual = domain.MeanQualityScore(w.current)
		w.previousProd = domain.MeanProductivityScore(w.previous)
		windows = append(windows, w)
	}

	contributing := make([]teamWindow, 0, len(windows))
	totalIncidents := 0
	for _, w := range windows {
		totalIncidents += w.incidents
		if len(w.current) > 0 {
			contributing = append(contributing, w)
		}

		overview.TeamBreakdown = append(overview.TeamBreakdown, TeamBreakdown{
			TeamID:              w.snapshot.Team.ID,
			TeamName:            w.snapshot.Team.Name,
			Status:              w.snapshot.Team.Status,
			Contributing:        len(w.current) > 0,
			CurrentProductivity: w.currentProd,
			CurrentQuality:      w.currentQual,
			Incidents:           w.incidents,
			Weekly:              w.snapshot.Weekly,
		})
	}

	if len(contributing) > 0 {
		prodSum, qualSum := 0.0, 0.0
		for _, w := range contributing {
			prodSum += w.currentProd
			qualSum += w.currentQual
		}
		// A mean of per-team means: every contributing team counts once,
		// regardless of how many records it has.
		overall := prodSum / float64(len(contributing))
		overview.KPIs.OverallProductivity = int(math.Round(overall))
		overview.KPIs.QualityScore = int(math.Round(qualSum / float64(len(contributing))))
		if orgTarget > 0 {
			overview.KPIs.DailyEfficiency = int(math.Round(overall / float64(orgTarget) * 100))
		}
	}

	if len(allRecords) > 0 {
		overview.KPIs.SafetyScore = int(math.Max(0, 100-float64(totalIncidents)*orgSafetyPenalty))
	}

	overview.KPIs.WeeklyTrend = weeklyTrend(windows)
	overview.KPIs.DaysWithoutIncidents = daysWithoutIncidents(allRecords)
	overview.TopPerformingTeams = topPerformers(contributing)
	overview.Alerts = buildAlerts(contributing, totalIncidents)

	return overview
}

// weeklyTrend compares the current-window mean against the previous-window
// mean. Each mean covers only the teams with data in that window, so the
// denominators can differ.
func weeklyTrend(windows []teamWindow) int {
	currentSum, currentN := 0.0, 0
	previousSum, previousN := 0.0, 0
	for _, w := range windows {
		if len(w.current) > 0 {
			currentSum += w.currentProd
			currentN++
		}
		if len(w.previous) > 0 {
			previousSum += w.previousProd
			previousN++
		}
	}

	current, previous := 0.0, 0.0
	if currentN > 0 {
		current = currentSum / float64(currentN)
	}
	if previousN > 0 {
		previous = previousSum / float64(previousN)
	}
	return int(math.Round(current - previous))
}

// daysWithoutIncidents counts consecutive incident-free records across all
// teams, newest first, stopping at the first record with an incident.
func daysWithoutIncidents(records []domain.DailyRecord) int {
	if len(records) == 0 {
		return 0
	}

	sorted := make([]domain.DailyRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	streak := 0
	for _, record := range sorted {
		if record.SafetyIncidents > 0 {
			break
		}
		streak++
	}
	return streak
}

func topPerformers(contributing []teamWindow) []TeamStanding {
	ranked := make([]teamWindow, len(contributing))
	copy(ranked, contributing)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].currentProd > ranked[j].currentProd
	})

	if len(ranked) > topTeamCount {
		ranked = ranked[:topTeamCount]
	}

	standings := make([]TeamStanding, 0, len(ranked))
	for _, w := range ranked {
		standings = append(standings, TeamStanding{
			TeamID:       w.snapshot.Team.ID,
			TeamName:     w.snapshot.Team.Name,
			Productivity: w.currentProd,
			RecordCount:  len(w.current),
		})
	}
	return standings
}

const (
	lowProductivityThreshold = 70
	lowQualityThreshold      = 80
)

func buildAlerts(contributing []teamWindow, totalIncidents int) []Alert {
	alerts := make([]Alert, 0)

	lowProductivity := make([]string, 0)
	lowQuality := make([]string, 0)
	for _, w := range contributing {
		if w.currentProd < lowProductivityThreshold {
			lowProductivity = append(lowProductivity, w.snapshot.Team.Name)
		}
		if w.currentQual < lowQualityThreshold {
			lowQuality = append(lowQuality, w.snapshot.Team.Name)
		}
	}

	if len(lowProductivity) > 0 {
		alerts = append(alerts, Alert{
			Type:     "low_productivity",
			Severity: "medium",
			Message:  "Teams below the productivity threshold this week",
			Teams:    lowProductivity,
		})
	}

	if totalIncidents > 0 {
		alerts = append(alerts, Alert{
			Type:     "safety",
			Severity: "high",
			Message:  "Safety incidents reported in the last 30 days",
		})
	}

	if len(lowQuality) > 0 {
		alerts = append(alerts, Alert{
			Type:     "quality",
			Severity: "medium",
			Message:  "Teams below the quality threshold this week",
			Teams:    lowQuality,
		})
	}

	return alerts
}

// Fetch bounds for callers assembling snapshots, kept here so they stay
// aligned with the engine's windows.
const (
	RecordWindowDays   = 30
	WeeklyHistoryCount = 4
)

// RecordWindowStart returns the inclusive lower bound for snapshot records.
func RecordWindowStart(now time.Time) time.Time {
	return domain.DateOf(now).AddDate(0, 0, -(RecordWindowDays - 1))
}
