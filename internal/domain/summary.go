package domain

import (
	"math"
	"time"
)

// trendWindow is the record count of each sub-window in the trend comparison.
const trendWindow = 7

// ProductivitySummary aggregates a team's daily records over a window.
type ProductivitySummary struct {
	RecordCount          int
	TotalHours           float64
	TotalTasks           int
	TotalUnits           int
	TotalSafetyIncidents int
	AvgProductivity      float64
	AvgQuality           float64
	TargetComparison     int
	WeeklyTrend          float64
	HoursPerDay          float64
	TasksPerDay          float64
	UnitsPerDay          float64
}

// zeroFillMean averages an optional score across records, counting a missing
// score as zero rather than excluding the record. The rollups and dashboard
// depend on this exact behaviour; do not swap in an exclude-missing average.
func zeroFillMean(records []DailyRecord, score func(DailyRecord) *float64) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, record := range records {
		if v := score(record); v != nil {
			sum += *v
		}
	}
	return sum / float64(len(records))
}

// MeanProductivityScore is the zero-fill mean of productivity scores.
func MeanProductivityScore(records []DailyRecord) float64 {
	return zeroFillMean(records, func(r DailyRecord) *float64 { return r.ProductivityScore })
}

// MeanQualityScore is the zero-fill mean of quality scores.
func MeanQualityScore(records []DailyRecord) float64 {
	return zeroFillMean(records, func(r DailyRecord) *float64 { return r.QualityScore })
}

// Summarize computes window statistics for one team. Records must be ordered
// by date descending, the order the repository returns them in.
func Summarize(team Team, records []DailyRecord) ProductivitySummary {
	summary := ProductivitySummary{RecordCount: len(records)}

	for _, record := range records {
		summary.TotalHours += record.HoursWorked
		summary.TotalTasks += record.TasksCompleted
		summary.TotalUnits += record.UnitsCompleted
		summary.TotalSafetyIncidents += record.SafetyIncidents
	}

	summary.AvgProductivity = MeanProductivityScore(records)
	summary.AvgQuality = MeanQualityScore(records)

	if team.ProductivityTarget > 0 {
		summary.TargetComparison = int(math.Round(summary.AvgProductivity / float64(team.ProductivityTarget) * 100))
	}

	summary.WeeklyTrend = weeklyTrend(records)

	if summary.RecordCount > 0 {
		days := float64(summary.RecordCount)
		summary.HoursPerDay = round1(summary.TotalHours / days)
		summary.TasksPerDay = round1(float64(summary.TotalTasks) / days)
		summary.UnitsPerDay = round1(float64(summary.TotalUnits) / days)
	}

	return summary
}

// weeklyTrend compares the 7 most recent records against the 7 immediately
// prior. A sub-window with no records contributes zero.
func weeklyTrend(records []DailyRecord) float64 {
	recent := records
	if len(recent) > trendWindow {
		recent = records[:trendWindow]
	}

	var prior []DailyRecord
	if len(records) > trendWindow {
		prior = records[trendWindow:]
		if len(prior) > trendWindow {
			prior = prior[:trendWindow]
		}
	}

	return MeanProductivityScore(recent) - MeanProductivityScore(prior)
}

// ComputeWeeklyMetrics rolls a 7-day window of records into a metrics
// snapshot. The window is anchored to weekEnding, not to a calendar week.
// Returns nil when the window holds no records.
func ComputeWeeklyMetrics(tenantID, teamID string, weekEnding time.Time, window []DailyRecord, now time.Time) *TeamMetrics {
	if len(window) == 0 {
		return nil
	}

	totalIncidents := 0
	totalTasks := 0
	for _, record := range window {
		totalIncidents += record.SafetyIncidents
		totalTasks += record.TasksCompleted
	}

	return &TeamMetrics{
		TenantID:        tenantID,
		TeamID:          teamID,
		WeekStart:       DateOf(weekEnding).AddDate(0, 0, -6),
		AvgProductivity: MeanProductivityScore(window),
		AvgQualityScore: MeanQualityScore(window),
		AttendanceRate:  float64(len(window)) / 7 * 100,
		SafetyScore:     math.Max(0, 100-float64(totalIncidents)*10),
		TasksCompleted:  totalTasks,
		UpdatedAt:       now,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
