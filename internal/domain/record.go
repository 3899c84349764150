// Package domain defines the productivity records, teams, and weekly metric
// rollups at the heart of the analytics service.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrDuplicateRecord indicates productivity was already recorded for the team and day.
	ErrDuplicateRecord = errors.New("productivity already recorded for team and date")
	// ErrTeamNotFound is returned when a team cannot be located.
	ErrTeamNotFound = errors.New("team not found")
)

// DefaultProductivityTarget applies when a team carries no explicit target.
const DefaultProductivityTarget = 85

// TeamStatusActive marks a team as currently staffed.
const TeamStatusActive = "active"

// Team is the read model of a field crew.
type Team struct {
	ID                 string
	TenantID           string
	Name               string
	Status             string
	ProductivityTarget int
	MemberCount        int
}

// DailyRecord captures one team's productivity for a single calendar day.
// At most one record exists per (team, date); the unique constraint in
// Postgres is the authoritative guard.
type DailyRecord struct {
	ID                string
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
	CreatedAt         time.Time
}

// TeamMetrics is the persisted weekly rollup snapshot, one row per
// (team, weekStart).
type TeamMetrics struct {
	TenantID        string
	TeamID          string
	WeekStart       time.Time
	AvgProductivity float64
	AvgQualityScore float64
	AttendanceRate  float64
	SafetyScore     float64
	TasksCompleted  int
	UpdatedAt       time.Time
}

// DateOf normalises a timestamp to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
