// Package events defines the payloads published to downstream services.
package events

import "time"

// ProductivityRecorded is emitted when a daily productivity entry is accepted.
type ProductivityRecorded struct {
	RecordID        string    `json:"record_id"`
	TenantID        string    `json:"tenant_id"`
	TeamID          string    `json:"team_id"`
	Date            string    `json:"date"`
	HoursWorked     float64   `json:"hours_worked"`
	TasksCompleted  int       `json:"tasks_completed"`
	UnitsCompleted  int       `json:"units_completed"`
	SafetyIncidents int       `json:"safety_incidents"`
	RecordedBy      string    `json:"recorded_by"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// TeamMetricsUpdated is emitted when a weekly rollup row is written.
type TeamMetricsUpdated struct {
	TenantID        string    `json:"tenant_id"`
	TeamID          string    `json:"team_id"`
	WeekStart       string    `json:"week_start"`
	AvgProductivity float64   `json:"avg_productivity"`
	AvgQualityScore float64   `json:"avg_quality_score"`
	AttendanceRate  float64   `json:"attendance_rate"`
	SafetyScore     float64   `json:"safety_score"`
	TasksCompleted  int       `json:"tasks_completed"`
	UpdatedAt       time.Time `json:"updated_at"`
}
