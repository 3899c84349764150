// Package api exposes HTTP handlers for the analytics service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/analytics/internal/auth"
	"example.com/analytics/internal/dashboard"
	"example.com/analytics/internal/domain"
	"example.com/analytics/internal/progress"
)

const dateFormat = "2006-01-02"

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	service   *domain.Service
	dashboard *dashboard.Service
	partidas  domain.PartidaRepository
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, dash *dashboard.Service, partidas domain.PartidaRepository) *Handler {
	return &Handler{service: service, dashboard: dash, partidas: partidas}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/productivity", h.productivity)
	mux.HandleFunc("/v1/teams/", h.teamByID)
	mux.HandleFunc("/v1/dashboard", h.dashboardOverview)
	mux.HandleFunc("/v1/partidas/progress", h.partidaProgress)
	mux.HandleFunc("/v1/partidas/progress/bulk", h.partidaProgressBulk)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) productivity(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.recordProductivity(w, r)
	case http.MethodGet:
		h.productivitySummary(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) recordProductivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProductivityWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope productivity:write required")
		return
	}

	var req RecordProductivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	date, _ := time.Parse(dateFormat, req.Date)

	record, err := h.service.RecordDailyProductivity(r.Context(), domain.RecordInput{
		TenantID:          claims.TenantID,
		TeamID:            req.TeamID,
		Date:              date,
		HoursWorked:       req.HoursWorked,
		TasksCompleted:    req.TasksCompleted,
		UnitsCompleted:    req.UnitsCompleted,
		ProductivityScore: req.ProductivityScore,
		QualityScore:      req.QualityScore,
		SafetyIncidents:   req.SafetyIncidents,
		Notes:             req.Notes,
		RecordedBy:        claims.Subject,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTeamNotFound):
			writeError(w, http.StatusNotFound, "not_found", "team not found")
		case errors.Is(err, domain.ErrDuplicateRecord):
			writeError(w, http.StatusConflict, "duplicate_record", "productivity already recorded for team and date")
		default:
			writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, toRecordView(*record))
}

func (h *Handler) productivitySummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProductivityRead) && !claims.HasScope(auth.ScopeProductivityWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope productivity:read required")
		return
	}

	teamID := r.URL.Query().Get("team_id")
	if strings.TrimSpace(teamID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing team_id parameter")
		return
	}

	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid from date")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid to date")
			return
		}
		to = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	team, records, summary, err := h.service.TeamProductivitySummary(r.Context(), claims.TenantID, teamID, from, to, limit)
	if err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := ProductivitySummaryResponse{
		TeamID:   team.ID,
		TeamName: team.Name,
		Summary:  toSummaryView(summary),
		Records:  make([]DailyRecordView, 0, len(records)),
	}
	for _, record := range records {
		resp.Records = append(resp.Records, toRecordView(record))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) teamByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/teams/")
	teamID, action, found := strings.Cut(rest, "/")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing team id")
		return
	}
	if !found || action != "metrics/recompute" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	h.recomputeMetrics(w, r, teamID)
}

func (h *Handler) recomputeMetrics(w http.ResponseWriter, r *http.Request, teamID string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProductivityWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope productivity:write required")
		return
	}

	weekEnding := time.Now().UTC()
	if raw := r.URL.Query().Get("week_ending"); raw != "" {
		parsed, err := time.Parse(dateFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid week_ending date")
			return
		}
		weekEnding = parsed
	}

	metrics, err := h.service.RecomputeWeeklyMetrics(r.Context(), claims.TenantID, teamID, weekEnding)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if metrics == nil {
		writeJSON(w, http.StatusOK, RecomputeMetricsResponse{Computed: false})
		return
	}

	view := toMetricsView(*metrics)
	writeJSON(w, http.StatusOK, RecomputeMetricsResponse{Computed: true, Metrics: &view})
}

func (h *Handler) dashboardOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeDashboardRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope dashboard:read required")
		return
	}

	overview, err := h.dashboard.Overview(r.Context(), claims.TenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toOverviewView(overview))
}

func (h *Handler) partidaProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProductivityRead) && !claims.HasScope(auth.ScopeProductivityWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope productivity:read required")
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if strings.TrimSpace(projectID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing project_id parameter")
		return
	}

	partidas, err := h.partidas.ListPartidas(r.Context(), claims.TenantID, projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]*progress.Partida, 0, len(partidas))
	views := make([]ProgressView, 0, len(partidas))
	for i := range partidas {
		items = append(items, &partidas[i])
		if computed, computeErr := progress.Compute(&partidas[i]); computeErr == nil {
			views = append(views, toProgressView(computed))
		}
	}

	resp := PartidaProgressResponse{
		ProjectID: projectID,
		Summary:   toProgressSummaryView(progress.Average(items)),
		Items:     views,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) partidaProgressBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeProductivityRead) && !claims.HasScope(auth.ScopeProductivityWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope productivity:read required")
		return
	}

	var req BulkProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	result := progress.Bulk(req.Items)

	resp := BulkProgressResponse{
		Summary:    toProgressSummaryView(result.Summary),
		Individual: make([]ProgressView, 0, len(result.Individual)),
		ValidCount: result.ValidCount,
		TotalCount: result.TotalCount,
		Errors:     result.Errors,
	}
	for _, item := range result.Individual {
		resp.Individual = append(resp.Individual, toProgressView(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RecordProductivityRequest is the payload for POST /v1/productivity.
type RecordProductivityRequest struct {
	TeamID            string   `json:"team_id"`
	Date              string   `json:"date"`
	HoursWorked       float64  `json:"hours_worked"`
	TasksCompleted    int      `json:"tasks_completed"`
	UnitsCompleted    int      `json:"units_completed"`
	ProductivityScore *float64 `json:"productivity_score,omitempty"`
	QualityScore      *float64 `json:"quality_score,omitempty"`
	SafetyIncidents   int      `json:"safety_incidents"`
	Notes             string   `json:"notes,omitempty"`
}

// Validate ensures request correctness.
func (r RecordProductivityRequest) Validate() error {
	if strings.TrimSpace(r.TeamID) == "" {
		return errors.New("team_id is required")
	}
	if _, err := time.Parse(dateFormat, r.Date); err != nil {
		return errors.New("date must be formatted YYYY-MM-DD")
	}
	if r.HoursWorked < 0 {
		return errors.New("hours_worked must be >= 0")
	}
	if r.TasksCompleted < 0 {
		return errors.New("tasks_completed must be >= 0")
	}
	if r.UnitsCompleted < 0 {
		return errors.New("units_completed must be >= 0")
	}
	if r.SafetyIncidents < 0 {
		return errors.New("safety_incidents must be >= 0")
	}
	if r.ProductivityScore != nil && (*r.ProductivityScore < 0 || *r.ProductivityScore > 150) {
		return errors.New("productivity_score must be between 0 and 150")
	}
	if r.QualityScore != nil && (*r.QualityScore < 0 || *r.QualityScore > 100) {
		return errors.New("quality_score must be between 0 and 100")
	}
	return nil
}

// DailyRecordView exposes a stored productivity record.
type DailyRecordView struct {
	RecordID          string    `json:"record_id"`
	TenantID          string    `json:"tenant_id"`
	TeamID            string    `json:"team_id"`
	Date              string    `json:"date"`
	HoursWorked       float64   `json:"hours_worked"`
	TasksCompleted    int       `json:"tasks_completed"`
	UnitsCompleted    int       `json:"units_completed"`
	ProductivityScore *float64  `json:"productivity_score,omitempty"`
	QualityScore      *float64  `json:"quality_score,omitempty"`
	SafetyIncidents   int       `json:"safety_incidents"`
	Notes             string    `json:"notes,omitempty"`
	RecordedBy        string    `json:"recorded_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// SummaryView mirrors domain.ProductivitySummary for JSON output.
type SummaryView struct {
	RecordCount          int     `json:"record_count"`
	TotalHours           float64 `json:"total_hours"`
	TotalTasks           int     `json:"total_tasks"`
	TotalUnits           int     `json:"total_units"`
	TotalSafetyIncidents int     `json:"total_safety_incidents"`
	AvgProductivity      float64 `json:"avg_productivity"`
	AvgQuality           float64 `json:"avg_quality"`
	TargetComparison     int     `json:"target_comparison"`
	WeeklyTrend          float64 `json:"weekly_trend"`
	HoursPerDay          float64 `json:"hours_per_day"`
	TasksPerDay          float64 `json:"tasks_per_day"`
	UnitsPerDay          float64 `json:"units_per_day"`
}

// ProductivitySummaryResponse packages a team summary with its records.
type ProductivitySummaryResponse struct {
	TeamID   string            `json:"team_id"`
	TeamName string            `json:"team_name"`
	Summary  SummaryView       `json:"summary"`
	Records  []DailyRecordView `json:"records"`
}

// TeamMetricsView exposes a weekly rollup snapshot.
type TeamMetricsView struct {
	TeamID          string    `json:"team_id"`
	WeekStart       string    `json:"week_start"`
	AvgProductivity float64   `json:"avg_productivity"`
	AvgQualityScore float64   `json:"avg_quality_score"`
	AttendanceRate  float64   `json:"attendance_rate"`
	SafetyScore     float64   `json:"safety_score"`
	TasksCompleted  int       `json:"tasks_completed"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RecomputeMetricsResponse reports the outcome of a manual rollup.
type RecomputeMetricsResponse struct {
	Computed bool             `json:"computed"`
	Metrics  *TeamMetricsView `json:"metrics,omitempty"`
}

// KPIView carries the dashboard headline numbers.
type KPIView struct {
	OverallProductivity  int `json:"overall_productivity"`
	QualityScore         int `json:"quality_score"`
	SafetyScore          int `json:"safety_score"`
	DailyEfficiency      int `json:"daily_efficiency"`
	WeeklyTrend          int `json:"weekly_trend"`
	DaysWithoutIncidents int `json:"days_without_incidents"`
	TotalTeams           int `json:"total_teams"`
	ActiveTeams          int `json:"active_teams"`
}

// TeamStandingView is one row of the performer ranking.
type TeamStandingView struct {
	TeamID       string  `json:"team_id"`
	TeamName     string  `json:"team_name"`
	Productivity float64 `json:"productivity"`
	RecordCount  int     `json:"record_count"`
}

// AlertView is a rendered dashboard alert.
type AlertView struct {
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Teams    []string `json:"teams"`
}

// TeamBreakdownView carries per-team dashboard detail.
type TeamBreakdownView struct {
	TeamID              string            `json:"team_id"`
	TeamName            string            `json:"team_name"`
	Status              string            `json:"status"`
	Contributing        bool              `json:"contributing"`
	CurrentProductivity float64           `json:"current_productivity"`
	CurrentQuality      float64           `json:"current_quality"`
	Incidents           int               `json:"incidents"`
	Weekly              []TeamMetricsView `json:"weekly"`
}

// DashboardResponse is the full dashboard payload.
type DashboardResponse struct {
	KPIs               KPIView             `json:"kpis"`
	TopPerformingTeams []TeamStandingView  `json:"top_performing_teams"`
	Alerts             []AlertView         `json:"alerts"`
	TeamBreakdown      []TeamBreakdownView `json:"team_breakdown"`
}

// ProgressView exposes derived completion for one partida.
type ProgressView struct {
	PartidaID      string `json:"partida_id,omitempty"`
	CompletedSteps int    `json:"completed_steps"`
	TotalSteps     int    `json:"total_steps"`
	Percentage     int    `json:"percentage"`
	Phase          string `json:"phase"`
}

// ProgressSummaryView aggregates a batch of partidas.
type ProgressSummaryView struct {
	TotalPartidas   int `json:"total_partidas"`
	AverageProgress int `json:"average_progress"`
	Completed       int `json:"completed"`
	InProgress      int `json:"in_progress"`
}

// PartidaProgressResponse packages project progress.
type PartidaProgressResponse struct {
	ProjectID string              `json:"project_id"`
	Summary   ProgressSummaryView `json:"summary"`
	Items     []ProgressView      `json:"items"`
}

// BulkProgressRequest is the payload for POST /v1/partidas/progress/bulk.
type BulkProgressRequest struct {
	Items []map[string]any `json:"items"`
}

// BulkProgressResponse reports a bulk computation.
type BulkProgressResponse struct {
	Summary    ProgressSummaryView `json:"summary"`
	Individual []ProgressView      `json:"individual"`
	ValidCount int                 `json:"valid_count"`
	TotalCount int                 `json:"total_count"`
	Errors     []string            `json:"errors"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toRecordView(record domain.DailyRecord) DailyRecordView {
	return DailyRecordView{
		RecordID:          record.ID,
		TenantID:          record.TenantID,
		TeamID:            record.TeamID,
		Date:              record.Date.Format(dateFormat),
		HoursWorked:       record.HoursWorked,
		TasksCompleted:    record.TasksCompleted,
		UnitsCompleted:    record.UnitsCompleted,
		ProductivityScore: record.ProductivityScore,
		QualityScore:      record.QualityScore,
		SafetyIncidents:   record.SafetyIncidents,
		Notes:             record.Notes,
		RecordedBy:        record.RecordedBy,
		CreatedAt:         record.CreatedAt,
	}
}

func toSummaryView(summary domain.ProductivitySummary) SummaryView {
	return SummaryView{
		RecordCount:          summary.RecordCount,
		TotalHours:           summary.TotalHours,
		TotalTasks:           summary.TotalTasks,
		TotalUnits:           summary.TotalUnits,
		TotalSafetyIncidents: summary.TotalSafetyIncidents,
		AvgProductivity:      summary.AvgProductivity,
		AvgQuality:           summary.AvgQuality,
		TargetComparison:     summary.TargetComparison,
		WeeklyTrend:          summary.WeeklyTrend,
		HoursPerDay:          summary.HoursPerDay,
		TasksPerDay:          summary.TasksPerDay,
		UnitsPerDay:          summary.UnitsPerDay,
	}
}

func toMetricsView(metrics domain.TeamMetrics) TeamMetricsView {
	return TeamMetricsView{
		TeamID:          metrics.TeamID,
		WeekStart:       metrics.WeekStart.Format(dateFormat),
		AvgProductivity: metrics.AvgProductivity,
		AvgQualityScore: metrics.AvgQualityScore,
		AttendanceRate:  metrics.AttendanceRate,
		SafetyScore:     metrics.SafetyScore,
		TasksCompleted:  metrics.TasksCompleted,
		UpdatedAt:       metrics.UpdatedAt,
	}
}

func toOverviewView(overview dashboard.Overview) DashboardResponse {
	resp := DashboardResponse{
		KPIs: KPIView{
			OverallProductivity:  overview.KPIs.OverallProductivity,
			QualityScore:         overview.KPIs.QualityScore,
			SafetyScore:          overview.KPIs.SafetyScore,
			DailyEfficiency:      overview.KPIs.DailyEfficiency,
			WeeklyTrend:          overview.KPIs.WeeklyTrend,
			DaysWithoutIncidents: overview.KPIs.DaysWithoutIncidents,
			TotalTeams:           overview.KPIs.TotalTeams,
			ActiveTeams:          overview.KPIs.ActiveTeams,
		},
		TopPerformingTeams: make([]TeamStandingView, 0, len(overview.TopPerformingTeams)),
		Alerts:             make([]AlertView, 0, len(overview.Alerts)),
		TeamBreakdown:      make([]TeamBreakdownView, 0, len(overview.TeamBreakdown)),
	}

	for _, standing := range overview.TopPerformingTeams {
		resp.TopPerformingTeams = append(resp.TopPerformingTeams, TeamStandingView{
			TeamID:       standing.TeamID,
			TeamName:     standing.TeamName,
			Productivity: standing.Productivity,
			RecordCount:  standing.RecordCount,
		})
	}
	for _, alert := range overview.Alerts {
		resp.Alerts = append(resp.Alerts, AlertView{
			Type:     alert.Type,
			Severity: alert.Severity,
			Message:  alert.Message,
			Teams:    alert.Teams,
		})
	}
	for _, breakdown := range overview.TeamBreakdown {
		view := TeamBreakdownView{
			TeamID:              breakdown.TeamID,
			TeamName:            breakdown.TeamName,
			Status:              breakdown.Status,
			Contributing:        breakdown.Contributing,
			CurrentProductivity: breakdown.CurrentProductivity,
			CurrentQuality:      breakdown.CurrentQuality,
			Incidents:           breakdown.Incidents,
			Weekly:              make([]TeamMetricsView, 0, len(breakdown.Weekly)),
		}
		for _, weekly := range breakdown.Weekly {
			view.Weekly = append(view.Weekly, toMetricsView(weekly))
		}
		resp.TeamBreakdown = append(resp.TeamBreakdown, view)
	}

	return resp
}

func toProgressView(p progress.Progress) ProgressView {
	return ProgressView{
		PartidaID:      p.PartidaID,
		CompletedSteps: p.CompletedSteps,
		TotalSteps:     p.TotalSteps,
		Percentage:     p.Percentage,
		Phase:          string(p.Phase),
	}
}

func toProgressSummaryView(s progress.Summary) ProgressSummaryView {
	return ProgressSummaryView{
		TotalPartidas:   s.TotalPartidas,
		AverageProgress: s.AverageProgress,
		Completed:       s.Completed,
		InProgress:      s.InProgress,
	}
}
