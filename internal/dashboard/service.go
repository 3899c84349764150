package dashboard

import (
	"context"

	"example.com/analytics/internal/clock"
	"example.com/analytics/internal/domain"
)

// Service assembles team snapshots from the repository and runs the engine.
type Service struct {
	repo   domain.Repository
	engine *Engine
	clock  clock.Clock
}

// NewService constructs a Service.
func NewService(repo domain.Repository, c clock.Clock) *Service {
	return &Service{
		repo:   repo,
		engine: NewEngine(c),
		clock:  c,
	}
}

// Overview fetches every team the tenant can see with its last 30 days of
// records and last 4 weekly rollups, then computes the dashboard.
func (s *Service) Overview(ctx context.Context, tenantID string) (Overview, error) {
	teams, err := s.repo.ListTeams(ctx, tenantID)
	if err != nil {
		return Overview{}, err
	}

	now := s.clock.Now()
	from := RecordWindowStart(now)
	to := domain.DateOf(now)

	snapshots := make([]TeamSnapshot, 0, len(teams))
	for _, team := range teams {
		records, err := s.repo.ListDailyRecords(ctx, tenantID, team.ID, from, to, 0)
		if err != nil {
			return Overview{}, err
		}
		weekly, err := s.repo.ListTeamMetrics(ctx, tenantID, team.ID, WeeklyHistoryCount)
		if err != nil {
			return Overview{}, err
		}
		snapshots = append(snapshots, TeamSnapshot{Team: team, Records: records, Weekly: weekly})
	}

	return s.engine.Compute(snapshots, domain.DefaultProductivityTarget), nil
}
