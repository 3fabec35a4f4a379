// Package dashboard aggregates play statistics out of the backend's list
// endpoint: one minimal count query per bucket plus a small recent-scores
// slice, fanned out concurrently so latency is bounded by the slowest call.
package dashboard

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"scoredeck/models"
	"scoredeck/services/scoreboard"
	"scoredeck/services/session"
)

const (
	// countPageSize keeps count queries to a minimal payload; only
	// totalElements is read from the response.
	countPageSize = 1
	recentSize    = 5
)

// ThresholdCount is one clear-type bucket of the statistics panel.
type ThresholdCount struct {
	ClearType models.ClearType
	Count     int64
}

// Stats are the aggregate counts shown on the dashboard.
type Stats struct {
	TotalPlays int64
	Thresholds []ThresholdCount
}

// Overview is one dashboard load: stats plus the recent-scores slice.
type Overview struct {
	Stats  Stats
	Recent []models.Score
}

// Service composes the dashboard queries.
type Service struct {
	client  *scoreboard.Client
	session *session.Store
}

func NewService(client *scoreboard.Client, sess *session.Store) *Service {
	return &Service{client: client, session: sess}
}

// Load fans out the six dashboard queries and joins them all-or-nothing:
// the first failure fails the whole aggregation and cancels the remaining
// in-flight calls. Without an authenticated session no request is issued
// and zero-valued stats come back without error.
func (s *Service) Load(ctx context.Context) (*Overview, error) {
	if s.session.Snapshot().State != session.StateAuthenticated {
		return s.zeroOverview(), nil
	}

	thresholds := models.DashboardThresholds
	counts := make([]int64, len(thresholds))
	var total int64
	var recent []models.Score

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	p.Go(func(ctx context.Context) error {
		n, err := s.count(ctx, "")
		total = n
		return err
	})
	for i, ct := range thresholds {
		i, ct := i, ct
		p.Go(func(ctx context.Context) error {
			n, err := s.count(ctx, ct)
			counts[i] = n
			return err
		})
	}
	p.Go(func(ctx context.Context) error {
		page, err := s.client.ListScores(ctx, scoreboard.ScoreQuery{Size: recentSize})
		if err != nil {
			return err
		}
		recent = page.Content
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	overview := &Overview{
		Stats:  Stats{TotalPlays: total, Thresholds: make([]ThresholdCount, len(thresholds))},
		Recent: recent,
	}
	for i, ct := range thresholds {
		overview.Stats.Thresholds[i] = ThresholdCount{ClearType: ct, Count: counts[i]}
	}
	return overview, nil
}

// count issues a size-1 list query and reads only the total element count.
func (s *Service) count(ctx context.Context, clearType models.ClearType) (int64, error) {
	page, err := s.client.ListScores(ctx, scoreboard.ScoreQuery{
		ClearType: string(clearType),
		Size:      countPageSize,
	})
	if err != nil {
		return 0, err
	}
	return page.TotalElements, nil
}

func (s *Service) zeroOverview() *Overview {
	stats := Stats{Thresholds: make([]ThresholdCount, len(models.DashboardThresholds))}
	for i, ct := range models.DashboardThresholds {
		stats.Thresholds[i] = ThresholdCount{ClearType: ct}
	}
	return &Overview{Stats: stats}
}
