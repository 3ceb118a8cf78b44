package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"petfoodverifai/internal/analysis"
)

// HousekeepingReport counts the rows removed by one housekeeping run.
type HousekeepingReport struct {
	Metrics        int64
	Drafts         int64
	ScrapeFailures int64
}

// Housekeep removes LLM usage rows older than metricsDays, expired chat
// drafts and scrape failures that no longer affect analyses.
func (a *App) Housekeep(ctx context.Context, metricsDays int) (HousekeepingReport, error) {
	var report HousekeepingReport

	n, err := a.metricsStore.Cleanup(ctx, metricsDays)
	if err != nil {
		return report, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	report.Metrics = n

	n, err = a.sessions.CleanupExpired(ctx, time.Now())
	if err != nil {
		return report, fmt.Errorf("failed to clean up drafts: %w", err)
	}
	report.Drafts = n

	n, err = a.analyses.PurgeScrapeFailures(ctx, time.Now().Add(-analysis.ScrapeFailureWindow))
	if err != nil {
		return report, fmt.Errorf("failed to purge scrape failures: %w", err)
	}
	report.ScrapeFailures = n
	return report, nil
}

// RunHousekeeping calls Housekeep every interval until ctx is done. Failed
// runs are logged and retried on the next tick.
func (a *App) RunHousekeeping(ctx context.Context, interval time.Duration, metricsDays int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := a.Housekeep(ctx, metricsDays)
			if err != nil {
				a.logger.Warn("housekeeping failed", zap.Error(err))
				continue
			}
			a.logger.Info("housekeeping done",
				zap.Int64("metrics_removed", report.Metrics),
				zap.Int64("drafts_removed", report.Drafts),
				zap.Int64("scrape_failures_removed", report.ScrapeFailures),
			)
		}
	}
}
