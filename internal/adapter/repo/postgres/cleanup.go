package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService deletes generated documents past their retention period.
type CleanupService struct {
	Pool      PgxPool
	Retention time.Duration
	now       func() time.Time
}

// NewCleanupService creates a new cleanup service. Non-positive retention
// defaults to 30 days.
func NewCleanupService(pool PgxPool, retention time.Duration) *CleanupService {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &CleanupService{Pool: pool, Retention: retention, now: time.Now}
}

// CleanupOldData removes documents created before the retention cutoff and
// returns how many were deleted.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	ctx, span := startSpan(ctx, "documents.Cleanup", "DELETE")
	defer span.End()
	cutoff := s.now().Add(-s.Retention).UTC()
	tag, err := s.Pool.Exec(ctx, `DELETE FROM generated_documents WHERE created_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("op=document.cleanup: %w", err)
	}
	deleted := tag.RowsAffected()
	slog.Info("document cleanup completed",
		slog.Int64("deleted_documents", deleted),
		slog.Time("cutoff", cutoff),
	)
	return deleted, nil
}

// RunPeriodic runs a cleanup immediately and then on every interval until ctx
// is done.
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial document cleanup failed", slog.Any("error", err))
	}
	for {
		select {
		case <-ctx.Done():
			slog.Info("document cleanup stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic document cleanup failed", slog.Any("error", err))
			}
		}
	}
}
