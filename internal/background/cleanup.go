package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredCleaner removes expired rows and reports how many it deleted
type ExpiredCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired sessions and action tokens from
// the database. Expired rows are already unusable (every read filters on
// expiry); the sweep just keeps the tables from growing without bound.
type CleanupManager struct {
	sessions     ExpiredCleaner
	actionTokens ExpiredCleaner
	logger       *slog.Logger
	interval     time.Duration
	stopCh       chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	sessions ExpiredCleaner,
	actionTokens ExpiredCleaner,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		sessions:     sessions,
		actionTokens: actionTokens,
		logger:       logger,
		interval:     interval,
		stopCh:       make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes expired sessions and action tokens
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cm.logger.Info("starting expired auth record cleanup")

	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sessionsDeleted, err := cm.sessions.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired sessions", slog.Any("error", err))
	}

	tokensDeleted, err := cm.actionTokens.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired action tokens", slog.Any("error", err))
	}

	if sessionsDeleted > 0 || tokensDeleted > 0 {
		cm.logger.Info("expired auth record cleanup completed",
			slog.Int64("sessions_deleted", sessionsDeleted),
			slog.Int64("action_tokens_deleted", tokensDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
