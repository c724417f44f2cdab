package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartOTPCleaner periodically removes reset passcodes that were used or
// expired more than retention ago.
func StartOTPCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				res, err := db.ExecContext(ctx, `
                    DELETE FROM password_otps
                     WHERE used = true
                        OR expires_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to clean password otps", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned password otps", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
