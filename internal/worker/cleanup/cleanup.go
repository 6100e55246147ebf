// Package cleanup はセッション期限切れに伴う定期クリーンアップジョブを提供する。
// オンライン状態はプロフィール表示時に永続化されるため、ログアウトせずに
// セッションが期限切れになったユーザーはこのジョブでオフラインに戻す。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/webpresence/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	// last_seen_atからセッション寿命以上経過したユーザーは、
	// オンラインにしたセッションが必ず期限切れになっている
	expirePresenceQuery = `UPDATE users SET online = false, updated_at = now()
		WHERE online AND (last_seen_at IS NULL OR last_seen_at < now() - $1::interval)`

	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expiry < now()`
)

// SessionCleanupJob は期限切れセッションの後始末を行うジョブ。
// 冪等で、何度実行しても結果は変わらない。
type SessionCleanupJob struct {
	db      Executor
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	// SessionLifetime はセッションの有効期間。
	SessionLifetime time.Duration
	// DeleteSessions がtrueの場合はsessionsテーブルの期限切れ行も削除する。
	// Redisをセッションストアに使う場合はTTLで消えるためfalseにする。
	DeleteSessions bool
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。
func NewSessionCleanupJob(db Executor, logger *slog.Logger, m metrics.MetricsCollector, lifetime time.Duration, deleteSessions bool) *SessionCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &SessionCleanupJob{
		db:              db,
		logger:          logger,
		metrics:         m,
		SessionLifetime: lifetime,
		DeleteSessions:  deleteSessions,
	}
}

// Run はセッションが期限切れになったユーザーをオフラインにし、
// 必要に応じて期限切れセッションを削除する。
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d seconds", int64(j.SessionLifetime/time.Second))
	expired, err := j.exec(ctx, expirePresenceQuery, interval)
	if err != nil {
		j.logger.Error("オンライン状態のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("オンライン状態のクリーンアップに失敗: %w", err)
	}
	j.metrics.RecordPresenceExpired(expired)

	var deleted int64
	if j.DeleteSessions {
		deleted, err = j.exec(ctx, deleteExpiredSessionsQuery)
		if err != nil {
			j.logger.Error("期限切れセッションの削除に失敗しました",
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
		}
	}

	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("expired_presence_count", expired),
		slog.Int64("deleted_session_count", deleted),
		slog.Duration("session_lifetime", j.SessionLifetime),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は指定間隔でRunを実行する。起動直後に1回実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("セッションクリーンアップを開始しました",
		slog.Duration("interval", interval),
	)

	j.runLogged(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("セッションクリーンアップを停止しました")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

// runLogged はRunのエラーを記録するのみで、ループは継続させる。
func (j *SessionCleanupJob) runLogged(ctx context.Context) {
	if err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("クリーンアップサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

func (j *SessionCleanupJob) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("件数の取得に失敗: %w", err)
	}
	return n, nil
}
