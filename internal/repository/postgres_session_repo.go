package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションストア。
// scs.SessionManagerのStoreとして使用し、トークンとエンコード済みの
// セッションデータ、有効期限を保持する。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// FindCtx は指定トークンのセッションデータを取得する。
// 存在しないか期限切れの場合はfound=falseを返す。
func (r *PostgresSessionRepo) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE token = $1 AND expiry > now()`,
		token,
	).Scan(&data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translateError("failed to find session", err)
	}
	return data, true, nil
}

// CommitCtx はセッションデータを作成または更新する。
func (r *PostgresSessionRepo) CommitCtx(ctx context.Context, token string, data []byte, expiry time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, data, expiry)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET data = EXCLUDED.data, expiry = EXCLUDED.expiry`,
		token, data, expiry,
	)
	if err != nil {
		return translateError("failed to commit session", err)
	}
	return nil
}

// DeleteCtx は指定トークンのセッションを削除する。
// セッションが参照するユーザーには影響しない。
func (r *PostgresSessionRepo) DeleteCtx(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = $1`,
		token,
	)
	if err != nil {
		return translateError("failed to delete session", err)
	}
	return nil
}

// Find はscs.Storeを満たすためのコンテキストなし版。
func (r *PostgresSessionRepo) Find(token string) ([]byte, bool, error) {
	return r.FindCtx(context.Background(), token)
}

// Commit はscs.Storeを満たすためのコンテキストなし版。
func (r *PostgresSessionRepo) Commit(token string, data []byte, expiry time.Time) error {
	return r.CommitCtx(context.Background(), token, data, expiry)
}

// Delete はscs.Storeを満たすためのコンテキストなし版。
func (r *PostgresSessionRepo) Delete(token string) error {
	return r.DeleteCtx(context.Background(), token)
}

// compile-time interface check
var _ scs.CtxStore = (*PostgresSessionRepo)(nil)
