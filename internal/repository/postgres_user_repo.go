package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/webpresence/internal/model"
)

const userColumns = `id, fullname, email, password_hash, online, last_seen_at, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("failed to find user by ID", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("failed to find user by email", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	if err := insertUser(ctx, r.db, user); err != nil {
		return translateError("failed to insert user", err)
	}
	return nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
// どちらかの挿入に失敗した場合はロールバックされ、部分的なレコードは残らない。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	if err := insertUser(ctx, tx, user); err != nil {
		return translateError("failed to insert user", err)
	}

	// identityを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return translateError("failed to insert identity", err)
	}

	if err := tx.Commit(); err != nil {
		return translateError("failed to commit transaction", err)
	}

	return nil
}

// Save はユーザーの変更を永続化する。
// 同一ユーザーへの同時更新は後勝ちとなる。
func (r *PostgresUserRepo) Save(ctx context.Context, user *model.User) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET fullname = $2, email = $3, password_hash = NULLIF($4, ''),
		     online = $5, last_seen_at = $6, updated_at = $7
		 WHERE id = $1`,
		user.ID, user.FullName, user.Email, user.PasswordHash,
		user.Online, nullTime(user.LastSeenAt), user.UpdatedAt,
	)
	if err != nil {
		return translateError("failed to update user", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// execer は*sql.DBと*sql.Txの共通インターフェース。
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertUser(ctx context.Context, db execer, user *model.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, fullname, email, password_hash, online, last_seen_at, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)`,
		user.ID, user.FullName, user.Email, user.PasswordHash,
		user.Online, nullTime(user.LastSeenAt), user.CreatedAt, user.UpdatedAt,
	)
	return err
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user       model.User
		hash       sql.NullString
		lastSeenAt sql.NullTime
	)
	err := row.Scan(
		&user.ID, &user.FullName, &user.Email, &hash,
		&user.Online, &lastSeenAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash.String
	if lastSeenAt.Valid {
		user.LastSeenAt = lastSeenAt.Time
	}
	return &user, nil
}

// nullTime はゼロ値の時刻をNULLとして扱う。
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
