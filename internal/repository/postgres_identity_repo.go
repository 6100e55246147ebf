package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hitoshi/webpresence/internal/model"
)

const identityColumns = `id, user_id, provider, provider_user_id, created_at`

// PostgresIdentityRepo はidentitiesテーブルを読むリポジトリ。
// 書き込みはユーザー作成と同一トランザクションで行うため、PostgresUserRepo.CreateWithIdentityが担う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID は(provider, provider_user_id)に紐付くidentityを返す。
// 紐付けが無い場合は(nil, nil)。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateError("failed to find identity", err)
	}
	return identity, nil
}

func scanIdentity(row rowScanner) (*model.Identity, error) {
	var id model.Identity
	if err := row.Scan(&id.ID, &id.UserID, &id.Provider, &id.ProviderUserID, &id.CreatedAt); err != nil {
		return nil, err
	}
	return &id, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
