package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/webpresence/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したお問い合わせメッセージリポジトリ。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, message *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, fullname, email, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID, message.FullName, message.Email, message.Body, message.Date,
	)
	if err != nil {
		return translateError("failed to insert message", err)
	}
	return nil
}

// ListAll は全メッセージを送信日時の昇順で返す。
// 件数の上限は設けない。
func (r *PostgresMessageRepo) ListAll(ctx context.Context) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, fullname, email, body, created_at
		 FROM messages
		 ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, translateError("failed to list messages", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.FullName, &m.Email, &m.Body, &m.Date); err != nil {
			return nil, translateError("failed to scan message", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError("failed to iterate messages", err)
	}

	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
