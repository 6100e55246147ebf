package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/hitoshi/webpresence/internal/model"
	"github.com/lib/pq"
)

// 一意制約名。マイグレーションで明示的に命名している。
const (
	constraintUsersEmail        = "users_email_unique"
	constraintIdentitiesSubject = "identities_provider_subject_unique"
	pqUniqueViolation           = "23505"
	pqStringDataRightTruncation = "22001"
	pqConnectionExceptionClass  = "08"
	pqOperatorInterventionClass = "57"
)

// translateError はDBドライバのエラーをドメインエラーに変換する。
// 一意制約違反は対応するAPIErrorに、接続断はSTORE_UNAVAILABLEに変換し、
// それ以外は操作名を付けてラップする。
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == pqUniqueViolation {
			switch pqErr.Constraint {
			case constraintUsersEmail:
				return model.NewDuplicateEmailError()
			case constraintIdentitiesSubject:
				return model.NewIdentityConflictError()
			}
		}
		if pqErr.Code == pqStringDataRightTruncation {
			// 通常はサービス層の長さ検証で弾かれる。列定義との食い違いはフォームエラーとして返す
			return &model.APIError{
				Code:     model.ErrCodeValidation,
				Message:  "The submitted form contains errors.",
				Category: "validation",
				Action:   "Shorten the input and submit again.",
				Details:  []string{"Input is too long"},
				Err:      fmt.Errorf("%s: %w", op, err),
			}
		}
		class := string(pqErr.Code.Class())
		if class == pqConnectionExceptionClass || class == pqOperatorInterventionClass {
			return model.NewStoreUnavailableError(fmt.Errorf("%s: %w", op, err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if isUnavailable(err) {
		return model.NewStoreUnavailableError(fmt.Errorf("%s: %w", op, err))
	}

	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable は永続化層に到達できないことを示すエラーかを判定する。
func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
