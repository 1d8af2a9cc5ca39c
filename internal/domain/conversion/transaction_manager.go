package conversion

import (
	"context"
	"database/sql"
)

// TransactionManager トランザクション管理インターフェース
// 台帳レコード・残高・履歴の複数書き込みをひとつの境界にまとめる
type TransactionManager interface {
	// WithTransaction トランザクション内で関数を実行
	WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error
}
