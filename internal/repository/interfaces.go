// Package repository はデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/booktracker/internal/model"
)

// ErrNotFound は対象のレコードが存在しない場合に返される。
var ErrNotFound = errors.New("not found")

// EntryRepository は読了記録の永続化インターフェース。
// PostgreSQL、JSONファイル、クライアント側のローカルKVストア、
// サーバーAPIクライアントがこの契約を実装する。
type EntryRepository interface {
	// List は全記録を作成順に返す。論理削除済みの記録も含む。
	List(ctx context.Context) ([]*model.Entry, error)

	// Append は記録を追加し、採番されたIDと作成日時を設定した記録を返す。
	// 状態は常にactiveで保存される。
	Append(ctx context.Context, entry *model.Entry) (*model.Entry, error)

	// Update は有効な記録に部分更新を適用し、editedAtを更新する。
	// 記録が存在しない、または論理削除済みの場合はErrNotFoundを返す。
	Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error)

	// SoftDelete は記録をdeletedにしてeditedAtを設定する。
	// 削除済みの記録に対しても成功する。存在しない場合はErrNotFoundを返す。
	SoftDelete(ctx context.Context, id int64) error

	// Clear は記録を物理削除し、削除件数を返す。
	// platformが空の場合は全件、指定時はそのプラットフォームの記録のみを対象とする。
	Clear(ctx context.Context, platform model.Platform) (int64, error)
}

// TeamRepository はチーム一覧の永続化インターフェース。
// 一覧全体を読み書きし、整合性チェックはサービス層で行う。
type TeamRepository interface {
	// List はチーム一覧を返す。未保存の場合は初期チームを返す。
	List(ctx context.Context) ([]model.Team, error)

	// Save はチーム一覧全体を保存する。
	Save(ctx context.Context, teams []model.Team) error
}
