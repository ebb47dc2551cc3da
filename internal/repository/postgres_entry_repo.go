package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/booktracker/internal/model"
)

const entryColumns = `id, name, COALESCE(discord, ''), COALESCE(author, ''), book, pages, team, platform,
	created, edited_at, COALESCE(to_char(completion_date, 'YYYY-MM-DD'), ''),
	COALESCE(favorite_scene, ''), COALESCE(status, 'active')`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresEntryRepo はPostgreSQLを使用した読了記録リポジトリ。
// 同時書き込みの整合性はデータベースの行ロックに委ねる。
type PostgresEntryRepo struct {
	db *sql.DB
}

// NewPostgresEntryRepo はPostgresEntryRepoを生成する。
func NewPostgresEntryRepo(db *sql.DB) *PostgresEntryRepo {
	return &PostgresEntryRepo{db: db}
}

// List は全記録を作成日時の昇順で返す。
func (r *PostgresEntryRepo) List(ctx context.Context) ([]*model.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries ORDER BY created ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []*model.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("記録のスキャンに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記録一覧の読み取り中にエラーが発生しました: %w", err)
	}

	return entries, nil
}

// Append は記録をINSERTし、採番されたIDを含む記録を返す。
func (r *PostgresEntryRepo) Append(ctx context.Context, entry *model.Entry) (*model.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO entries
		   (name, discord, author, book, pages, team, platform, created, completion_date, favorite_scene, status)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, '')::date, NULLIF($10, ''), $11)
		 RETURNING `+entryColumns,
		entry.Name, entry.Discord, entry.Author, entry.Book, entry.Pages, entry.Team,
		string(entry.Platform), time.Now().UTC(), entry.CompletionDate, entry.FavoriteScene,
		string(model.EntryStatusActive),
	)

	saved, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("記録の作成に失敗しました: %w", err)
	}
	return saved, nil
}

// Update はSELECT ... FOR UPDATEで行をロックしてからパッチを適用する。
func (r *PostgresEntryRepo) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	current, err := scanEntry(tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1 FOR UPDATE`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("記録の取得に失敗しました: %w", err)
	}
	if !current.IsActive() {
		return nil, ErrNotFound
	}

	patch.Apply(current)

	updated, err := scanEntry(tx.QueryRowContext(ctx,
		`UPDATE entries SET
		   name = $1, discord = NULLIF($2, ''), author = NULLIF($3, ''), book = $4, pages = $5,
		   team = $6, platform = $7, completion_date = NULLIF($8, '')::date,
		   favorite_scene = NULLIF($9, ''), edited_at = $10, status = $11
		 WHERE id = $12
		 RETURNING `+entryColumns,
		current.Name, current.Discord, current.Author, current.Book, current.Pages,
		current.Team, string(current.Platform), current.CompletionDate,
		current.FavoriteScene, time.Now().UTC(), string(model.EntryStatusActive), id,
	))
	if err != nil {
		return nil, fmt.Errorf("記録の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return updated, nil
}

// SoftDelete は記録の状態をdeletedに更新する。
func (r *PostgresEntryRepo) SoftDelete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE entries SET status = $1, edited_at = $2 WHERE id = $3`,
		string(model.EntryStatusDeleted), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("記録の論理削除に失敗しました: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear は記録を物理削除する。platformが空の場合はテーブルをTRUNCATEする。
func (r *PostgresEntryRepo) Clear(ctx context.Context, platform model.Platform) (int64, error) {
	if platform == "" {
		var count int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
			return 0, fmt.Errorf("記録数の取得に失敗しました: %w", err)
		}
		if _, err := r.db.ExecContext(ctx, `TRUNCATE entries`); err != nil {
			return 0, fmt.Errorf("記録の全削除に失敗しました: %w", err)
		}
		return count, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE platform = $1`, string(platform))
	if err != nil {
		return 0, fmt.Errorf("プラットフォーム別の記録削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

func scanEntry(s rowScanner) (*model.Entry, error) {
	e := &model.Entry{}
	var platform, status string
	var editedAt sql.NullTime
	err := s.Scan(
		&e.ID, &e.Name, &e.Discord, &e.Author, &e.Book, &e.Pages, &e.Team, &platform,
		&e.Created, &editedAt, &e.CompletionDate, &e.FavoriteScene, &status,
	)
	if err != nil {
		return nil, err
	}
	e.Platform = model.Platform(platform)
	e.Status = model.EntryStatus(status)
	if editedAt.Valid {
		t := editedAt.Time
		e.EditedAt = &t
	}
	return e, nil
}
