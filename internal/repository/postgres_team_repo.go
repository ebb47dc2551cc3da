package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/booktracker/internal/model"
)

// PostgresTeamRepo はPostgreSQLを使用したチームリポジトリ。
// 初期チームはマイグレーションで投入される。
type PostgresTeamRepo struct {
	db *sql.DB
}

// NewPostgresTeamRepo はPostgresTeamRepoを生成する。
func NewPostgresTeamRepo(db *sql.DB) *PostgresTeamRepo {
	return &PostgresTeamRepo{db: db}
}

// List はチーム一覧を保存順に返す。
func (r *PostgresTeamRepo) List(ctx context.Context) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, platform FROM teams ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	teams := []model.Team{}
	for rows.Next() {
		var t model.Team
		var platform string
		if err := rows.Scan(&t.Name, &platform); err != nil {
			return nil, fmt.Errorf("チームのスキャンに失敗しました: %w", err)
		}
		t.Platform = model.Platform(platform)
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("チーム一覧の読み取り中にエラーが発生しました: %w", err)
	}
	return teams, nil
}

// Save はトランザクション内でチーム一覧全体を置き換える。
func (r *PostgresTeamRepo) Save(ctx context.Context, teams []model.Team) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("チーム一覧の削除に失敗しました: %w", err)
	}

	for i, t := range teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams (name, platform, position) VALUES ($1, $2, $3)`,
			t.Name, string(t.Platform), i,
		); err != nil {
			return fmt.Errorf("チーム %q の保存に失敗しました: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}
