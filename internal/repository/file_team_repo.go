package repository

import (
	"context"

	"github.com/hitoshi/booktracker/internal/model"
)

// FileTeamRepo はチーム一覧をJSONファイルに保存するリポジトリ。
// DocumentEntryRepoと同じくロックを持たず、直列化はteam.Serviceが行う。
type FileTeamRepo struct {
	doc jsonDocument
}

// NewFileTeamRepo はFileTeamRepoを生成する。
func NewFileTeamRepo(path string) *FileTeamRepo {
	return &FileTeamRepo{doc: jsonDocument{path: path}}
}

// List はチーム一覧を返す。ファイルが存在しない場合は初期チームを返す。
func (r *FileTeamRepo) List(ctx context.Context) ([]model.Team, error) {
	teams := []model.Team{}
	exists, err := r.doc.Read(ctx, &teams)
	if err != nil {
		return nil, err
	}
	if !exists {
		return model.DefaultTeams(), nil
	}
	return teams, nil
}

// Save はチーム一覧全体を書き込む。
func (r *FileTeamRepo) Save(ctx context.Context, teams []model.Team) error {
	if teams == nil {
		teams = []model.Team{}
	}
	return r.doc.Write(ctx, teams)
}
