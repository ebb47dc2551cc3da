// Package team はチーム一覧の管理を提供する。
package team

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/repository"
)

// Service はチーム一覧のサービス層。
// 一覧全体を読み込んで検証し、書き戻すため、変更操作はmuで直列化する。
type Service struct {
	mu   sync.Mutex
	repo repository.TeamRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.TeamRepository) *Service {
	return &Service{repo: repo}
}

// List はチーム一覧を返す。
func (s *Service) List(ctx context.Context) ([]model.Team, error) {
	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	return teams, nil
}

// Add はチームを追加し、更新後の一覧を返す。
func (s *Service) Add(ctx context.Context, name string, platform model.Platform) ([]model.Team, error) {
	name = strings.TrimSpace(name)
	if err := validate(name, platform); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}
	if indexOf(teams, name) >= 0 {
		return nil, model.NewTeamExistsError(name)
	}

	teams = append(teams, model.Team{Name: name, Platform: platform})
	if err := s.repo.Save(ctx, teams); err != nil {
		return nil, fmt.Errorf("チーム一覧の保存に失敗しました: %w", err)
	}

	slog.Info("team added", slog.String("team", name), slog.String("platform", string(platform)))
	return teams, nil
}

// Rename はチーム名とプラットフォームを変更する。
// 新しい名前が別のチームで使われている場合は何も変更せずにエラーを返す。
// 既存の記録のチーム名は書き換えない。
func (s *Service) Rename(ctx context.Context, oldName, newName string, platform model.Platform) ([]model.Team, error) {
	newName = strings.TrimSpace(newName)
	if err := validate(newName, platform); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}

	idx := indexOf(teams, oldName)
	if idx < 0 {
		return nil, model.NewTeamNotFoundError(oldName)
	}
	if newName != oldName && indexOf(teams, newName) >= 0 {
		return nil, model.NewTeamExistsError(newName)
	}

	teams[idx] = model.Team{Name: newName, Platform: platform}
	if err := s.repo.Save(ctx, teams); err != nil {
		return nil, fmt.Errorf("チーム一覧の保存に失敗しました: %w", err)
	}

	slog.Info("team renamed", slog.String("from", oldName), slog.String("to", newName))
	return teams, nil
}

// Remove はチームを削除する。記録は削除しない。
func (s *Service) Remove(ctx context.Context, name string) ([]model.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	teams, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("チーム一覧の取得に失敗しました: %w", err)
	}

	idx := indexOf(teams, name)
	if idx < 0 {
		return nil, model.NewTeamNotFoundError(name)
	}
	teams = append(teams[:idx], teams[idx+1:]...)

	if err := s.repo.Save(ctx, teams); err != nil {
		return nil, fmt.Errorf("チーム一覧の保存に失敗しました: %w", err)
	}

	slog.Info("team removed", slog.String("team", name))
	return teams, nil
}

// PlatformOf はチーム名から登録済みのプラットフォームを引く。
func PlatformOf(teams []model.Team, name string) (model.Platform, bool) {
	if i := indexOf(teams, name); i >= 0 {
		return teams[i].Platform, true
	}
	return "", false
}

func validate(name string, platform model.Platform) error {
	if name == "" {
		return model.NewValidationError("Missing name")
	}
	if !platform.Valid() {
		return model.NewValidationError("Invalid platform")
	}
	return nil
}

func indexOf(teams []model.Team, name string) int {
	for i, t := range teams {
		if t.Name == name {
			return i
		}
	}
	return -1
}
