// Package entry は読了記録の登録・更新・削除のドメインロジックを提供する。
package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/repository"
)

// Sanitizer は利用者入力からマークアップを取り除く。
type Sanitizer interface {
	Clean(text string) string
}

// SubmitInput は新規記録の入力を表す。
type SubmitInput struct {
	Name           string         `json:"name"`
	Discord        string         `json:"discord"`
	Author         string         `json:"author"`
	Book           string         `json:"book"`
	Pages          int            `json:"pages"`
	Team           string         `json:"team"`
	Platform       model.Platform `json:"platform"`
	CompletionDate string         `json:"completionDate"`
	FavoriteScene  string         `json:"favoriteScene"`
}

// Service は読了記録のサービス層。
// 重複チェックと保存の間に他の変更が割り込まないよう、変更操作はmuで直列化する。
// JSONファイルストアは自身でロックを持たないため、この直列化がプロセス内の唯一の保護となる。
type Service struct {
	mu        sync.Mutex
	repo      repository.EntryRepository
	sanitizer Sanitizer
	metrics   metrics.Recorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.EntryRepository, sanitizer Sanitizer, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		metrics:   rec,
	}
}

// List は全記録を作成順に返す。論理削除済みの記録も含む。
func (s *Service) List(ctx context.Context) ([]*model.Entry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記録一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// Submit は入力を検証し、同じチームで同じ本が有効な記録として存在しなければ保存する。
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*model.Entry, error) {
	e := &model.Entry{
		Name:           in.Name,
		Discord:        in.Discord,
		Author:         in.Author,
		Book:           in.Book,
		Pages:          in.Pages,
		Team:           in.Team,
		Platform:       in.Platform,
		CompletionDate: in.CompletionDate,
		FavoriteScene:  in.FavoriteScene,
	}
	s.clean(e)
	if err := Validate(e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("重複チェック用の記録取得に失敗しました: %w", err)
	}
	if findDuplicate(existing, e, 0) != nil {
		s.metrics.RecordDuplicate()
		return nil, model.NewDuplicateBookError()
	}

	saved, err := s.repo.Append(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("記録の保存に失敗しました: %w", err)
	}
	s.metrics.RecordSubmission(string(saved.Platform))

	slog.Info("entry submitted",
		slog.Int64("entry_id", saved.ID),
		slog.String("team", saved.Team),
		slog.String("platform", string(saved.Platform)),
	)
	return saved, nil
}

// Update は有効な記録に部分更新を適用する。
// 適用後の記録を再検証し、書名かチームが変わる場合は自身を除いて重複チェックを行う。
func (s *Service) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記録の取得に失敗しました: %w", err)
	}

	var current *model.Entry
	for _, e := range existing {
		if e.ID == id {
			current = e
			break
		}
	}
	if current == nil || !current.IsActive() {
		return nil, model.NewEntryNotFoundError(id)
	}

	merged := current.Clone()
	patch.Apply(merged)
	s.clean(merged)
	if err := Validate(merged); err != nil {
		return nil, err
	}

	if !sameBook(current, merged) && findDuplicate(existing, merged, id) != nil {
		s.metrics.RecordDuplicate()
		return nil, model.NewDuplicateBookError()
	}

	updated, err := s.repo.Update(ctx, id, fullPatch(merged))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewEntryNotFoundError(id)
		}
		return nil, fmt.Errorf("記録の更新に失敗しました: %w", err)
	}
	return updated, nil
}

// Delete は記録を論理削除する。削除済みの記録に対しても成功する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewEntryNotFoundError(id)
		}
		return fmt.Errorf("記録の削除に失敗しました: %w", err)
	}
	s.metrics.RecordSoftDelete()
	return nil
}

// Clear は記録を物理削除し、削除件数を返す。
// platformが空の場合は全件が対象となる。
func (s *Service) Clear(ctx context.Context, platform model.Platform) (int64, error) {
	if platform != "" && !platform.Valid() {
		return 0, model.NewValidationError("Invalid platform")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.repo.Clear(ctx, platform)
	if err != nil {
		return 0, fmt.Errorf("記録の一括削除に失敗しました: %w", err)
	}
	s.metrics.RecordCleared(removed)

	slog.Info("entries cleared",
		slog.String("platform", string(platform)),
		slog.Int64("removed", removed),
	)
	return removed, nil
}

func (s *Service) clean(e *model.Entry) {
	e.Name = s.sanitizer.Clean(e.Name)
	e.Discord = s.sanitizer.Clean(e.Discord)
	e.Author = s.sanitizer.Clean(e.Author)
	e.Book = s.sanitizer.Clean(e.Book)
	e.Team = s.sanitizer.Clean(e.Team)
	e.CompletionDate = s.sanitizer.Clean(e.CompletionDate)
	e.FavoriteScene = s.sanitizer.Clean(e.FavoriteScene)
}

// findDuplicate はcandidateと同じ本・チームの有効な記録を返す。excludeIDの記録は無視する。
func findDuplicate(entries []*model.Entry, candidate *model.Entry, excludeID int64) *model.Entry {
	for _, e := range entries {
		if e.ID == excludeID && excludeID != 0 {
			continue
		}
		if e.IsActive() && sameBook(e, candidate) {
			return e
		}
	}
	return nil
}

// fullPatch は記録の全可変フィールドをパッチとして表す。
func fullPatch(e *model.Entry) model.EntryPatch {
	return model.EntryPatch{
		Name:           &e.Name,
		Discord:        &e.Discord,
		Author:         &e.Author,
		Book:           &e.Book,
		Pages:          &e.Pages,
		Team:           &e.Team,
		Platform:       &e.Platform,
		CompletionDate: &e.CompletionDate,
		FavoriteScene:  &e.FavoriteScene,
	}
}
