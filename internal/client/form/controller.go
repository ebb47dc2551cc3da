// Package form は読書記録フォームのクライアント側コントローラーを提供する。
// 起動時にサーバーへの疎通を1回だけ確認し、以降はサーバーAPIか
// ローカルストアのどちらか一方に固定して読み書きする。
package form

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/booktracker/internal/entry"
	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/report"
	"github.com/hitoshi/booktracker/internal/repository"
)

// Mode は記録の保存先。
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// MinNameLength は名前の最小文字数。
const MinNameLength = 2

var namePattern = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)

// RemoteStore はサーバーAPIの保存先。client.APIClientが実装する。
type RemoteStore interface {
	repository.EntryRepository
	Ping(ctx context.Context) error
	ListTeams(ctx context.Context) ([]model.Team, error)
}

// Controller はフォームの入力検証と保存先への読み書きを行う。
type Controller struct {
	mode    Mode
	store   repository.EntryRepository
	teams   func(ctx context.Context) ([]model.Team, error)
	service *entry.Service
}

// New はremoteへの疎通を確認し、応答があればremote、なければlocalを保存先とする。
// remoteがnilの場合はlocalを使用する。
func New(ctx context.Context, remote RemoteStore, local repository.EntryRepository, sanitizer entry.Sanitizer) *Controller {
	c := &Controller{
		mode:  ModeLocal,
		store: local,
		teams: func(context.Context) ([]model.Team, error) { return model.DefaultTeams(), nil },
	}

	if remote != nil {
		if err := remote.Ping(ctx); err != nil {
			slog.Warn("backend unreachable, using local store", slog.String("error", err.Error()))
		} else {
			c.mode = ModeRemote
			c.store = remote
			c.teams = remote.ListTeams
		}
	}

	c.service = entry.NewService(c.store, sanitizer, metrics.Nop{})
	return c
}

// Mode は選択された保存先を返す。
func (c *Controller) Mode() Mode {
	return c.mode
}

// Submit はフォーム入力を検証して記録を保存する。
// 名前と著者に関するフォーム固有の規則を確認した後、サーバーと同じ検証と重複チェックを行う。
func (c *Controller) Submit(ctx context.Context, in entry.SubmitInput) (*model.Entry, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	return c.service.Submit(ctx, in)
}

// Entries は保存先の全記録を返す。
func (c *Controller) Entries(ctx context.Context) ([]*model.Entry, error) {
	return c.store.List(ctx)
}

// Reports はチームごとの集計を返す。
func (c *Controller) Reports(ctx context.Context, filter report.Filter) ([]report.TeamTotal, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := c.teams(ctx)
	if err != nil {
		return nil, err
	}
	return report.Aggregate(entries, teams, filter), nil
}

// MyEntries はメンバー自身の記録と合計を返す。
func (c *Controller) MyEntries(ctx context.Context, platform model.Platform, handle string) (report.MemberSummary, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return report.MemberSummary{}, err
	}
	return report.SummarizeMember(entries, platform, handle), nil
}

// ValidateInput はフォーム固有の入力規則を検証する。
func ValidateInput(in entry.SubmitInput) error {
	name := strings.TrimSpace(in.Name)
	if utf8.RuneCountInString(name) < MinNameLength {
		return model.NewValidationError("Please enter a valid name (at least 2 characters)")
	}
	if !namePattern.MatchString(name) {
		return model.NewValidationError("Name can only contain letters, spaces, hyphens, and apostrophes")
	}
	if strings.TrimSpace(in.Author) == "" {
		return model.NewValidationError("Please fill all required fields with valid values")
	}
	return nil
}
