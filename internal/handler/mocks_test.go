package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/booktracker/internal/entry"
	"github.com/hitoshi/booktracker/internal/middleware"
	"github.com/hitoshi/booktracker/internal/model"
)

// --- モック定義 ---

// mockEntryService はEntryServiceInterfaceのモック実装。
type mockEntryService struct {
	listFn   func(ctx context.Context) ([]*model.Entry, error)
	submitFn func(ctx context.Context, in entry.SubmitInput) (*model.Entry, error)
	updateFn func(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error)
	deleteFn func(ctx context.Context, id int64) error
	clearFn  func(ctx context.Context, platform model.Platform) (int64, error)
}

func (m *mockEntryService) List(ctx context.Context) ([]*model.Entry, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockEntryService) Submit(ctx context.Context, in entry.SubmitInput) (*model.Entry, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, in)
	}
	return nil, nil
}

func (m *mockEntryService) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockEntryService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockEntryService) Clear(ctx context.Context, platform model.Platform) (int64, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, platform)
	}
	return 0, nil
}

// mockTeamService はTeamServiceInterfaceのモック実装。
type mockTeamService struct {
	listFn   func(ctx context.Context) ([]model.Team, error)
	addFn    func(ctx context.Context, name string, platform model.Platform) ([]model.Team, error)
	renameFn func(ctx context.Context, oldName, newName string, platform model.Platform) ([]model.Team, error)
	removeFn func(ctx context.Context, name string) ([]model.Team, error)
}

func (m *mockTeamService) List(ctx context.Context) ([]model.Team, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return model.DefaultTeams(), nil
}

func (m *mockTeamService) Add(ctx context.Context, name string, platform model.Platform) ([]model.Team, error) {
	if m.addFn != nil {
		return m.addFn(ctx, name, platform)
	}
	return nil, nil
}

func (m *mockTeamService) Rename(ctx context.Context, oldName, newName string, platform model.Platform) ([]model.Team, error) {
	if m.renameFn != nil {
		return m.renameFn(ctx, oldName, newName, platform)
	}
	return nil, nil
}

func (m *mockTeamService) Remove(ctx context.Context, name string) ([]model.Team, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, name)
	}
	return nil, nil
}

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn  func(username, password string) (string, error)
	verifyFn func(token string) bool
	logoutFn func(token string)
}

func (m *mockAuthService) Login(username, password string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(username, password)
	}
	return "", nil
}

func (m *mockAuthService) Verify(token string) bool {
	if m.verifyFn != nil {
		return m.verifyFn(token)
	}
	return false
}

func (m *mockAuthService) Logout(token string) {
	if m.logoutFn != nil {
		m.logoutFn(token)
	}
}

// mockBookSearcher はBookSearcherのモック実装。
type mockBookSearcher struct {
	searchFn func(ctx context.Context, query string) []model.BookCandidate
}

func (m *mockBookSearcher) Search(ctx context.Context, query string) []model.BookCandidate {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorBody はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}
