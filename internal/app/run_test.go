package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/booktracker/internal/client/form"
	"github.com/hitoshi/booktracker/internal/client/localstore"
	"github.com/hitoshi/booktracker/internal/config"
	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/report"
	"github.com/hitoshi/booktracker/internal/repository"
)

const duneSubmission = `{
	"name": "Alice Reader",
	"discord": "alice",
	"author": "Frank Herbert",
	"book": "Dune",
	"pages": 412,
	"team": "Team B",
	"platform": "discord",
	"completionDate": "2025-01-15",
	"favoriteScene": "The first sandworm ride across the open desert."
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestServer はfileバックエンドで全依存関係をワイヤリングしたサーバーを起動する。
func newTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()
	setTestEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load returned error: %v", err)
	}

	h, cleanup, err := buildHandler(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildHandler returned error: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})
	return srv, cfg
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	setTestEnv(t)
	t.Setenv("STORAGE_BACKEND", "postgres")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

// fileバックエンドではmigrateは何もせず成功する
func TestRun_MigrateWithFileBackend(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate"}); err != nil {
		t.Fatalf("Run(migrate) returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "no migrations") {
		t.Errorf("expected skip log, got %s", buf.String())
	}
}

func TestCheckHealth(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ping" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ok.Close()

	if err := checkHealth(ok.URL); err != nil {
		t.Errorf("checkHealth returned error: %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	if err := checkHealth(failing.URL); err == nil {
		t.Error("expected error for 503 response")
	}
}

func TestBuildHandler_InvalidBookSearchEndpoint(t *testing.T) {
	setTestEnv(t)
	t.Setenv("BOOK_SEARCH_ENDPOINT", "http://127.0.0.1/search.json")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load returned error: %v", err)
	}
	if _, _, err := buildHandler(context.Background(), cfg, discardLogger()); err == nil {
		t.Error("expected error for loopback book search endpoint")
	}
}

// 記録の送信から集計、CSVエクスポートまでをfileバックエンドで通しで検証する
func TestServe_FileBackendLifecycle(t *testing.T) {
	srv, cfg := newTestServer(t)

	// ログイン
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", `{"username":"librarian","password":"s3cret-pass"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	var login struct {
		OK    bool   `json:"ok"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatal(err)
	}
	if !login.OK || len(login.Token) != 64 {
		t.Fatalf("login = %+v, want ok with 64-char token", login)
	}

	// 送信と重複拒否
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/entries", "", duneSubmission)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/entries", "", strings.Replace(duneSubmission, `"Dune"`, `"DUNE"`, 1))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate status = %d, want 400", resp.StatusCode)
	}
	var errBody struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatal(err)
	}
	if errBody.Code != model.ErrCodeDuplicateBook {
		t.Errorf("code = %q, want %q", errBody.Code, model.ErrCodeDuplicateBook)
	}

	// 集計
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/reports?platform=discord", "", "")
	var totals []report.TeamTotal
	if err := json.NewDecoder(resp.Body).Decode(&totals); err != nil {
		t.Fatal(err)
	}
	if len(totals) != 1 || totals[0].Team != "Team B" || totals[0].TotalPages != 412 {
		t.Errorf("totals = %+v, want Team B with 412 pages", totals)
	}

	// エクスポートは管理者のみ
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/export?team=Team%20B", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("export without token status = %d, want 401", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/export?team=Team%20B", login.Token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	raw, _ := io.ReadAll(resp.Body)
	if lines := strings.Split(strings.TrimSpace(string(raw)), "\n"); len(lines) != 2 {
		t.Errorf("csv lines = %d, want header + 1 row\n%s", len(lines), raw)
	}

	// 保存先はDATA_DIR配下のJSONファイル
	entries, err := repository.NewFileEntryRepo(cfg.EntriesFile).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Book != "Dune" {
		t.Errorf("stored entries = %+v, want one Dune entry", entries)
	}

	// メトリクス
	resp = doJSON(t, http.MethodGet, srv.URL+"/metrics", "", "")
	raw, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "booktracker_") {
		t.Error("expected booktracker metrics in /metrics output")
	}
}

func TestRunSubmit_RemoteMode(t *testing.T) {
	srv, cfg := newTestServer(t)
	cfg.APIBaseURL = srv.URL

	var out bytes.Buffer
	if err := runSubmit(context.Background(), cfg, strings.NewReader(duneSubmission), &out); err != nil {
		t.Fatalf("runSubmit returned error: %v", err)
	}

	var result submitResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if result.Mode != form.ModeRemote {
		t.Errorf("mode = %q, want %q", result.Mode, form.ModeRemote)
	}

	entries, err := repository.NewFileEntryRepo(cfg.EntriesFile).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("server entries = %d, want 1", len(entries))
	}
}

// サーバーに到達できない場合はSQLiteのローカルストアに保存する
func TestRunSubmit_LocalFallback(t *testing.T) {
	unreachable := httptest.NewServer(http.NotFoundHandler())
	baseURL := unreachable.URL
	unreachable.Close()

	path := filepath.Join(t.TempDir(), "local.db")
	cfg := &config.Config{APIBaseURL: baseURL, LocalStorePath: path}

	var out bytes.Buffer
	if err := runSubmit(context.Background(), cfg, strings.NewReader(duneSubmission), &out); err != nil {
		t.Fatalf("runSubmit returned error: %v", err)
	}

	var result submitResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if result.Mode != form.ModeLocal {
		t.Errorf("mode = %q, want %q", result.Mode, form.ModeLocal)
	}
	if result.Entry == nil || result.Entry.ID != 1 {
		t.Errorf("entry = %+v, want id 1", result.Entry)
	}

	kv, err := localstore.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	defer kv.Close()
	entries, err := localstore.NewEntryStore(kv).List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Book != "Dune" {
		t.Errorf("local entries = %+v, want one Dune entry", entries)
	}
}

func TestRunSubmit_RejectsInvalidInput(t *testing.T) {
	cfg := &config.Config{APIBaseURL: "http://127.0.0.1:1"}

	if err := runSubmit(context.Background(), cfg, strings.NewReader("{not json"), io.Discard); err == nil {
		t.Error("expected decode error")
	}

	err := runSubmit(context.Background(), cfg, strings.NewReader(strings.Replace(duneSubmission, "Alice Reader", "A", 1)), io.Discard)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Errorf("err = %v, want validation error", err)
	}
}
