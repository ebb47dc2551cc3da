// Package client はbooktrackerサーバーのHTTP APIクライアントを提供する。
// APIClientはrepository.EntryRepositoryを満たし、クライアント側では
// ローカルストアと同じ契約で扱える。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/hitoshi/booktracker/internal/model"
	"github.com/hitoshi/booktracker/internal/repository"
)

const (
	defaultRetryMax = 3
	// maxResponseBytes はレスポンスボディの読み込み上限。
	maxResponseBytes = 10 << 20
)

// Options はAPIClientの設定。
type Options struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger
}

// APIClient はサーバーAPIを呼び出すクライアント。
// 接続エラーと5xx、429は指数バックオフで再試行する。
type APIClient struct {
	baseURL string
	http    *retryablehttp.Client
	token   string
}

// NewAPIClient はbaseURL（例: http://localhost:3000）のサーバーに接続するAPIClientを生成する。
func NewAPIClient(baseURL string, opts Options) *APIClient {
	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	// *slog.Loggerはretryablehttp.LeveledLoggerを満たす
	rc.Logger = nil
	if opts.Logger != nil {
		rc.Logger = opts.Logger
	}

	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
}

// SetToken は管理者APIで使用するBearerトークンを設定する。
func (c *APIClient) SetToken(token string) {
	c.token = token
}

type okBody struct {
	OK      bool  `json:"ok"`
	Removed int64 `json:"removed"`
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Ping はサーバーが応答するかを確認する。
func (c *APIClient) Ping(ctx context.Context) error {
	var body okBody
	if err := c.do(ctx, http.MethodGet, "/api/ping", nil, &body); err != nil {
		return err
	}
	if !body.OK {
		return model.NewTransportFailureError("unexpected ping response")
	}
	return nil
}

// Login は管理者としてログインし、以降のリクエストにトークンを付与する。
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	var body struct {
		Token string `json:"token"`
	}
	req := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", req, &body); err != nil {
		return err
	}
	c.token = body.Token
	return nil
}

// ListTeams はチーム一覧を返す。
func (c *APIClient) ListTeams(ctx context.Context) ([]model.Team, error) {
	var teams []model.Team
	if err := c.do(ctx, http.MethodGet, "/api/teams", nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// List は全記録を返す。
func (c *APIClient) List(ctx context.Context) ([]*model.Entry, error) {
	var entries []*model.Entry
	if err := c.do(ctx, http.MethodGet, "/api/entries", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Append は記録を登録する。IDと作成日時はサーバーが設定する。
func (c *APIClient) Append(ctx context.Context, entry *model.Entry) (*model.Entry, error) {
	var saved model.Entry
	if err := c.do(ctx, http.MethodPost, "/api/entries", entry, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Update は記録を部分更新する。
func (c *APIClient) Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.Entry, error) {
	var updated model.Entry
	if err := c.do(ctx, http.MethodPut, entryPath(id), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// SoftDelete は記録を論理削除する。
func (c *APIClient) SoftDelete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, entryPath(id), nil, nil)
}

// Clear は記録を物理削除する。管理者トークンが必要。
func (c *APIClient) Clear(ctx context.Context, platform model.Platform) (int64, error) {
	path := "/api/entries"
	if platform != "" {
		path += "?platform=" + url.QueryEscape(string(platform))
	}
	var body okBody
	if err := c.do(ctx, http.MethodDelete, path, nil, &body); err != nil {
		return 0, err
	}
	return body.Removed, nil
}

func entryPath(id int64) string {
	return "/api/entries/" + strconv.FormatInt(id, 10)
}

// do はリクエストを送信し、2xxならレスポンスをoutにデコードする。
// 404のENTRY_NOT_FOUNDはrepository.ErrNotFoundに、その他のエラー応答は*model.APIErrorに変換する。
func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
		}
		body = raw
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("リクエストの作成に失敗しました: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.NewTransportFailureError(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.NewTransportFailureError(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return model.NewTransportFailureError("invalid response body")
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil || eb.Error == "" {
		return model.NewTransportFailureError(fmt.Sprintf("unexpected status %d", status))
	}
	if eb.Code == model.ErrCodeEntryNotFound {
		return fmt.Errorf("%s: %w", eb.Error, repository.ErrNotFound)
	}
	return &model.APIError{
		Code:     eb.Code,
		Message:  eb.Error,
		Category: eb.Category,
		Action:   eb.Action,
	}
}
