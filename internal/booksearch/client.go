// Package booksearch はOpen Libraryの検索APIで書籍候補を取得する。
// 検索は入力補助のため、失敗してもエラーは返さず空の結果にする。
package booksearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/booktracker/internal/metrics"
	"github.com/hitoshi/booktracker/internal/model"
)

const (
	// DefaultEndpoint はOpen Library検索APIのエンドポイント。
	DefaultEndpoint = "https://openlibrary.org/search.json"
	// MinQueryLength は検索を行う最小文字数。
	MinQueryLength = 3
	// MaxResults は返す候補の最大数。
	MaxResults = 10
	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 2 << 20

	coverURLFormat = "https://covers.openlibrary.org/b/id/%d-M.jpg"
	unknownTitle   = "Unknown Title"
	unknownAuthor  = "Unknown Author"
)

// searchResponse はsearch.jsonのレスポンスのうち使用する部分。
type searchResponse struct {
	Docs []struct {
		Title       string   `json:"title"`
		AuthorName  []string `json:"author_name"`
		CoverID     int64    `json:"cover_i"`
		MedianPages int      `json:"number_of_pages_median"`
	} `json:"docs"`
}

// Client はOpen Library検索APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	metrics    metrics.Recorder
}

// NewClient はClientを生成する。endpointが空の場合はDefaultEndpointを使用する。
// 本番ではsecurity.OutboundGuardのクライアントを渡す。
func NewClient(httpClient *http.Client, endpoint string, logger *slog.Logger, rec metrics.Recorder) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		metrics:    rec,
	}
}

// Search はクエリに一致する書籍候補を最大10件返す。
// 3文字未満のクエリ、通信失敗、異常ステータス、デコード失敗ではいずれも空の結果を返す。
func (c *Client) Search(ctx context.Context, query string) []model.BookCandidate {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []model.BookCandidate{}
	}

	candidates, err := c.search(ctx, query)
	if err != nil {
		c.logger.Warn("書籍検索に失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		c.metrics.RecordBookSearch(0, true)
		return []model.BookCandidate{}
	}

	c.metrics.RecordBookSearch(len(candidates), false)
	return candidates
}

func (c *Client) search(ctx context.Context, query string) ([]model.BookCandidate, error) {
	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(MaxResults))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "BookTracker/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("検索APIがステータス %d を返しました", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	docs := body.Docs
	if len(docs) > MaxResults {
		docs = docs[:MaxResults]
	}

	candidates := make([]model.BookCandidate, 0, len(docs))
	for _, d := range docs {
		bc := model.BookCandidate{
			Title:   d.Title,
			Authors: strings.Join(d.AuthorName, ", "),
			Pages:   d.MedianPages,
		}
		if bc.Title == "" {
			bc.Title = unknownTitle
		}
		if bc.Authors == "" {
			bc.Authors = unknownAuthor
		}
		if d.CoverID > 0 {
			bc.CoverURL = fmt.Sprintf(coverURLFormat, d.CoverID)
		}
		candidates = append(candidates, bc)
	}
	return candidates, nil
}
