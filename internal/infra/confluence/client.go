package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jinford/conflux/internal/core/ingestion"
)

const (
	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 30 * time.Second
	// pageLimit は1リクエストで取得するページ数
	pageLimit = 100
)

// Client は Confluence REST API からスペースのページを取得する
type Client struct {
	baseURL    string
	username   string
	apiToken   string
	httpClient *http.Client
	logger     *slog.Logger
}

type clientOptions struct {
	timeout    time.Duration
	logger     *slog.Logger
	httpClient *http.Client
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithTimeout はAPI呼び出しのタイムアウトを上書きする
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithClientLogger は Client にロガーを設定する
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithHTTPClient はHTTPクライアントを差し替える
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// NewClient は新しい Client を作成する
func NewClient(baseURL, username, apiToken string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("confluence base URL is required")
	}

	options := clientOptions{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: httpClient,
		logger:     options.logger,
	}, nil
}

// contentResponse は Confluence content API のレスポンス
type contentResponse struct {
	Results []contentResult `json:"results"`
	Size    int             `json:"size"`
}

type contentResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
}

// FetchPages はスペース内の現行ページをすべて取得し、本文をプレーンテキストに
// 変換して返す。本文が取得できなかったページは記録してスキップする。
func (c *Client) FetchPages(ctx context.Context, spaceKey string) ([]*ingestion.Page, error) {
	if spaceKey == "" {
		return nil, fmt.Errorf("space key is required")
	}

	var pages []*ingestion.Page
	start := 0

	for {
		resp, err := c.fetchContent(ctx, spaceKey, start)
		if err != nil {
			return nil, err
		}

		for _, result := range resp.Results {
			text := htmlToText(result.Body.Storage.Value)
			if strings.TrimSpace(text) == "" {
				c.logger.Warn("page has no usable body, skipping", "pageID", result.ID, "title", result.Title)
				continue
			}
			pages = append(pages, &ingestion.Page{
				ID:      result.ID,
				Title:   result.Title,
				Content: text,
			})
		}

		if len(resp.Results) < pageLimit {
			break
		}
		start += pageLimit
	}

	c.logger.Info("fetched confluence pages", "space", spaceKey, "pages", len(pages))
	return pages, nil
}

func (c *Client) fetchContent(ctx context.Context, spaceKey string, start int) (*contentResponse, error) {
	query := url.Values{}
	query.Set("spaceKey", spaceKey)
	query.Set("type", "page")
	query.Set("status", "current")
	query.Set("expand", "body.storage")
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(pageLimit))

	endpoint := fmt.Sprintf("%s/rest/api/content?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build confluence request: %w", err)
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("confluence request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("confluence returned status %s", resp.Status)
	}

	var content contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode confluence response: %w", err)
	}

	return &content, nil
}
