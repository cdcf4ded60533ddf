package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/cmis-hub/internal/cmis"
)

// maxErrorBody 是 StatusError 保留的响应体上限。
const maxErrorBody = 1024

// StatusError 表示上游返回了非 2xx（且非 404）状态码。
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.Status)
	}
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// Options 描述一个仓库的 browser binding 连接方式。
type Options struct {
	BrowserURL   string
	RepositoryID string
	Username     string
	Password     string
	VerifySSL    bool
	Proxy        string
	Timeout      time.Duration
	Logger       *logrus.Logger
}

// Client 通过 CMIS browser binding 取数，实现 cmis.Fetcher。
type Client struct {
	rootURL      string
	repositoryID string
	username     string
	password     string
	httpClient   *http.Client
	logger       *logrus.Logger
}

// New 构建 Client。BrowserURL 必须是 http/https 绝对地址。
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BrowserURL), "/")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid browser url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("browser url must be http/https: %s", opts.BrowserURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("browser url missing host: %s", opts.BrowserURL)
	}

	httpClient, err := newHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		rootURL:      base + "/root",
		repositoryID: opts.RepositoryID,
		username:     opts.Username,
		password:     opts.Password,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// FetcherFactory 返回供 cmis.NewSessionFromParameters 使用的构造函数。
func FetcherFactory(logger *logrus.Logger) cmis.FetcherFactory {
	return func(p cmis.SessionParameters) (cmis.Fetcher, error) {
		return New(Options{
			BrowserURL:   p.BrowserURL,
			RepositoryID: p.RepositoryID,
			Username:     p.Username,
			Password:     p.Password,
			VerifySSL:    p.VerifySSL,
			Proxy:        p.Proxy,
			Timeout:      p.Timeout,
			Logger:       logger,
		})
	}
}

// RequestURL 返回某个关系对应的 browser binding 地址。
func (c *Client) RequestURL(rel cmis.Relation, id string) string {
	query := url.Values{}
	query.Set("cmisselector", string(rel))
	if id != "" {
		query.Set("objectId", id)
	}
	if rel != cmis.RelationContent {
		query.Set("succinct", "false")
	}
	return c.rootURL + "?" + query.Encode()
}

// Fetch 实现 cmis.Fetcher。404 映射为 cmis.ErrNotFound，其它非 2xx 返回 *StatusError。
func (c *Client) Fetch(ctx context.Context, rel cmis.Relation, id string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	status, body, err := c.do(ctx, rel, id)
	c.logFetch(rel, id, status, started, err)
	return body, err
}

func (c *Client) do(ctx context.Context, rel cmis.Relation, id string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(rel, id), nil)
	if err != nil {
		return 0, nil, err
	}
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if rel != cmis.RelationContent {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, nil, fmt.Errorf("%s %q: %w", rel, id, cmis.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, nil, &StatusError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logFetch(rel cmis.Relation, id string, status int, started time.Time, err error) {
	fields := logrus.Fields{
		"action":        "fetch",
		"repository_id": c.repositoryID,
		"relation":      string(rel),
		"object_id":     id,
		"status":        status,
		"elapsed_ms":    time.Since(started).Milliseconds(),
	}
	entry := c.logger.WithFields(fields)
	if err != nil && !errors.Is(err, cmis.ErrNotFound) {
		entry.WithError(err).Warn("cmis_fetch_failed")
		return
	}
	entry.Debug("cmis_fetch")
}
