package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postforge/internal/config"
	"postforge/internal/services"
)

// HTTPDoer describes the HTTP client used by the WordPress client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the connection parameters for a WordPress site.
type Config struct {
	BaseURL              string
	Username             string
	Password             string
	Timeout              time.Duration
	MetaTitleField       string
	MetaDescriptionField string
}

// Client talks to the WordPress posts endpoint.
type Client struct {
	cfg    Config
	client HTTPDoer
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// NewClient validates cfg and constructs a client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.BaseURL == "" {
		return nil, errors.New("cms: base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("cms: invalid base url: %w", err)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("cms: username and password required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the [cms] section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return NewClient(Config{
		BaseURL:              cfg.CMS.BaseURL,
		Username:             cfg.CMS.Username,
		Password:             cfg.CMS.Password,
		Timeout:              time.Duration(cfg.CMS.TimeoutSeconds) * time.Second,
		MetaTitleField:       cfg.CMS.MetaTitleField,
		MetaDescriptionField: cfg.CMS.MetaDescriptionField,
	}, opts...)
}

type renderedField struct {
	Raw      string `json:"raw"`
	Rendered string `json:"rendered"`
}

func (f renderedField) value() string {
	if f.Raw != "" {
		return f.Raw
	}
	return f.Rendered
}

type postResponse struct {
	ID          json.Number    `json:"id"`
	Title       renderedField  `json:"title"`
	Content     renderedField  `json:"content"`
	Excerpt     renderedField  `json:"excerpt"`
	Status      string         `json:"status"`
	ModifiedGMT string         `json:"modified_gmt"`
	Meta        map[string]any `json:"meta"`
}

type updateRequest struct {
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Fetch loads a post with context=edit so raw markup is returned. Any 4xx
// response is reported as ErrDocumentNotFound.
func (c *Client) Fetch(ctx context.Context, id string) (Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Document{}, services.Wrap(services.ErrDocumentNotFound, "", "fetch post", "empty post id", nil)
	}
	req, err := c.newRequest(ctx, http.MethodGet, id, nil)
	if err != nil {
		return Document{}, err
	}
	query := req.URL.Query()
	query.Set("context", "edit")
	req.URL.RawQuery = query.Encode()

	resp, err := c.client.Do(req)
	if err != nil {
		return Document{}, transportError("fetch post", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return Document{}, services.Wrap(services.ErrDocumentNotFound, "", "fetch post",
			fmt.Sprintf("post %s: %s", id, statusSummary(resp)), nil)
	}
	if resp.StatusCode >= 300 {
		return Document{}, services.Wrap(services.ErrExternalTool, "", "fetch post",
			fmt.Sprintf("post %s: %s", id, statusSummary(resp)), nil)
	}

	var post postResponse
	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return Document{}, services.Wrap(services.ErrExternalTool, "", "fetch post", "decode response", err)
	}
	doc := Document{
		ID:              id,
		Title:           post.Title.value(),
		Content:         post.Content.value(),
		Excerpt:         post.Excerpt.value(),
		Status:          post.Status,
		MetaTitle:       metaString(post.Meta, c.cfg.MetaTitleField),
		MetaDescription: metaString(post.Meta, c.cfg.MetaDescriptionField),
	}
	if post.ID.String() != "" {
		doc.ID = post.ID.String()
	}
	if modified, err := time.Parse("2006-01-02T15:04:05", post.ModifiedGMT); err == nil {
		doc.ModifiedAt = modified.UTC()
	}
	return doc, nil
}

// Update writes content and, when non-empty, the meta title and description.
func (c *Client) Update(ctx context.Context, id string, fields Fields) error {
	id = strings.TrimSpace(id)
	payload := updateRequest{Content: fields.Content}
	meta := make(map[string]string, 2)
	if value := strings.TrimSpace(fields.MetaTitle); value != "" && c.cfg.MetaTitleField != "" {
		meta[c.cfg.MetaTitleField] = value
	}
	if value := strings.TrimSpace(fields.MetaDescription); value != "" && c.cfg.MetaDescriptionField != "" {
		meta[c.cfg.MetaDescriptionField] = value
	}
	if len(meta) > 0 {
		payload.Meta = meta
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return services.Wrap(services.ErrDocumentUpdate, "", "update post", "encode payload", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, id, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "", "update post", "post "+id, err)
		}
		return services.Wrap(services.ErrDocumentUpdate, "", "update post", "post "+id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return services.Wrap(services.ErrDocumentUpdate, "", "update post",
			fmt.Sprintf("post %s: %s", id, statusSummary(resp)), nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// HealthCheck lists a single post to confirm the credentials are accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := c.cfg.BaseURL + "/wp/v2/posts?per_page=1&context=edit"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("wordpress health: %s", statusSummary(resp))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, id string, body io.Reader) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/wp/v2/posts/%s", c.cfg.BaseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", strings.ToLower(method), err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func transportError(op, id string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "", op, "post "+id, err)
	}
	return services.Wrap(services.ErrExternalTool, "", op, "post "+id, err)
}

func statusSummary(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(snippet, &payload) == nil && payload.Message != "" {
		return fmt.Sprintf("status %d (%s: %s)", resp.StatusCode, payload.Code, payload.Message)
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

func metaString(meta map[string]any, key string) string {
	if key == "" || meta == nil {
		return ""
	}
	switch value := meta[key].(type) {
	case string:
		return value
	case []any:
		if len(value) > 0 {
			if s, ok := value[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
