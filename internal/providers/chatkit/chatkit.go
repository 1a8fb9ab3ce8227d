package chatkit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yoockh/voicedesk/internal/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	betaHeader     = "chatkit_beta=v1"

	ItemUserMessage      = "chatkit.user_message"
	ItemAssistantMessage = "chatkit.assistant_message"
)

type Config struct {
	APIKey     string
	BaseURL    string
	WorkflowID string
	DemoUser   string
	HTTPClient *http.Client
}

// Client wraps the ChatKit sessions and threads endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	workflowID string
	demoUser   string
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	user := cfg.DemoUser
	if user == "" {
		user = "demo-user"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = providers.DefaultHTTPClient
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, workflowID: cfg.WorkflowID, demoUser: user, httpClient: hc}
}

func (c *Client) DemoUser() string { return c.demoUser }

type Thread struct {
	ID           string `json:"id"`
	CreatedAt    int64  `json:"created_at"` // unix seconds
	Title        string `json:"title"`
	MessageCount *int   `json:"message_count,omitempty"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Item struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Content []Content `json:"content"`
}

// Text joins the text of all content parts.
func (i Item) Text() string {
	var b strings.Builder
	for _, c := range i.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

func (i Item) IsMessage() bool {
	return i.Type == ItemUserMessage || i.Type == ItemAssistantMessage
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.apiKey)
	h.Set("OpenAI-Beta", betaHeader)
	return providers.DoJSON(ctx, c.httpClient, providers.Request{
		Service: "ChatKit",
		Method:  method,
		URL:     c.baseURL + path,
		Header:  h,
		Body:    body,
	})
}

// CreateSession starts a session for the demo user. An empty workflowID uses
// the configured workflow. The response (including client_secret) is returned
// unchanged.
func (c *Client) CreateSession(ctx context.Context, workflowID string) (json.RawMessage, error) {
	if workflowID == "" {
		workflowID = c.workflowID
	}
	return c.do(ctx, http.MethodPost, "/chatkit/sessions", map[string]any{
		"workflow": map[string]string{"id": workflowID},
		"user":     c.demoUser,
	})
}

// ThreadsRaw lists the user's threads as returned by the API.
func (c *Client) ThreadsRaw(ctx context.Context, user string) (json.RawMessage, error) {
	if user == "" {
		user = c.demoUser
	}
	return c.do(ctx, http.MethodGet, "/chatkit/threads?user="+url.QueryEscape(user), nil)
}

func (c *Client) Threads(ctx context.Context, user string) ([]Thread, error) {
	raw, err := c.ThreadsRaw(ctx, user)
	if err != nil {
		return nil, err
	}
	var page struct {
		Data []Thread `json:"data"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode threads: %w", err)
	}
	return page.Data, nil
}

// ThreadItemsRaw returns the thread's items, newest first, as an array.
func (c *Client) ThreadItemsRaw(ctx context.Context, threadID string) (json.RawMessage, error) {
	raw, err := c.do(ctx, http.MethodGet, "/chatkit/threads/"+url.PathEscape(threadID)+"/items", nil)
	if err != nil {
		return nil, err
	}
	var page struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("failed to decode thread items: %w", err)
	}
	if len(page.Data) == 0 || string(page.Data) == "null" {
		return json.RawMessage("[]"), nil
	}
	return page.Data, nil
}

// Messages returns only the user and assistant messages of a thread, oldest first.
func (c *Client) Messages(ctx context.Context, threadID string) ([]Item, error) {
	raw, err := c.ThreadItemsRaw(ctx, threadID)
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode thread items: %w", err)
	}

	out := make([]Item, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].IsMessage() {
			out = append(out, items[i])
		}
	}
	return out, nil
}
