package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yoockh/voicedesk/internal/providers"
	"github.com/yoockh/voicedesk/internal/transcript"
)

const defaultHamsaBaseURL = "https://api.hamsa.ai"

type HamsaConfig struct {
	APIKey     string
	BaseURL    string
	ProjectID  string
	HTTPClient *http.Client
}

// HamsaClient talks to the Hamsa voice-agent API. Every response is wrapped
// in a {"data": ...} envelope which the client strips.
type HamsaClient struct {
	apiKey     string
	baseURL    string
	projectID  string
	httpClient *http.Client
}

func NewHamsaClient(cfg HamsaConfig) *HamsaClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultHamsaBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = providers.DefaultHTTPClient
	}
	return &HamsaClient{apiKey: cfg.APIKey, baseURL: base, projectID: cfg.ProjectID, httpClient: hc}
}

type AgentDetails struct {
	AgentName       string `json:"agentName"`
	GreetingMessage string `json:"greetingMessage"`
	Lang            string `json:"lang"`
}

type JobResponse struct {
	Transcription []transcript.Entry `json:"transcription"`
	CallStartedAt string             `json:"callStartedAt"`
	CallEndedAt   string             `json:"callEndedAt"`
}

// Conversation is the subset of a conversation's details used for analysis.
type Conversation struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	ChannelType  string        `json:"channelType"`
	CallDuration *float64      `json:"callDuration"`
	CreatedAt    string        `json:"createdAt"`
	MediaURL     string        `json:"mediaUrl"`
	AgentDetails *AgentDetails `json:"agentDetails"`
	JobResponse  *JobResponse  `json:"jobResponse"`
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID          string   `json:"id"`
	Duration    *float64 `json:"duration"`
	Time        string   `json:"time"` // unix milliseconds as a string
	Cost        *float64 `json:"cost"`
	Status      string   `json:"status"`
	ChannelType string   `json:"channelType"`
	AgentID     string   `json:"agentId"`
	AgentName   string   `json:"agentName"`
}

type ConversationList struct {
	Total         int                   `json:"total"`
	Filtered      int                   `json:"filtered"`
	Conversations []ConversationSummary `json:"conversations"`
}

func (c *HamsaClient) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	h := http.Header{}
	h.Set("Authorization", "Token "+c.apiKey)

	raw, err := providers.DoJSON(ctx, c.httpClient, providers.Request{
		Service: "Hamsa",
		Method:  method,
		URL:     u,
		Header:  h,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode Hamsa response: %w", err)
	}
	return env.Data, nil
}

// ConversationRaw returns the full details payload unchanged.
func (c *HamsaClient) ConversationRaw(ctx context.Context, id string) (json.RawMessage, error) {
	q := url.Values{}
	if c.projectID != "" {
		q.Set("projectId", c.projectID)
	}
	return c.do(ctx, http.MethodGet, "/v1/voice-agents/conversation/"+url.PathEscape(id), q, nil)
}

func (c *HamsaClient) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	raw, err := c.ConversationRaw(ctx, id)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &conv, nil
}

// ListConversationsRaw forwards a list request. The configured project id is
// set when the caller did not provide one.
func (c *HamsaClient) ListConversationsRaw(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	if body == nil {
		body = map[string]any{}
	}
	if _, ok := body["projectId"]; !ok && c.projectID != "" {
		body["projectId"] = c.projectID
	}
	if _, ok := body["take"]; !ok {
		body["take"] = 10
	}
	if _, ok := body["skip"]; !ok {
		body["skip"] = 1
	}
	return c.do(ctx, http.MethodPost, "/v1/voice-agents/conversations/list", nil, body)
}

// RecentConversations returns the first page of the project's conversations.
func (c *HamsaClient) RecentConversations(ctx context.Context, take int) (*ConversationList, error) {
	if take <= 0 {
		take = 20
	}
	raw, err := c.ListConversationsRaw(ctx, map[string]any{"take": take, "skip": 1})
	if err != nil {
		return nil, err
	}
	var list ConversationList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode conversation list: %w", err)
	}
	return &list, nil
}
