package chatkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/voicedesk/internal/providers"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-1", BaseURL: srv.URL, WorkflowID: "wf-default", HTTPClient: srv.Client()})
}

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name     string
		workflow string
		want     string
	}{
		{"default workflow", "", "wf-default"},
		{"explicit workflow", "wf-other", "wf-other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chatkit/sessions", r.URL.Path)
				assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
				assert.Equal(t, "chatkit_beta=v1", r.Header.Get("OpenAI-Beta"))

				var body struct {
					Workflow struct {
						ID string `json:"id"`
					} `json:"workflow"`
					User string `json:"user"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, tt.want, body.Workflow.ID)
				assert.Equal(t, "demo-user", body.User)

				w.Write([]byte(`{"client_secret":"cs_123"}`))
			})

			raw, err := c.CreateSession(context.Background(), tt.workflow)
			require.NoError(t, err)
			assert.JSONEq(t, `{"client_secret":"cs_123"}`, string(raw))
		})
	}
}

func TestThreads(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chatkit/threads", r.URL.Path)
		assert.Equal(t, "alice@example.com", r.URL.Query().Get("user"))
		w.Write([]byte(`{"data":[{"id":"th_1","created_at":1738404000,"title":"Billing"},{"id":"th_2","created_at":1738400000,"title":null}]}`))
	})

	threads, err := c.Threads(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "Billing", threads[0].Title)
	assert.Equal(t, int64(1738404000), threads[0].CreatedAt)
	assert.Equal(t, "", threads[1].Title)
}

func TestMessagesFiltersAndReverses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chatkit/threads/th_1/items", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"id":"i4","type":"chatkit.assistant_message","content":[{"type":"output_text","text":"You're "},{"type":"output_text","text":"welcome"}]},
			{"id":"i3","type":"chatkit.widget","content":[]},
			{"id":"i2","type":"chatkit.user_message","content":[{"type":"input_text","text":"thanks"}]},
			{"id":"i1","type":"chatkit.client_tool_call"}
		]}`))
	})

	items, err := c.Messages(context.Background(), "th_1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "i2", items[0].ID)
	assert.Equal(t, "thanks", items[0].Text())
	assert.Equal(t, "You're welcome", items[1].Text())
}

func TestThreadItemsRawEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list"}`))
	})

	raw, err := c.ThreadItemsRaw(context.Background(), "th_1")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestUpstreamErrorPassesThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`invalid key`))
	})

	_, err := c.Threads(context.Background(), "")
	var ue *providers.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Equal(t, "invalid key", ue.Body)
}
