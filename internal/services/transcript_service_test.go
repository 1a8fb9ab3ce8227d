package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers"
	"github.com/yoockh/voicedesk/internal/providers/chatkit"
	"github.com/yoockh/voicedesk/internal/providers/telephony"
	"github.com/yoockh/voicedesk/internal/transcript"
	"github.com/yoockh/voicedesk/internal/utils"
)

type fakeConversations struct {
	conv *telephony.Conversation
	err  error
}

func (f fakeConversations) GetConversation(context.Context, string) (*telephony.Conversation, error) {
	return f.conv, f.err
}

type fakeThreads struct {
	items []chatkit.Item
	err   error
}

func (f fakeThreads) Messages(context.Context, string) ([]chatkit.Item, error) {
	return f.items, f.err
}

func TestTranscriptServiceVoiceCall(t *testing.T) {
	dur := 42.0
	svc := NewTranscriptService(fakeConversations{conv: &telephony.Conversation{
		ID:           "c1",
		Status:       "COMPLETED",
		ChannelType:  "Web",
		CallDuration: &dur,
		AgentDetails: &telephony.AgentDetails{AgentName: "Acme Bot", GreetingMessage: "Welcome"},
		JobResponse: &telephony.JobResponse{Transcription: []transcript.Entry{
			{Speaker: "Agent", Text: "Welcome"},
			{Speaker: "Agent", FunctionCalls: []transcript.FunctionCall{}},
		}},
	}}, nil)

	tr, err := svc.VoiceCall(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "voice_call", tr.Metadata.Type)
	assert.Equal(t, "Acme Bot", tr.Metadata.AgentName)
	assert.Equal(t, "Welcome", tr.Metadata.GreetingMessage)
	assert.Equal(t, &dur, tr.Metadata.CallDuration)
	assert.Equal(t, "Agent: Welcome\nAgent: [Function call]", tr.Text())
}

func TestTranscriptServiceVoiceCallWithoutJob(t *testing.T) {
	svc := NewTranscriptService(fakeConversations{conv: &telephony.Conversation{ID: "c1", Status: "PENDING"}}, nil)

	tr, err := svc.VoiceCall(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, tr.Text())
	assert.Equal(t, "PENDING", tr.Metadata.Status)
}

func TestTranscriptServiceChat(t *testing.T) {
	svc := NewTranscriptService(nil, fakeThreads{items: []chatkit.Item{
		{Type: chatkit.ItemUserMessage, Content: []chatkit.Content{{Text: "hi"}}},
		{Type: chatkit.ItemAssistantMessage, Content: []chatkit.Content{{Text: "Hello! "}, {Text: "How can I help?"}}},
	}})

	tr, err := svc.Chat(context.Background(), "th_1")
	require.NoError(t, err)
	assert.Equal(t, "User: hi\nAssistant: Hello! How can I help?", tr.Text())
	assert.Equal(t, "chat", tr.Metadata.Type)
	assert.Equal(t, "AI Assistant", tr.Metadata.AgentName)
	assert.Equal(t, "Chat", tr.Metadata.ChannelType)
}

func TestTranscriptServiceErrors(t *testing.T) {
	notFound := &providers.UpstreamError{Service: "Hamsa", StatusCode: http.StatusNotFound, Body: "{}"}
	serverErr := &providers.UpstreamError{Service: "ChatKit", StatusCode: http.StatusInternalServerError}

	tests := []struct {
		name string
		call func(TranscriptService) error
		want utils.Code
	}{
		{"voice not configured", func(s TranscriptService) error { _, err := s.VoiceCall(context.Background(), "x"); return err }, utils.CodeUnavailable},
		{"chat not configured", func(s TranscriptService) error { _, err := s.Chat(context.Background(), "x"); return err }, utils.CodeUnavailable},
	}
	empty := NewTranscriptService(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, utils.IsCode(tt.call(empty), tt.want))
		})
	}

	svc := NewTranscriptService(fakeConversations{err: notFound}, fakeThreads{err: serverErr})
	_, err := svc.VoiceCall(context.Background(), "x")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = svc.Chat(context.Background(), "x")
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))

	svc = NewTranscriptService(fakeConversations{err: errors.New("dial tcp")}, nil)
	_, err = svc.VoiceCall(context.Background(), "x")
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

func TestProviderFor(t *testing.T) {
	svc := NewTranscriptService(
		fakeConversations{conv: &telephony.Conversation{JobResponse: &telephony.JobResponse{
			Transcription: []transcript.Entry{{Speaker: "Agent", Text: "hi"}},
		}}},
		fakeThreads{items: []chatkit.Item{{Type: chatkit.ItemUserMessage, Content: []chatkit.Content{{Text: "yo"}}}}},
	)

	tr, err := svc.ProviderFor(models.KindVoiceCall, "c1")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Agent: hi", tr.Text())

	tr, err = svc.ProviderFor(models.KindChat, "th")(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "User: yo", tr.Text())

	assert.Nil(t, svc.ProviderFor("email", "x"))
}
