package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers"
	"github.com/yoockh/voicedesk/internal/providers/chatkit"
	"github.com/yoockh/voicedesk/internal/providers/telephony"
	"github.com/yoockh/voicedesk/internal/transcript"
	"github.com/yoockh/voicedesk/internal/utils"
)

type ConversationSource interface {
	GetConversation(ctx context.Context, id string) (*telephony.Conversation, error)
}

type ThreadSource interface {
	// Messages returns user and assistant messages, oldest first.
	Messages(ctx context.Context, threadID string) ([]chatkit.Item, error)
}

type TranscriptService interface {
	VoiceCall(ctx context.Context, id string) (*transcript.Transcript, error)
	Chat(ctx context.Context, threadID string) (*transcript.Transcript, error)
	ProviderFor(kind models.ConversationKind, id string) TranscriptProvider
}

type transcriptService struct {
	calls   ConversationSource
	threads ThreadSource
}

// NewTranscriptService accepts nil sources; requests for an unconfigured
// source fail with CodeUnavailable.
func NewTranscriptService(calls ConversationSource, threads ThreadSource) TranscriptService {
	return &transcriptService{calls: calls, threads: threads}
}

func (s *transcriptService) VoiceCall(ctx context.Context, id string) (*transcript.Transcript, error) {
	const op = "TranscriptService.VoiceCall"

	if s.calls == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "voice agent API is not configured", nil)
	}
	conv, err := s.calls.GetConversation(ctx, id)
	if err != nil {
		return nil, upstreamError(op, "conversation", err)
	}

	tr := &transcript.Transcript{
		Metadata: transcript.Metadata{
			Type:         string(models.KindVoiceCall),
			Status:       conv.Status,
			CallDuration: conv.CallDuration,
			ChannelType:  conv.ChannelType,
		},
	}
	if conv.AgentDetails != nil {
		tr.Metadata.AgentName = conv.AgentDetails.AgentName
		tr.Metadata.GreetingMessage = conv.AgentDetails.GreetingMessage
	}
	if conv.JobResponse != nil {
		tr.Entries = conv.JobResponse.Transcription
	}
	return tr, nil
}

func (s *transcriptService) Chat(ctx context.Context, threadID string) (*transcript.Transcript, error) {
	const op = "TranscriptService.Chat"

	if s.threads == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "chat API is not configured", nil)
	}
	items, err := s.threads.Messages(ctx, threadID)
	if err != nil {
		return nil, upstreamError(op, "thread", err)
	}

	entries := make([]transcript.Entry, 0, len(items))
	for _, it := range items {
		speaker := "User"
		if it.Type == chatkit.ItemAssistantMessage {
			speaker = "Assistant"
		}
		entries = append(entries, transcript.Entry{Speaker: speaker, Text: it.Text()})
	}

	return &transcript.Transcript{
		Entries: entries,
		Metadata: transcript.Metadata{
			Type:        string(models.KindChat),
			AgentName:   "AI Assistant",
			ChannelType: "Chat",
		},
	}, nil
}

func (s *transcriptService) ProviderFor(kind models.ConversationKind, id string) TranscriptProvider {
	switch kind {
	case models.KindVoiceCall:
		return func(ctx context.Context) (*transcript.Transcript, error) { return s.VoiceCall(ctx, id) }
	case models.KindChat:
		return func(ctx context.Context) (*transcript.Transcript, error) { return s.Chat(ctx, id) }
	default:
		return nil
	}
}

func upstreamError(op, what string, err error) error {
	var ue *providers.UpstreamError
	if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
		return utils.E(utils.CodeNotFound, op, what+" not found", err)
	}
	return utils.E(utils.CodeUnavailable, op, "failed to fetch "+what, err)
}
