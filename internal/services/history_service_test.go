package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/voicedesk/internal/logger"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers/chatkit"
	"github.com/yoockh/voicedesk/internal/providers/telephony"
	"github.com/yoockh/voicedesk/internal/utils"
)

type fakeCallLister struct {
	list *telephony.ConversationList
	err  error
}

func (f fakeCallLister) RecentConversations(context.Context, int) (*telephony.ConversationList, error) {
	return f.list, f.err
}

type fakeThreadLister struct {
	threads []chatkit.Thread
	err     error
	user    *string
}

func (f fakeThreadLister) Threads(_ context.Context, user string) ([]chatkit.Thread, error) {
	if f.user != nil {
		*f.user = user
	}
	return f.threads, f.err
}

func TestHistoryMergesNewestFirst(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	var gotUser string
	svc := NewHistoryService(
		fakeCallLister{list: &telephony.ConversationList{Conversations: []telephony.ConversationSummary{
			{ID: "call-old", Time: "1738400000000", Status: "COMPLETED", AgentName: "Bot"},
			{ID: "call-new", Time: "1738500000000", Status: "FAILED"},
			{ID: "call-bad", Time: "yesterday"},
		}}},
		fakeThreadLister{user: &gotUser, threads: []chatkit.Thread{
			{ID: "th-mid", CreatedAt: base.Unix()},
			{ID: "th-titled", CreatedAt: 1738400000 - 60, Title: "Refunds"},
		}},
		logger.Discard(),
	)

	items, err := svc.List(context.Background(), "alice", 20)
	require.NoError(t, err)
	assert.Equal(t, "alice", gotUser)

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	// 1738500000000 > 2025-02-01T10:00Z (1738404000) > 1738400000000 > 1738399940
	assert.Equal(t, []string{"call-new", "th-mid", "call-old", "th-titled", "call-bad"}, ids)

	assert.Equal(t, models.KindChat, items[1].Type)
	assert.Equal(t, "Untitled chat", items[1].ThreadTitle)
	assert.Equal(t, "AI Assistant", items[1].AgentName)
	assert.Equal(t, "Chat", items[1].ChannelType)
	assert.Equal(t, "COMPLETED", items[1].Status)
	assert.Equal(t, "Refunds", items[3].ThreadTitle)
	assert.Equal(t, models.KindVoiceCall, items[0].Type)
}

func TestHistoryPartialFailure(t *testing.T) {
	svc := NewHistoryService(
		fakeCallLister{err: errors.New("hamsa down")},
		fakeThreadLister{threads: []chatkit.Thread{{ID: "th", CreatedAt: 1}}},
		logger.Discard(),
	)

	items, err := svc.List(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "th", items[0].ID)
}

func TestHistoryAllSourcesFail(t *testing.T) {
	svc := NewHistoryService(
		fakeCallLister{err: errors.New("hamsa down")},
		fakeThreadLister{err: errors.New("chatkit down")},
		logger.Discard(),
	)

	_, err := svc.List(context.Background(), "", 10)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

func TestHistoryNoSources(t *testing.T) {
	_, err := NewHistoryService(nil, nil, logger.Discard()).List(context.Background(), "", 10)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}

func TestHistoryEmpty(t *testing.T) {
	svc := NewHistoryService(nil, fakeThreadLister{}, logger.Discard())
	items, err := svc.List(context.Background(), "", 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}
