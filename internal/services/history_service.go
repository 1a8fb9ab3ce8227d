package services

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/providers/chatkit"
	"github.com/yoockh/voicedesk/internal/providers/telephony"
	"github.com/yoockh/voicedesk/internal/utils"
)

type CallLister interface {
	RecentConversations(ctx context.Context, take int) (*telephony.ConversationList, error)
}

type ThreadLister interface {
	Threads(ctx context.Context, user string) ([]chatkit.Thread, error)
}

// HistoryItem is one row of the unified voice + chat history.
type HistoryItem struct {
	ID           string                  `json:"id"`
	Type         models.ConversationKind `json:"type"`
	CreatedAt    time.Time               `json:"createdAt"`
	Status       string                  `json:"status"`
	ChannelType  string                  `json:"channelType"`
	AgentName    string                  `json:"agentName"`
	AgentID      string                  `json:"agentId,omitempty"`
	Duration     *float64                `json:"duration,omitempty"`
	Cost         *float64                `json:"cost,omitempty"`
	ThreadTitle  string                  `json:"threadTitle,omitempty"`
	MessageCount *int                    `json:"messageCount,omitempty"`
}

type HistoryService interface {
	// List merges recent calls and the user's chat threads, newest first.
	List(ctx context.Context, user string, take int) ([]HistoryItem, error)
}

type historyService struct {
	calls   CallLister
	threads ThreadLister
	log     *logrus.Logger
}

func NewHistoryService(calls CallLister, threads ThreadLister, log *logrus.Logger) HistoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &historyService{calls: calls, threads: threads, log: log}
}

// List returns partial results when one source fails and an error only when
// every configured source failed.
func (s *historyService) List(ctx context.Context, user string, take int) ([]HistoryItem, error) {
	const op = "HistoryService.List"

	if s.calls == nil && s.threads == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "no history source is configured", nil)
	}

	var (
		items []HistoryItem
		errs  []error
	)

	if s.calls != nil {
		list, err := s.calls.RecentConversations(ctx, take)
		if err != nil {
			s.log.WithError(err).Warn("voice call history unavailable")
			errs = append(errs, err)
		} else {
			for _, c := range list.Conversations {
				items = append(items, callItem(c))
			}
		}
	}

	if s.threads != nil {
		threads, err := s.threads.Threads(ctx, user)
		if err != nil {
			s.log.WithError(err).WithField("user", user).Warn("chat history unavailable")
			errs = append(errs, err)
		} else {
			for _, th := range threads {
				items = append(items, chatItem(th))
			}
		}
	}

	configured := 0
	if s.calls != nil {
		configured++
	}
	if s.threads != nil {
		configured++
	}
	if len(errs) == configured {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to load history", errors.Join(errs...))
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if items == nil {
		items = []HistoryItem{}
	}
	return items, nil
}

func callItem(c telephony.ConversationSummary) HistoryItem {
	return HistoryItem{
		ID:          c.ID,
		Type:        models.KindVoiceCall,
		CreatedAt:   parseCallTime(c.Time),
		Status:      c.Status,
		ChannelType: c.ChannelType,
		AgentName:   c.AgentName,
		AgentID:     c.AgentID,
		Duration:    c.Duration,
		Cost:        c.Cost,
	}
}

func chatItem(th chatkit.Thread) HistoryItem {
	title := th.Title
	if title == "" {
		title = "Untitled chat"
	}
	return HistoryItem{
		ID:           th.ID,
		Type:         models.KindChat,
		CreatedAt:    time.Unix(th.CreatedAt, 0).UTC(),
		Status:       "COMPLETED",
		ChannelType:  "Chat",
		AgentName:    "AI Assistant",
		ThreadTitle:  title,
		MessageCount: th.MessageCount,
	}
}

// parseCallTime accepts unix milliseconds or RFC 3339. Anything else sorts last.
func parseCallTime(v string) time.Time {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
