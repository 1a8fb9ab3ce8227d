package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ConversationKind string

const (
	KindVoiceCall ConversationKind = "voice_call"
	KindChat      ConversationKind = "chat"
)

func (k ConversationKind) Valid() bool {
	return k == KindVoiceCall || k == KindChat
}

type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomePartial    Outcome = "partial"
	OutcomeEscalated  Outcome = "escalated"
	OutcomeDropped    Outcome = "dropped"
	OutcomeNoAnswer   Outcome = "no_answer"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

type ResolutionType string

const (
	ResolutionVoiceAgent  ResolutionType = "voiceAgent"
	ResolutionTransfer    ResolutionType = "transfer"
	ResolutionCallback    ResolutionType = "callback"
	ResolutionSelfService ResolutionType = "selfService"
	ResolutionNone        ResolutionType = "none"
)

var (
	outcomes    = []Outcome{OutcomeResolved, OutcomeUnresolved, OutcomePartial, OutcomeEscalated, OutcomeDropped, OutcomeNoAnswer}
	sentiments  = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed}
	resolutions = []ResolutionType{ResolutionVoiceAgent, ResolutionTransfer, ResolutionCallback, ResolutionSelfService, ResolutionNone}
)

type AgentAnalysis struct {
	ToneAssessment     string `json:"toneAssessment" bson:"toneAssessment"`
	EffectivenessScore int    `json:"effectivenessScore" bson:"effectivenessScore"`
}

type UserAnalysis struct {
	IntentSummary string `json:"intentSummary" bson:"intentSummary"`
	EmotionalTone string `json:"emotionalTone" bson:"emotionalTone"`
}

type SpeakerAnalysis struct {
	Agent AgentAnalysis `json:"agent" bson:"agent"`
	User  UserAnalysis  `json:"user" bson:"user"`
}

// AnalysisResult is the structured assessment of one conversation.
type AnalysisResult struct {
	Summary              string          `json:"summary" bson:"summary"`
	Outcome              Outcome         `json:"outcome" bson:"outcome"`
	Sentiment            Sentiment       `json:"sentiment" bson:"sentiment"`
	CustomerSatisfaction int             `json:"customerSatisfaction" bson:"customerSatisfaction"`
	Topics               []string        `json:"topics" bson:"topics"`
	KeyInsights          []string        `json:"keyInsights" bson:"keyInsights"`
	ActionItems          []string        `json:"actionItems" bson:"actionItems"`
	SpeakerAnalysis      SpeakerAnalysis `json:"speakerAnalysis" bson:"speakerAnalysis"`
	ResolutionType       ResolutionType  `json:"resolutionType" bson:"resolutionType"`
	Language             string          `json:"language" bson:"language"`
	Tags                 []string        `json:"tags" bson:"tags"`
}

var requiredResultKeys = []string{
	"summary", "outcome", "sentiment", "customerSatisfaction", "topics", "keyInsights",
	"actionItems", "speakerAnalysis", "resolutionType", "language", "tags",
}

var requiredSpeakerKeys = map[string][]string{
	"agent": {"toneAssessment", "effectivenessScore"},
	"user":  {"intentSummary", "emotionalTone"},
}

// DecodeAnalysisResult parses a completion body into an AnalysisResult.
// Every field of the result shape must be present and non-null. Enum values
// are normalized to their canonical spelling; unknown values and scores
// outside 1..5 are rejected.
func DecodeAnalysisResult(b []byte) (*AnalysisResult, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(b, &keys); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	missing := missingKeys(keys, requiredResultKeys, "")
	if len(missing) > 0 {
		return nil, fmt.Errorf("analysis missing fields: %s", strings.Join(missing, ", "))
	}

	var speakers map[string]json.RawMessage
	if err := json.Unmarshal(keys["speakerAnalysis"], &speakers); err != nil {
		return nil, fmt.Errorf("decode speakerAnalysis: %w", err)
	}
	for _, who := range []string{"agent", "user"} {
		raw, ok := speakers[who]
		if !ok || isNull(raw) {
			missing = append(missing, "speakerAnalysis."+who)
			continue
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode speakerAnalysis.%s: %w", who, err)
		}
		missing = append(missing, missingKeys(fields, requiredSpeakerKeys[who], "speakerAnalysis."+who+".")...)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("analysis missing fields: %s", strings.Join(missing, ", "))
	}

	var r AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	if err := r.Normalize(); err != nil {
		return nil, err
	}
	return &r, nil
}

func missingKeys(m map[string]json.RawMessage, required []string, prefix string) []string {
	var out []string
	for _, k := range required {
		if v, ok := m[k]; !ok || isNull(v) {
			out = append(out, prefix+k)
		}
	}
	return out
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || strings.TrimSpace(string(v)) == "null"
}

// Normalize canonicalizes enum spellings, checks score ranges and replaces
// nil lists with empty ones.
func (r *AnalysisResult) Normalize() error {
	o, ok := matchEnum(string(r.Outcome), outcomes)
	if !ok {
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	r.Outcome = o

	s, ok := matchEnum(string(r.Sentiment), sentiments)
	if !ok {
		return fmt.Errorf("unknown sentiment %q", r.Sentiment)
	}
	r.Sentiment = s

	rt, ok := matchEnum(string(r.ResolutionType), resolutions)
	if !ok {
		return fmt.Errorf("unknown resolutionType %q", r.ResolutionType)
	}
	r.ResolutionType = rt

	if !validScore(r.CustomerSatisfaction) {
		return fmt.Errorf("customerSatisfaction %d out of range 1..5", r.CustomerSatisfaction)
	}
	if !validScore(r.SpeakerAnalysis.Agent.EffectivenessScore) {
		return fmt.Errorf("effectivenessScore %d out of range 1..5", r.SpeakerAnalysis.Agent.EffectivenessScore)
	}

	r.Topics = nonNil(r.Topics)
	r.KeyInsights = nonNil(r.KeyInsights)
	r.ActionItems = nonNil(r.ActionItems)
	r.Tags = nonNil(r.Tags)
	return nil
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

func matchEnum[T ~string](v string, allowed []T) (T, bool) {
	k := enumKey(v)
	for _, a := range allowed {
		if enumKey(string(a)) == k {
			return a, true
		}
	}
	var zero T
	return zero, false
}

func validScore(n int) bool { return n >= 1 && n <= 5 }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// AnalysisRecord is the persisted cache slot for one conversation. Outcome,
// sentiment and tags are copied out of the blob for filtering.
type AnalysisRecord struct {
	ID           string           `gorm:"column:id;type:text;primaryKey" json:"id"`
	Kind         ConversationKind `gorm:"column:type;type:text;not null" json:"type"`
	Analysis     datatypes.JSON   `gorm:"column:analysis;type:jsonb;not null" json:"analysis"`
	MessageCount int              `gorm:"column:message_count;not null;default:0" json:"messageCount"`
	Outcome      string           `gorm:"column:outcome;type:text;index" json:"outcome"`
	Sentiment    string           `gorm:"column:sentiment;type:text;index" json:"sentiment"`
	Tags         pq.StringArray   `gorm:"column:tags;type:text[]" json:"tags"`
	CreatedAt    time.Time        `gorm:"column:created_at;type:timestamptz;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;type:timestamptz;autoUpdateTime;index" json:"updatedAt"`
}

func (AnalysisRecord) TableName() string { return "conversation_analysis" }

func NewAnalysisRecord(id string, kind ConversationKind, messageCount int, result *AnalysisResult, now time.Time) (*AnalysisRecord, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &AnalysisRecord{
		ID:           id,
		Kind:         kind,
		Analysis:     datatypes.JSON(b),
		MessageCount: messageCount,
		Outcome:      string(result.Outcome),
		Sentiment:    string(result.Sentiment),
		Tags:         pq.StringArray(result.Tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Result decodes the stored blob.
func (r *AnalysisRecord) Result() (*AnalysisResult, error) {
	var out AnalysisResult
	if err := json.Unmarshal(r.Analysis, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
