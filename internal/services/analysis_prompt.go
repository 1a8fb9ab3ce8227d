package services

import (
	"strconv"
	"strings"

	"github.com/yoockh/voicedesk/internal/transcript"
)

const analysisInstructions = `You are an expert conversation analyst. Analyze the following conversation and return a JSON object with these fields:

{
  "summary": "2-3 sentence summary of the conversation: what was discussed, what was resolved",
  "outcome": "resolved | unresolved | partial | escalated | dropped | no_answer",
  "sentiment": "positive | negative | neutral | mixed",
  "customerSatisfaction": number (1-5 scale, estimated from tone and resolution),
  "topics": ["topic1", "topic2"],
  "keyInsights": ["insight1", "insight2"],
  "actionItems": ["action1", "action2"],
  "speakerAnalysis": {
    "agent": { "toneAssessment": "friendly/professional/etc", "effectivenessScore": 1-5 },
    "user": { "intentSummary": "what the user wanted", "emotionalTone": "calm/frustrated/etc" }
  },
  "resolutionType": "voiceAgent | transfer | callback | selfService | none",
  "language": "detected language of conversation",
  "tags": ["tag1", "tag2"]
}

Return ONLY valid JSON, no markdown fences or extra text.`

// BuildAnalysisPrompt renders the instructions, the metadata block and the
// transcript text. Missing metadata is written as Unknown or N/A.
func BuildAnalysisPrompt(text string, md transcript.Metadata) string {
	duration := "N/A"
	if md.CallDuration != nil {
		duration = strconv.FormatFloat(*md.CallDuration, 'f', -1, 64)
	}

	var b strings.Builder
	b.WriteString(analysisInstructions)
	b.WriteString("\n\nConversation metadata:\n")
	b.WriteString("- Type: " + md.Type + "\n")
	b.WriteString("- Agent: " + orDefault(md.AgentName, "Unknown") + "\n")
	b.WriteString("- Status: " + orDefault(md.Status, "Unknown") + "\n")
	b.WriteString("- Duration: " + duration + " seconds\n")
	b.WriteString("- Channel: " + orDefault(md.ChannelType, "Unknown") + "\n")
	b.WriteString("- Agent greeting: " + orDefault(md.GreetingMessage, "N/A") + "\n")
	b.WriteString("\nTranscript:\n")
	b.WriteString(text)
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
