package session

import "strings"

// IntentType buckets a chat message into the workflow family it should
// trigger.
type IntentType string

const (
	IntentDocument   IntentType = "document"
	IntentData       IntentType = "data"
	IntentAutomation IntentType = "automation"
	IntentSearch     IntentType = "search"
)

// DetectedIntent is one keyword hit inside a message.
type DetectedIntent struct {
	Type       IntentType `json:"type"`
	Keyword    string     `json:"keyword"`
	Confidence float64    `json:"confidence"`
}

// IntentAnalysis is the full classification of one message. Primary is the
// first detection and drives dispatch; the rest ride along as metadata.
type IntentAnalysis struct {
	ShouldTrigger bool             `json:"shouldTriggerWorkflow"`
	Detected      []DetectedIntent `json:"detectedWorkflows"`
	Primary       *DetectedIntent  `json:"primaryWorkflow,omitempty"`
	Confidence    float64          `json:"confidence"`
}

// intentKeywords maps each intent to its trigger words. Order matters: the
// first matching set wins the primary slot after the question-mark check.
var intentKeywords = []struct {
	intent   IntentType
	keywords []string
}{
	{IntentDocument, []string{"document", "file", "upload", "process", "analyze", "pdf", "doc"}},
	{IntentData, []string{"data", "pipeline", "etl", "process", "batch", "job", "analytics"}},
	{IntentAutomation, []string{"automate", "workflow", "trigger", "run", "execute", "schedule"}},
	{IntentSearch, []string{"search", "find", "lookup", "query", "retrieve"}},
}

// ClassifyMessage runs the keyword analysis. A question mark anywhere in
// the message signals search intent at higher confidence than any keyword.
func ClassifyMessage(message string) IntentAnalysis {
	lower := strings.ToLower(message)
	var detected []DetectedIntent

	if strings.Contains(message, "?") {
		detected = append(detected, DetectedIntent{
			Type:       IntentSearch,
			Keyword:    "?",
			Confidence: 0.9,
		})
	}

	for _, set := range intentKeywords {
		for _, keyword := range set.keywords {
			if strings.Contains(lower, keyword) {
				detected = append(detected, DetectedIntent{
					Type:       set.intent,
					Keyword:    keyword,
					Confidence: 0.8,
				})
				break
			}
		}
	}

	analysis := IntentAnalysis{
		ShouldTrigger: len(detected) > 0,
		Detected:      detected,
	}
	for _, d := range detected {
		if d.Confidence > analysis.Confidence {
			analysis.Confidence = d.Confidence
		}
	}
	if len(detected) > 0 {
		primary := detected[0]
		analysis.Primary = &primary
	}
	return analysis
}
