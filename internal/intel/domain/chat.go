package domain

import "time"

// Sender identifies who wrote a chat message
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Alternative is a substitute medicine with its current stock
type Alternative struct {
	Medicine string `json:"medicine"`
	Stock    int    `json:"stock"`
}

// ChatMessage is one immutable turn of a conversation. Alternatives belong
// to this message only.
type ChatMessage struct {
	Sender       Sender        `json:"sender"`
	Text         string        `json:"text"`
	Time         time.Time     `json:"time"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// AssistantReply is the answer of the assistant-query endpoint
type AssistantReply struct {
	Response     string        `json:"response"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// IntentKind is the recognised purpose of a chat input
type IntentKind string

const (
	IntentCheckStock      IntentKind = "check-stock"
	IntentCheckExpiry     IntentKind = "check-expiry"
	IntentWastageSummary  IntentKind = "wastage-summary"
	IntentReorderReport   IntentKind = "reorder-report"
	IntentReorder         IntentKind = "reorder"
	IntentFindAlternative IntentKind = "find-alternative"
	IntentFreeForm        IntentKind = "free-form"
)

// CommandIntent is the interpretation of a chat input. Query is always
// the trimmed input text and is what gets sent to the assistant.
type CommandIntent struct {
	Kind     IntentKind `json:"kind"`
	Medicine string     `json:"medicine,omitempty"`
	Query    string     `json:"query"`
}

// ActionKind is the kind of a row action
type ActionKind string

const (
	ActionReorder         ActionKind = "reorder"
	ActionFindAlternative ActionKind = "find-alternative"
)

// ActionRequest is a reorder or substitute lookup for one medicine.
// Subject is always lowercased.
type ActionRequest struct {
	Kind    ActionKind `json:"kind"`
	Subject string     `json:"subject"`
}

// Query renders the request as the assistant's natural-language query
func (r ActionRequest) Query() string {
	switch r.Kind {
	case ActionFindAlternative:
		return "alternative for " + r.Subject
	default:
		return "reorder " + r.Subject
	}
}
