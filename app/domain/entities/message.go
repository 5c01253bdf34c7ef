package entities

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the rolling history sent to the chat API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranscriptEntry is one visible line of the conversation. System entries
// are shown to the user but never sent upstream.
type TranscriptEntry struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Completion is the useful part of a chat-completion response.
type Completion struct {
	Message Message    `json:"message"`
	Usage   TokenUsage `json:"usage"`
}
