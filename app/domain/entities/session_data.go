package entities

// SessionData holds the persisted state of the chat session
type SessionData struct {
	TotalTokens  int  `json:"total_tokens"`
	RequestCount int  `json:"request_count"`
	HasAPIKey    bool `json:"has_api_key"`
}

// TokenUsage is the usage block of a chat-completion response
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
