package types

import "time"

// GenerationRequest is the immutable value handed to the generative backend
// for one invocation.
type GenerationRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// StreamChunk is one ordered, append-only unit of generated text. The full
// response is the concatenation of all chunks in emission order; consumers
// must not reorder or deduplicate chunks.
type StreamChunk struct {
	Text string `json:"text"`
}

// ChatRole distinguishes who produced a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry of the caller-provided conversation log. There is no
// server-side session store; the caller replays prior turns on each request.
type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// ChatRequest is one chat turn submitted by a caller.
type ChatRequest struct {
	Message       string     `json:"message"`
	SessionID     string     `json:"sessionId,omitempty"`
	RegionCode    string     `json:"areaCode,omitempty"`
	SubRegionCode string     `json:"sigunguCode,omitempty"`
	Keyword       string     `json:"keyword,omitempty"`
	PreviousTurns []ChatTurn `json:"previousMessages,omitempty"`
}
