package models

// Roles for ChatMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// PubMedSource is one retrieved reference from the Q&A corpus.
// Contexts and Labels are parallel lists; Contexts hold the full
// untruncated text spans.
type PubMedSource struct {
	PMID     string   `json:"pmid"`
	Question string   `json:"question"`
	Contexts []string `json:"contexts"`
	Labels   []string `json:"labels"`
	Year     string   `json:"year"`
	Meshes   []string `json:"meshes,omitempty"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply from the AI chat together with the
// references used to ground it (empty when RAG is disabled or no
// matches were found).
type ChatResponse struct {
	Reply   string         `json:"reply"`
	Sources []PubMedSource `json:"sources"`
}
