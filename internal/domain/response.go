package domain

import "time"

// AIResponse is the outcome of a dispatched AI request. Content is never
// empty: degraded paths carry the local responder's fixed apology.
type AIResponse struct {
	Content        string        `json:"content"`
	Provider       string        `json:"provider"`
	TokensUsed     int           `json:"tokens_used"`
	RequestType    RequestType   `json:"request_type"`
	ProcessingTime time.Duration `json:"processing_time,omitempty"`
	Degraded       bool          `json:"degraded,omitempty"`
	DegradedNote   string        `json:"degraded_note,omitempty"`
}
