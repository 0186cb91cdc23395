package domain

import "fmt"

// Request parameter limits.
const (
	MaxContentLength = 10000
	MaxSystemLength  = 1000
	DefaultMaxTokens = 2000
	MaxMaxTokens     = 4000
	DefaultTemp      = 0.7
)

// AIRequest is a validated, immutable AI request. Construct with NewAIRequest;
// the zero value is not usable.
type AIRequest struct {
	userID      string
	tier        Tier
	reqType     RequestType
	content     string
	system      string
	temperature float64
	maxTokens   int
	contextData map[string]string
}

// NewAIRequest validates and normalizes an AI request.
// Defaults: temperature 0.7 when negative, maxTokens 2000 when zero.
func NewAIRequest(
	userID string, tier Tier, reqType RequestType,
	content, system string,
	temperature float64, maxTokens int,
	contextData map[string]string,
) (AIRequest, error) {
	if userID == "" {
		return AIRequest{}, fmt.Errorf("user id is required: %w", ErrInvalidRequest)
	}
	if !reqType.IsValid() {
		return AIRequest{}, fmt.Errorf("unknown request type %q: %w", reqType, ErrInvalidRequest)
	}
	if content == "" {
		return AIRequest{}, fmt.Errorf("content is required: %w", ErrInvalidRequest)
	}
	if len(content) > MaxContentLength {
		return AIRequest{}, fmt.Errorf("content too long (max %d chars): %w", MaxContentLength, ErrInvalidRequest)
	}
	if len(system) > MaxSystemLength {
		return AIRequest{}, fmt.Errorf("system prompt too long (max %d chars): %w", MaxSystemLength, ErrInvalidRequest)
	}
	if temperature < 0 {
		temperature = DefaultTemp
	}
	if temperature > 2.0 {
		return AIRequest{}, fmt.Errorf("temperature must be between 0.0 and 2.0: %w", ErrInvalidRequest)
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens > MaxMaxTokens {
		return AIRequest{}, fmt.Errorf("max_tokens must be at most %d: %w", MaxMaxTokens, ErrInvalidRequest)
	}

	// Copy the context map so the request stays immutable.
	var cd map[string]string
	if len(contextData) > 0 {
		cd = make(map[string]string, len(contextData))
		for k, v := range contextData {
			cd[k] = v
		}
	}

	return AIRequest{
		userID:      userID,
		tier:        tier,
		reqType:     reqType,
		content:     content,
		system:      system,
		temperature: temperature,
		maxTokens:   maxTokens,
		contextData: cd,
	}, nil
}

// UserID returns the requesting user's identifier.
func (r *AIRequest) UserID() string { return r.userID }

// Tier returns the requesting user's service level.
func (r *AIRequest) Tier() Tier { return r.tier }

// Type returns the request-type tag.
func (r *AIRequest) Type() RequestType { return r.reqType }

// Content returns the request content.
func (r *AIRequest) Content() string { return r.content }

// System returns the optional system preamble.
func (r *AIRequest) System() string { return r.system }

// Temperature returns the sampling temperature.
func (r *AIRequest) Temperature() float64 { return r.temperature }

// MaxTokens returns the output token cap.
func (r *AIRequest) MaxTokens() int { return r.maxTokens }

// Context returns the optional structured context.
func (r *AIRequest) Context() map[string]string { return r.contextData }
