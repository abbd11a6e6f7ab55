package main

import "time"

// Error types for failed model queries. A ModelQueryError is created once by
// the model caller and surfaced unchanged through every stage.
const (
	ErrTypeTimeout   = "timeout"
	ErrTypeRateLimit = "rate_limit"
	ErrTypeAuth      = "auth"
	ErrTypePayment   = "payment"
	ErrTypeNotFound  = "not_found"
	ErrTypeServer    = "server"
	ErrTypeUnknown   = "unknown"
)

// ModelQueryError is structured error information from a failed model query
type ModelQueryError struct {
	Model      string `json:"model"`
	ErrorType  string `json:"error_type"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *ModelQueryError) Error() string {
	return e.Model + ": " + e.ErrorType + ": " + e.Message
}

// Message represents a single message in a conversation
type Message struct {
	Role         string            `json:"role"`
	Content      string            `json:"content,omitempty"`
	Stage1       []Stage1Response  `json:"stage1,omitempty"`
	Stage2       []Stage2Ranking   `json:"stage2,omitempty"`
	Stage3       *Stage3Response   `json:"stage3,omitempty"`
	Stage1Errors []ModelQueryError `json:"stage1_errors,omitempty"`
	Stage2Errors []ModelQueryError `json:"stage2_errors,omitempty"`
	Stage3Errors []ModelQueryError `json:"stage3_errors,omitempty"`
}

// Conversation represents a full conversation with all messages.
// CouncilModels, ChairmanModel and WebSearchEnabled are optional
// per-conversation overrides; unset fields inherit the global defaults.
type Conversation struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Title            string    `json:"title"`
	Messages         []Message `json:"messages"`
	CouncilModels    []string  `json:"council_models,omitempty"`
	ChairmanModel    string    `json:"chairman_model,omitempty"`
	WebSearchEnabled *bool     `json:"web_search_enabled,omitempty"`
}

// ConversationMetadata represents conversation list metadata
type ConversationMetadata struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}

// CouncilConfig is the council configuration snapshot for one turn. It is
// resolved once at the start of a turn and passed through all stages so a
// concurrent configuration change cannot produce a torn read mid-turn.
type CouncilConfig struct {
	CouncilModels    []string `json:"council_models"`
	ChairmanModel    string   `json:"chairman_model"`
	WebSearchEnabled bool     `json:"web_search_enabled"`
}

// Stage1Response represents a single model's response in Stage 1
type Stage1Response struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Stage2Ranking represents a model's ranking of the anonymized responses.
// ParsedRanking may be empty when the model ignored the ranking format;
// the raw text is kept either way so a human can audit it.
type Stage2Ranking struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking"`
	ParsedRanking []string `json:"parsed_ranking"`
}

// Stage3Response represents the chairman's final synthesis
type Stage3Response struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// AggregateRanking is one entry of the mean-position aggregate
type AggregateRanking struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// TournamentRanking is one entry of the pairwise-tournament aggregate.
// Score is wins minus losses.
type TournamentRanking struct {
	Model         string `json:"model"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Score         int    `json:"score"`
	RankingsCount int    `json:"rankings_count"`
}

// CouncilResult bundles everything one deliberation turn produced. It is
// owned by the orchestrator for the duration of the turn, handed to storage
// and the API layer, then discarded.
type CouncilResult struct {
	Stage1             []Stage1Response    `json:"stage1"`
	Stage1Errors       []ModelQueryError   `json:"stage1_errors,omitempty"`
	Stage2             []Stage2Ranking     `json:"stage2"`
	Stage2Errors       []ModelQueryError   `json:"stage2_errors,omitempty"`
	LabelToModel       map[string]string   `json:"label_to_model"`
	AggregateRankings  []AggregateRanking  `json:"aggregate_rankings"`
	TournamentRankings []TournamentRanking `json:"tournament_rankings"`
	Stage3             *Stage3Response     `json:"stage3"`
	Stage3Errors       []ModelQueryError   `json:"stage3_errors,omitempty"`
}

// OpenRouterMessage represents a message for OpenRouter API
type OpenRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenRouterRequest represents a request to OpenRouter API
type OpenRouterRequest struct {
	Model    string              `json:"model"`
	Messages []OpenRouterMessage `json:"messages"`
}

// OpenRouterResponse represents a response from OpenRouter API
type OpenRouterResponse struct {
	Content          string      `json:"content"`
	ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
}

// OpenRouterAPIResponse represents the full API response structure
type OpenRouterAPIResponse struct {
	Choices []struct {
		Message struct {
			Content          string      `json:"content"`
			ReasoningDetails interface{} `json:"reasoning_details,omitempty"`
		} `json:"message"`
	} `json:"choices"`
}

// ModelResult is the outcome of one model call in a fan-out batch. Exactly
// one of Response and Err is non-nil.
type ModelResult struct {
	Model    string
	Response *OpenRouterResponse
	Err      *ModelQueryError
}

// SendMessageRequest represents a request to send a message.
// Mode selects between the full council deliberation (default) and a
// chairman-direct reply that skips stages 1 and 2.
type SendMessageRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
}

// Deliberation modes accepted in SendMessageRequest.Mode
const (
	ModeCouncil  = "council"
	ModeChairman = "chairman"
)

// SendMessageResponse represents the response after sending a message
type SendMessageResponse struct {
	Stage1             []Stage1Response    `json:"stage1"`
	Stage1Errors       []ModelQueryError   `json:"stage1_errors,omitempty"`
	Stage2             []Stage2Ranking     `json:"stage2"`
	Stage2Errors       []ModelQueryError   `json:"stage2_errors,omitempty"`
	Stage3             *Stage3Response     `json:"stage3"`
	Stage3Errors       []ModelQueryError   `json:"stage3_errors,omitempty"`
	LabelToModel       map[string]string   `json:"label_to_model,omitempty"`
	AggregateRankings  []AggregateRanking  `json:"aggregate_rankings,omitempty"`
	TournamentRankings []TournamentRanking `json:"tournament_rankings,omitempty"`
}
