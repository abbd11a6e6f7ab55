package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration constants
var (
	// OpenRouterAPIKey is the API key for OpenRouter
	OpenRouterAPIKey string

	// DefaultCouncilModels is the default list of models queried in parallel
	DefaultCouncilModels = []string{
		"openai/gpt-5.1",
		"google/gemini-3-pro-preview",
		"anthropic/claude-sonnet-4.5",
		"x-ai/grok-4",
	}

	// DefaultChairmanModel is the default model used for final synthesis
	DefaultChairmanModel = "google/gemini-3-pro-preview"

	// TitleModel generates short conversation titles; a fast model is enough
	TitleModel = "google/gemini-2.5-flash"

	// DefaultWebSearchEnabled toggles the :online model variants globally
	DefaultWebSearchEnabled = false

	// OpenRouterAPIURL is the endpoint for OpenRouter API
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// DataDir is the directory for conversation storage
	DataDir = "data/conversations"

	// Timeout constants
	ModelQueryTimeout = 120 * time.Second
	TitleGenTimeout   = 30 * time.Second
	SummaryTimeout    = 30 * time.Second

	// RecentExchangeLimit is how many recent exchanges stay verbatim when a
	// long conversation is summarized for context
	RecentExchangeLimit = 5

	// CORS allowed origins (configurable via environment)
	// In development (empty/default), allows any localhost port
	// In production, set CORS_ALLOWED_ORIGINS environment variable
	CORSAllowedOrigins = []string{}

	// MaxRequestBodySize is the maximum allowed request body size (1MB)
	MaxRequestBodySize int64 = 1 << 20

	// PageCacheTTL is the time-to-live for fetched URL content (5 minutes)
	PageCacheTTL = 5 * time.Minute
)

// OnlineSuffix is OpenRouter's web-search model variant suffix
const OnlineSuffix = ":online"

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file - try multiple locations
	envLocations := []string{
		".env",    // Current directory
		"../.env", // Parent directory
	}

	// Try to find and load .env file
	envLoaded := false
	for _, envPath := range envLocations {
		absPath, err := filepath.Abs(envPath)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			if err := godotenv.Load(absPath); err == nil {
				log.Printf("Loaded .env from: %s", absPath)
				envLoaded = true
				break
			}
		}
	}

	if !envLoaded {
		log.Printf("Warning: .env file not found in any expected location")
	}

	// Get OpenRouter API key
	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Fatal("OPENROUTER_API_KEY environment variable is required")
	}

	// Council override: comma-separated model list
	if models := os.Getenv("COUNCIL_MODELS"); models != "" {
		var parsed []string
		for _, m := range strings.Split(models, ",") {
			if m = strings.TrimSpace(m); m != "" {
				parsed = append(parsed, m)
			}
		}
		if len(parsed) > 0 {
			DefaultCouncilModels = parsed
		}
	}

	if chairman := os.Getenv("CHAIRMAN_MODEL"); chairman != "" {
		DefaultChairmanModel = chairman
	}

	if webSearch := os.Getenv("WEB_SEARCH_ENABLED"); webSearch != "" {
		DefaultWebSearchEnabled = webSearch == "true" || webSearch == "1"
	}

	// Load CORS origins from environment if provided
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		CORSAllowedOrigins = []string{}
		for _, origin := range filepath.SplitList(corsOrigins) {
			if origin != "" {
				CORSAllowedOrigins = append(CORSAllowedOrigins, origin)
			}
		}
	}

	log.Println("Configuration loaded successfully")
}

// GlobalCouncilConfig returns a snapshot of the configured defaults.
func GlobalCouncilConfig() CouncilConfig {
	models := make([]string, len(DefaultCouncilModels))
	copy(models, DefaultCouncilModels)
	return CouncilConfig{
		CouncilModels:    models,
		ChairmanModel:    DefaultChairmanModel,
		WebSearchEnabled: DefaultWebSearchEnabled,
	}
}

// ApplyOnlineVariant appends OpenRouter's :online suffix to a model ID so
// the call runs with web search. Idempotent.
func ApplyOnlineVariant(model string) string {
	if model == "" || strings.HasSuffix(model, OnlineSuffix) {
		return model
	}
	return model + OnlineSuffix
}

// EffectiveCouncilModels returns the council model IDs to call for this
// turn, with the web-search variant applied when enabled.
func (c CouncilConfig) EffectiveCouncilModels() []string {
	models := make([]string, len(c.CouncilModels))
	for i, m := range c.CouncilModels {
		if c.WebSearchEnabled {
			models[i] = ApplyOnlineVariant(m)
		} else {
			models[i] = m
		}
	}
	return models
}

// EffectiveChairmanModel returns the chairman model ID to call for this
// turn, with the web-search variant applied when enabled.
func (c CouncilConfig) EffectiveChairmanModel() string {
	if c.WebSearchEnabled {
		return ApplyOnlineVariant(c.ChairmanModel)
	}
	return c.ChairmanModel
}
