//go:build ignore

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Manual smoke test for the OpenRouter client against the live API.
// Run with: go run test_openrouter_client.go config.go models.go openrouter.go
func main() {
	fmt.Println("=== OpenRouter Client Test ===")

	// Load .env from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	OpenRouterAPIKey = os.Getenv("OPENROUTER_API_KEY")
	if OpenRouterAPIKey == "" {
		log.Fatal("OPENROUTER_API_KEY environment variable is required")
	}

	messages := []OpenRouterMessage{
		{Role: "user", Content: "Say hello in exactly 5 words."},
	}

	ctx := context.Background()

	// Test 1: Single model query
	fmt.Println("Test 1: Querying single model (gemini-2.5-flash)...")
	start := time.Now()
	response, qerr := QueryModel(ctx, "google/gemini-2.5-flash", messages, 30*time.Second)
	elapsed := time.Since(start)

	if qerr != nil {
		log.Fatalf("Single query failed: %v", qerr)
	}

	fmt.Printf("Success! (%.2fs)\n", elapsed.Seconds())
	fmt.Printf("Response: %s\n\n", response.Content)

	// Test 2: Parallel model queries
	fmt.Println("Test 2: Querying multiple models in parallel...")
	testModels := []string{
		"google/gemini-2.5-flash",
		"anthropic/claude-3.5-haiku",
		"openai/gpt-4o-mini",
	}

	start = time.Now()
	results := QueryModelsParallel(ctx, testModels, messages)
	elapsed = time.Since(start)

	fmt.Printf("Done. (%.2fs)\n", elapsed.Seconds())
	fmt.Println("\nResults:")
	successCount := 0
	for _, result := range results {
		if result.Err == nil {
			fmt.Printf("  OK   %s: %s\n", result.Model, result.Response.Content)
			successCount++
		} else {
			fmt.Printf("  FAIL %s: %s (%s)\n", result.Model, result.Err.Message, result.Err.ErrorType)
		}
	}

	fmt.Printf("\n=== Test Complete: %d/%d models succeeded ===\n", successCount, len(testModels))
}
