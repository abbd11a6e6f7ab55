package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// QueryModel queries a single model via OpenRouter API with the given timeout.
// Failures are classified into the ModelQueryError taxonomy; exactly one of
// the return values is non-nil.
func QueryModel(ctx context.Context, model string, messages []OpenRouterMessage, timeout time.Duration) (*OpenRouterResponse, *ModelQueryError) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Build request payload
	payload := OpenRouterRequest{
		Model:    model,
		Messages: messages,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   fmt.Sprintf("failed to marshal request: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(callCtx, "POST", OpenRouterAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   fmt.Sprintf("failed to create request: %v", err),
		}
	}

	req.Header.Set("Authorization", "Bearer "+OpenRouterAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		// The per-call deadline is the only timeout in play here, so a
		// deadline on callCtx means this member ran out of time.
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &ModelQueryError{
				Model:     model,
				ErrorType: ErrTypeTimeout,
				Message:   fmt.Sprintf("Request timed out after %s.", timeout),
			}
		}
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   fmt.Sprintf("failed to make request: %v", err),
		}
	}
	defer resp.Body.Close()

	if qerr := classifyHTTPError(model, resp.StatusCode); qerr != nil {
		return nil, qerr
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   fmt.Sprintf("failed to read response body: %v", err),
		}
	}

	var apiResponse OpenRouterAPIResponse
	if err := json.Unmarshal(bodyBytes, &apiResponse); err != nil {
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   fmt.Sprintf("failed to parse response: %v", err),
		}
	}

	if len(apiResponse.Choices) == 0 {
		return nil, &ModelQueryError{
			Model:     model,
			ErrorType: ErrTypeUnknown,
			Message:   "no choices in response",
		}
	}

	message := apiResponse.Choices[0].Message
	return &OpenRouterResponse{
		Content:          message.Content,
		ReasoningDetails: message.ReasoningDetails,
	}, nil
}

// classifyHTTPError maps an HTTP status to the error taxonomy.
// Returns nil for any 2xx status.
func classifyHTTPError(model string, statusCode int) *ModelQueryError {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypeAuth,
			Message:    "Invalid API key. Please check your OPENROUTER_API_KEY.",
			StatusCode: statusCode,
		}
	case statusCode == http.StatusPaymentRequired:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypePayment,
			Message:    "Payment required. Please add credits to your OpenRouter account.",
			StatusCode: statusCode,
		}
	case statusCode == http.StatusNotFound:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypeNotFound,
			Message:    fmt.Sprintf("Model %q not found on OpenRouter.", model),
			StatusCode: statusCode,
		}
	case statusCode == http.StatusTooManyRequests:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypeRateLimit,
			Message:    "Rate limit exceeded. Please wait before retrying.",
			StatusCode: statusCode,
		}
	case statusCode >= 500:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypeServer,
			Message:    fmt.Sprintf("OpenRouter server error (HTTP %d). Please try again.", statusCode),
			StatusCode: statusCode,
		}
	default:
		return &ModelQueryError{
			Model:      model,
			ErrorType:  ErrTypeUnknown,
			Message:    fmt.Sprintf("API returned status %d", statusCode),
			StatusCode: statusCode,
		}
	}
}

// QueryModelsParallel queries multiple models in parallel and waits for the
// whole batch. Results come back in call-issue order, one slot per model, so
// downstream label assignment is reproducible regardless of which call
// finished first. One member's failure never cancels the others.
func QueryModelsParallel(ctx context.Context, models []string, messages []OpenRouterMessage) []ModelResult {
	results := make([]ModelResult, len(models))

	g, gctx := errgroup.WithContext(ctx)
	for i, model := range models {
		i, model := i, model
		g.Go(func() error {
			response, qerr := QueryModel(gctx, model, messages, ModelQueryTimeout)
			// Each goroutine writes only its own slot, so no locking is needed.
			results[i] = ModelResult{Model: model, Response: response, Err: qerr}
			return nil
		})
	}

	// No goroutine returns an error; Wait is purely the batch barrier.
	_ = g.Wait()

	return results
}
