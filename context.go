package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// FormatAssistantMessage converts a stored assistant turn into plain text
// for context. Only the chairman's synthesized answer matters for
// conversational continuity; stage 1/2 detail is dropped.
func FormatAssistantMessage(msg Message) string {
	if msg.Stage3 != nil && msg.Stage3.Response != "" {
		return msg.Stage3.Response
	}
	if msg.Content != "" {
		return msg.Content
	}
	return "[Assistant response]"
}

// SummarizeOlderMessages condenses older conversation turns into a short
// summary using one auxiliary chairman-model call.
func SummarizeOlderMessages(ctx context.Context, chairmanModel string, messages []Message) (string, *ModelQueryError) {
	var conversationText strings.Builder
	for _, msg := range messages {
		if msg.Role == "user" {
			conversationText.WriteString(fmt.Sprintf("User: %s\n\n", msg.Content))
		} else {
			conversationText.WriteString(fmt.Sprintf("Assistant: %s\n\n", FormatAssistantMessage(msg)))
		}
	}

	summaryPrompt := fmt.Sprintf(`Summarize the following conversation concisely in 2-3 sentences. Focus on key topics, questions asked, and important context that would be needed to understand follow-up questions.

Conversation:
%s

Concise summary:`, conversationText.String())

	apiMessages := []OpenRouterMessage{
		{Role: "user", Content: summaryPrompt},
	}

	response, qerr := QueryModel(ctx, chairmanModel, apiMessages, SummaryTimeout)
	if qerr != nil {
		return "", qerr
	}

	return strings.TrimSpace(response.Content), nil
}

// BuildContextMessages converts a conversation's message history plus the
// new user query into the message list sent to the council. Short histories
// go through verbatim. Once the history exceeds RecentExchangeLimit
// exchanges, everything older is condensed into a single summary message
// ahead of the recent turns; if the summarizer itself fails, the turn
// proceeds on the recent exchanges alone.
func BuildContextMessages(ctx context.Context, chairmanModel string, conversationMessages []Message, currentQuery string) []OpenRouterMessage {
	if len(conversationMessages) == 0 {
		return []OpenRouterMessage{{Role: "user", Content: currentQuery}}
	}

	// An exchange is a user/assistant message pair
	numRecentMessages := RecentExchangeLimit * 2

	if len(conversationMessages) <= numRecentMessages {
		formatted := formatHistory(conversationMessages)
		return append(formatted, OpenRouterMessage{Role: "user", Content: currentQuery})
	}

	olderMessages := conversationMessages[:len(conversationMessages)-numRecentMessages]
	recentMessages := conversationMessages[len(conversationMessages)-numRecentMessages:]

	var formatted []OpenRouterMessage
	summary, qerr := SummarizeOlderMessages(ctx, chairmanModel, olderMessages)
	if qerr != nil {
		log.Printf("Context summarization failed (%s), continuing with recent messages only: %s", qerr.ErrorType, qerr.Message)
	} else {
		formatted = append(formatted,
			OpenRouterMessage{Role: "user", Content: fmt.Sprintf("[Previous conversation summary: %s]", summary)},
			OpenRouterMessage{Role: "assistant", Content: "I understand the previous conversation context."},
		)
	}

	formatted = append(formatted, formatHistory(recentMessages)...)
	return append(formatted, OpenRouterMessage{Role: "user", Content: currentQuery})
}

// formatHistory maps stored messages to API messages in chronological order.
func formatHistory(messages []Message) []OpenRouterMessage {
	formatted := make([]OpenRouterMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == "user" {
			formatted = append(formatted, OpenRouterMessage{Role: "user", Content: msg.Content})
		} else {
			formatted = append(formatted, OpenRouterMessage{Role: "assistant", Content: FormatAssistantMessage(msg)})
		}
	}
	return formatted
}
