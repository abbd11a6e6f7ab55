package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// EnsureDataDir ensures the data directory exists.
// Creates the directory with 0755 permissions if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir, 0755)
}

// validConversationID rejects IDs that could escape the data directory.
// IDs are server-generated UUIDs, but every path that touches disk goes
// through this check anyway because IDs also arrive in URLs.
func validConversationID(conversationID string) bool {
	if conversationID == "" {
		return false
	}
	if strings.ContainsAny(conversationID, `/\`) {
		return false
	}
	if strings.Contains(conversationID, "..") {
		return false
	}
	return true
}

// GetConversationPath returns the file path for a conversation.
// Joins the data directory with the conversation ID and .json extension.
func GetConversationPath(conversationID string) string {
	return filepath.Join(DataDir, conversationID+".json")
}

// CreateConversation creates a new conversation with the given ID.
// Initializes an empty conversation with default title and saves it to disk.
// Returns the created conversation or an error if creation fails.
func CreateConversation(conversationID string) (*Conversation, error) {
	if !validConversationID(conversationID) {
		return nil, fmt.Errorf("invalid conversation ID %q", conversationID)
	}

	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	conversation := &Conversation{
		ID:        conversationID,
		CreatedAt: time.Now().UTC(),
		Title:     "New Conversation",
		Messages:  []Message{},
	}

	if err := SaveConversation(conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

// GetConversation loads a conversation from storage by ID.
// Returns nil without error if the conversation doesn't exist.
// Returns an error only if file reading or JSON parsing fails.
func GetConversation(conversationID string) (*Conversation, error) {
	if !validConversationID(conversationID) {
		return nil, nil // Treat malformed IDs the same as missing ones
	}

	path := GetConversationPath(conversationID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil // Not found, return nil without error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file: %w", err)
	}

	var conversation Conversation
	if err := json.Unmarshal(data, &conversation); err != nil {
		return nil, fmt.Errorf("failed to parse conversation JSON: %w", err)
	}

	return &conversation, nil
}

// SaveConversation saves a conversation to storage.
// Writes the conversation as formatted JSON to disk.
// Returns an error if directory creation, marshaling, or writing fails.
func SaveConversation(conversation *Conversation) error {
	if !validConversationID(conversation.ID) {
		return fmt.Errorf("invalid conversation ID %q", conversation.ID)
	}

	if err := EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(conversation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	path := GetConversationPath(conversation.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write conversation file: %w", err)
	}

	return nil
}

// ListConversations lists all conversations with metadata only.
// Returns a slice of conversation metadata sorted by creation time (newest first).
// Silently skips invalid or unreadable files. Returns empty slice if no conversations exist.
func ListConversations() ([]ConversationMetadata, error) {
	if err := EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	entries, err := os.ReadDir(DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	// Initialize with empty slice to avoid null in JSON
	conversations := make([]ConversationMetadata, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(DataDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue // Skip files we can't read
		}

		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil {
			continue // Skip invalid JSON
		}

		conversations = append(conversations, ConversationMetadata{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
		})
	}

	// Sort by creation time, newest first
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreatedAt.After(conversations[j].CreatedAt)
	})

	return conversations, nil
}

// AddUserMessage adds a user message to a conversation.
// Appends the message to the conversation's message history and saves to disk.
// Returns an error if the conversation doesn't exist or saving fails.
func AddUserMessage(conversationID string, content string) error {
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	conversation.Messages = append(conversation.Messages, Message{
		Role:    "user",
		Content: content,
	})

	return SaveConversation(conversation)
}

// AddAssistantMessage records a full deliberation turn as one assistant
// message: all three stages plus the per-stage errors, so partial failures
// are reconstructable from the stored history.
func AddAssistantMessage(conversationID string, result *CouncilResult) error {
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	conversation.Messages = append(conversation.Messages, Message{
		Role:         "assistant",
		Stage1:       result.Stage1,
		Stage2:       result.Stage2,
		Stage3:       result.Stage3,
		Stage1Errors: result.Stage1Errors,
		Stage2Errors: result.Stage2Errors,
		Stage3Errors: result.Stage3Errors,
	})

	return SaveConversation(conversation)
}

// AddChairmanMessage records a chairman-direct reply. The answer doubles as
// plain content so history formatting does not depend on stage data.
func AddChairmanMessage(conversationID string, stage3 *Stage3Response) error {
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	msg := Message{Role: "assistant", Stage3: stage3}
	if stage3 != nil {
		msg.Content = stage3.Response
	}
	conversation.Messages = append(conversation.Messages, msg)

	return SaveConversation(conversation)
}

// UpdateConversationTitle updates the title of a conversation.
// Loads the conversation, updates its title field, and saves back to disk.
// Returns an error if the conversation doesn't exist or saving fails.
func UpdateConversationTitle(conversationID string, title string) error {
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		return fmt.Errorf("conversation %s not found", conversationID)
	}

	conversation.Title = title

	return SaveConversation(conversation)
}

// DeleteConversation removes a conversation file. The boolean reports
// whether the conversation existed.
func DeleteConversation(conversationID string) (bool, error) {
	if !validConversationID(conversationID) {
		return false, nil
	}

	path := GetConversationPath(conversationID)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete conversation file: %w", err)
	}
	return true, nil
}

// DeleteAllConversations removes every stored conversation and returns how
// many were deleted.
func DeleteAllConversations() (int, error) {
	if err := EnsureDataDir(); err != nil {
		return 0, fmt.Errorf("failed to create data directory: %w", err)
	}

	entries, err := os.ReadDir(DataDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read data directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(DataDir, entry.Name())); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", entry.Name(), err)
		}
		deleted++
	}

	return deleted, nil
}

// GetConversationConfig resolves the effective council configuration for a
// conversation: stored overrides win field by field, everything else falls
// back to the global defaults. A nil conversation (or missing one) resolves
// to the global snapshot.
func GetConversationConfig(conversationID string) (CouncilConfig, error) {
	cfg := GlobalCouncilConfig()

	conversation, err := GetConversation(conversationID)
	if err != nil {
		return cfg, err
	}
	if conversation == nil {
		return cfg, nil
	}

	if len(conversation.CouncilModels) > 0 {
		models := make([]string, len(conversation.CouncilModels))
		copy(models, conversation.CouncilModels)
		cfg.CouncilModels = models
	}
	if conversation.ChairmanModel != "" {
		cfg.ChairmanModel = conversation.ChairmanModel
	}
	if conversation.WebSearchEnabled != nil {
		cfg.WebSearchEnabled = *conversation.WebSearchEnabled
	}

	return cfg, nil
}

// UpdateConversationConfig stores per-conversation overrides. Nil fields
// leave the corresponding override untouched; an explicit empty council
// list or chairman string clears the override back to the global default.
func UpdateConversationConfig(conversationID string, councilModels []string, chairmanModel *string, webSearchEnabled *bool) (CouncilConfig, error) {
	conversation, err := GetConversation(conversationID)
	if err != nil {
		return CouncilConfig{}, err
	}
	if conversation == nil {
		return CouncilConfig{}, fmt.Errorf("conversation %s not found", conversationID)
	}

	if councilModels != nil {
		if len(councilModels) == 0 {
			conversation.CouncilModels = nil
		} else {
			conversation.CouncilModels = councilModels
		}
	}
	if chairmanModel != nil {
		conversation.ChairmanModel = *chairmanModel
	}
	if webSearchEnabled != nil {
		conversation.WebSearchEnabled = webSearchEnabled
	}

	if err := SaveConversation(conversation); err != nil {
		return CouncilConfig{}, err
	}

	return GetConversationConfig(conversationID)
}
