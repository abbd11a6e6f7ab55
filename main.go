package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Global page cache instance
var pageCache *PageCache

func main() {
	// Load configuration
	LoadConfig()

	// Initialize page cache
	pageCache = NewPageCache(PageCacheTTL)

	router := NewRouter()

	// Start server
	log.Println("Starting LLM Council backend on port 8001...")
	if err := router.Run(":8001"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// NewRouter builds the Gin router with all middleware and routes.
func NewRouter() *gin.Engine {
	router := gin.Default()

	// Request size limit middleware
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)
		c.Next()
	})

	// CORS middleware with dynamic origin validation
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			// In production, use environment-configured origins
			if len(CORSAllowedOrigins) > 0 && CORSAllowedOrigins[0] != "" {
				for _, allowedOrigin := range CORSAllowedOrigins {
					if origin == allowedOrigin {
						return true
					}
				}
				return false
			}
			// In development, allow any localhost/127.0.0.1 origin
			return len(origin) > 0 && (len(origin) >= 16 && origin[:16] == "http://localhost" ||
				len(origin) >= 14 && origin[:14] == "http://127.0.0")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	// Routes
	router.GET("/", healthCheck)
	router.GET("/api/conversations", listConversationsHandler)
	router.POST("/api/conversations", createConversationHandler)
	router.DELETE("/api/conversations", deleteAllConversationsHandler)
	router.GET("/api/conversations/:id", getConversationHandler)
	router.DELETE("/api/conversations/:id", deleteConversationHandler)
	router.GET("/api/conversations/:id/config", getConversationConfigHandler)
	router.PUT("/api/conversations/:id/config", updateConversationConfigHandler)
	router.POST("/api/conversations/:id/message", sendMessageHandler)
	router.POST("/api/conversations/:id/message/stream", sendMessageStreamHandler)
	router.POST("/api/fetch-url", fetchURLHandler)

	return router
}

// healthCheck returns a simple health check response.
// GET / - Returns service status information.
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "LLM Council API",
	})
}

// listConversationsHandler lists all conversations with metadata only.
// GET /api/conversations - Returns array of conversation metadata sorted by date.
func listConversationsHandler(c *gin.Context) {
	conversations, err := ListConversations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to list conversations: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// createConversationHandler creates a new conversation.
// POST /api/conversations - Generates a new UUID and creates an empty conversation.
func createConversationHandler(c *gin.Context) {
	conversationID := uuid.New().String()

	conversation, err := CreateConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to create conversation: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// deleteAllConversationsHandler wipes all stored conversations.
// DELETE /api/conversations?confirm=true - Requires explicit confirmation.
func deleteAllConversationsHandler(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Pass confirm=true to delete all conversations",
		})
		return
	}

	deleted, err := DeleteAllConversations()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to delete conversations: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// getConversationHandler gets a specific conversation by ID.
// GET /api/conversations/:id - Returns full conversation including all messages.
func getConversationHandler(c *gin.Context) {
	conversationID := c.Param("id")

	conversation, err := GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get conversation: %v", err),
		})
		return
	}

	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// deleteConversationHandler deletes a single conversation.
// DELETE /api/conversations/:id
func deleteConversationHandler(c *gin.Context) {
	conversationID := c.Param("id")

	existed, err := DeleteConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to delete conversation: %v", err),
		})
		return
	}
	if !existed {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// getConversationConfigHandler returns the effective council configuration
// for a conversation (stored overrides merged over global defaults).
// GET /api/conversations/:id/config
func getConversationConfigHandler(c *gin.Context) {
	conversationID := c.Param("id")

	conversation, err := GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get conversation: %v", err),
		})
		return
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	cfg, err := GetConversationConfig(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to resolve config: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// updateConfigRequest carries per-conversation override updates. Absent
// fields leave the stored override untouched.
type updateConfigRequest struct {
	CouncilModels    []string `json:"council_models"`
	ChairmanModel    *string  `json:"chairman_model"`
	WebSearchEnabled *bool    `json:"web_search_enabled"`
}

// updateConversationConfigHandler stores per-conversation overrides and
// returns the resulting effective configuration.
// PUT /api/conversations/:id/config
func updateConversationConfigHandler(c *gin.Context) {
	conversationID := c.Param("id")

	var request updateConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	conversation, err := GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get conversation: %v", err),
		})
		return
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	cfg, err := UpdateConversationConfig(conversationID, request.CouncilModels, request.ChairmanModel, request.WebSearchEnabled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to update config: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// sendMessageHandler sends a message and runs the deliberation process.
// POST /api/conversations/:id/message - Runs full council (or chairman-direct
// when mode is "chairman") and returns all stages at once.
// Use sendMessageStreamHandler for SSE streaming version.
func sendMessageHandler(c *gin.Context) {
	conversationID := c.Param("id")

	var request SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}
	if request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Message content is required",
		})
		return
	}

	conversation, err := GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get conversation: %v", err),
		})
		return
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	// The configuration is snapshotted once; a concurrent config change
	// takes effect from the next turn
	cfg, err := GetConversationConfig(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to resolve config: %v", err),
		})
		return
	}

	isFirstMessage := len(conversation.Messages) == 0

	if err := AddUserMessage(conversationID, request.Content); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to add user message: %v", err),
		})
		return
	}

	// Generate title if first message (run in background)
	if isFirstMessage {
		go generateTitleInBackground(conversationID, request.Content)
	}

	ctx := context.Background()
	contextMessages := BuildContextMessages(ctx, cfg.EffectiveChairmanModel(), conversation.Messages, request.Content)

	if request.Mode == ModeChairman {
		stage3, stage3Errors := RunChairmanDirect(ctx, cfg, contextMessages)
		if stage3 != nil {
			if err := AddChairmanMessage(conversationID, stage3); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": fmt.Sprintf("Failed to add assistant message: %v", err),
				})
				return
			}
		}
		c.JSON(http.StatusOK, SendMessageResponse{
			Stage3:       stage3,
			Stage3Errors: stage3Errors,
		})
		return
	}

	result := RunFullCouncil(ctx, cfg, contextMessages)

	if err := AddAssistantMessage(conversationID, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to add assistant message: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, SendMessageResponse{
		Stage1:             result.Stage1,
		Stage1Errors:       result.Stage1Errors,
		Stage2:             result.Stage2,
		Stage2Errors:       result.Stage2Errors,
		Stage3:             result.Stage3,
		Stage3Errors:       result.Stage3Errors,
		LabelToModel:       result.LabelToModel,
		AggregateRankings:  result.AggregateRankings,
		TournamentRankings: result.TournamentRankings,
	})
}

// sendMessageStreamHandler sends a message and streams the deliberation via SSE.
// POST /api/conversations/:id/message/stream - Streams progress events as each stage completes.
// Events: stage1_start, stage1_complete, stage2_start, stage2_complete,
// stage3_start, stage3_complete, title_complete, error, complete.
// Per-model failures ride inside the stage events; the error event is
// reserved for failures of the turn itself.
func sendMessageStreamHandler(c *gin.Context) {
	conversationID := c.Param("id")

	var request SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}
	if request.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Message content is required",
		})
		return
	}

	conversation, err := GetConversation(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to get conversation: %v", err),
		})
		return
	}
	if conversation == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	cfg, err := GetConversationConfig(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to resolve config: %v", err),
		})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	isFirstMessage := len(conversation.Messages) == 0

	if err := AddUserMessage(conversationID, request.Content); err != nil {
		sendSSEError(c, fmt.Sprintf("Failed to add user message: %v", err))
		return
	}

	ctx := context.Background()

	// Start title generation in background if first message
	var titleChan chan string
	if isFirstMessage {
		titleChan = make(chan string, 1)
		go func() {
			title, err := GenerateConversationTitle(ctx, request.Content)
			if err != nil {
				log.Printf("Failed to generate title: %v", err)
				UpdateConversationTitle(conversationID, "New Conversation")
			} else {
				UpdateConversationTitle(conversationID, title)
				titleChan <- title
			}
			close(titleChan)
		}()
	}

	contextMessages := BuildContextMessages(ctx, cfg.EffectiveChairmanModel(), conversation.Messages, request.Content)

	if request.Mode == ModeChairman {
		sendSSEEvent(c, gin.H{"type": "stage3_start"})
		stage3, stage3Errors := RunChairmanDirect(ctx, cfg, contextMessages)
		sendSSEEvent(c, gin.H{"type": "stage3_complete", "data": stage3, "errors": stage3Errors})

		if titleChan != nil {
			if title := <-titleChan; title != "" {
				sendSSEEvent(c, gin.H{"type": "title_complete", "data": gin.H{"title": title}})
			}
		}

		if stage3 != nil {
			if err := AddChairmanMessage(conversationID, stage3); err != nil {
				sendSSEError(c, fmt.Sprintf("Failed to save message: %v", err))
				return
			}
		}
		sendSSEEvent(c, gin.H{"type": "complete"})
		return
	}

	result := &CouncilResult{}
	currentQuery := request.Content

	// Stage 1
	sendSSEEvent(c, gin.H{"type": "stage1_start"})
	result.Stage1, result.Stage1Errors = Stage1CollectResponses(ctx, cfg, contextMessages)
	sendSSEEvent(c, gin.H{"type": "stage1_complete", "data": result.Stage1, "errors": result.Stage1Errors})

	// Stage 2
	sendSSEEvent(c, gin.H{"type": "stage2_start"})
	result.Stage2, result.LabelToModel, result.Stage2Errors = Stage2CollectRankings(ctx, cfg, currentQuery, result.Stage1)
	result.AggregateRankings = CalculateAggregateRankings(result.Stage2, result.LabelToModel)
	result.TournamentRankings = CalculateTournamentRankings(result.Stage2, result.LabelToModel)
	sendSSEEvent(c, gin.H{
		"type":   "stage2_complete",
		"data":   result.Stage2,
		"errors": result.Stage2Errors,
		"metadata": gin.H{
			"label_to_model":      result.LabelToModel,
			"aggregate_rankings":  result.AggregateRankings,
			"tournament_rankings": result.TournamentRankings,
		},
	})

	// Stage 3
	sendSSEEvent(c, gin.H{"type": "stage3_start"})
	result.Stage3, result.Stage3Errors = Stage3SynthesizeFinal(ctx, cfg, currentQuery, result.Stage1, result.Stage2, result.AggregateRankings, result.TournamentRankings)
	sendSSEEvent(c, gin.H{"type": "stage3_complete", "data": result.Stage3, "errors": result.Stage3Errors})

	// Wait for title if it was being generated
	if titleChan != nil {
		if title := <-titleChan; title != "" {
			sendSSEEvent(c, gin.H{"type": "title_complete", "data": gin.H{"title": title}})
		}
	}

	// Save the turn with whatever the stages produced, failures included
	if err := AddAssistantMessage(conversationID, result); err != nil {
		sendSSEError(c, fmt.Sprintf("Failed to save message: %v", err))
		return
	}

	// Send completion event
	sendSSEEvent(c, gin.H{"type": "complete"})
}

// generateTitleInBackground generates and stores a conversation title.
func generateTitleInBackground(conversationID, content string) {
	ctx := context.Background()
	title, err := GenerateConversationTitle(ctx, content)
	if err != nil {
		log.Printf("Failed to generate title: %v", err)
		// Use default title on error
		UpdateConversationTitle(conversationID, "New Conversation")
		return
	}
	UpdateConversationTitle(conversationID, title)
}

// sendSSEEvent sends a Server-Sent Event.
// Marshals data to JSON and writes as SSE format with "data: " prefix.
func sendSSEEvent(c *gin.Context, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to marshal SSE event: %v", err)
		return
	}
	c.Writer.WriteString(fmt.Sprintf("data: %s\n\n", string(jsonData)))
	c.Writer.Flush()
}

// sendSSEError sends an error event via SSE.
// Convenience wrapper for sending error-type SSE events.
func sendSSEError(c *gin.Context, message string) {
	sendSSEEvent(c, gin.H{"type": "error", "message": message})
}

// fetchURLHandler fetches and extracts content from a given URL
// POST /api/fetch-url - Body: {"url": "https://..."}
// Extractions are cached for PageCacheTTL.
func fetchURLHandler(c *gin.Context) {
	var request struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if content, ok := pageCache.Get(request.URL); ok {
		c.JSON(http.StatusOK, gin.H{
			"content": content,
			"cached":  true,
		})
		return
	}

	ctx := context.Background()
	content, err := FetchURLContent(ctx, request.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("Failed to fetch URL content: %v", err),
		})
		return
	}

	pageCache.Set(request.URL, content)

	c.JSON(http.StatusOK, gin.H{
		"content": content,
		"cached":  false,
	})
}
