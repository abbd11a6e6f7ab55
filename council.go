package main

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Stage1CollectResponses collects individual responses from all council
// models. Every member is queried concurrently with the full conversation
// context; each call independently succeeds or fails. Successes come back in
// call-issue order, which later fixes Stage 2's label assignment.
func Stage1CollectResponses(ctx context.Context, cfg CouncilConfig, messages []OpenRouterMessage) ([]Stage1Response, []ModelQueryError) {
	models := cfg.EffectiveCouncilModels()
	log.Printf("[Stage 1] Querying %d council models: %s", len(models), strings.Join(models, ", "))

	results := QueryModelsParallel(ctx, models, messages)

	var stage1Results []Stage1Response
	var stage1Errors []ModelQueryError
	for _, result := range results {
		if result.Err != nil {
			stage1Errors = append(stage1Errors, *result.Err)
			continue
		}
		stage1Results = append(stage1Results, Stage1Response{
			Model:    result.Model,
			Response: result.Response.Content,
		})
	}

	log.Printf("[Stage 1] Results: %d successful, %d failed", len(stage1Results), len(stage1Errors))
	return stage1Results, stage1Errors
}

// Stage2CollectRankings has each council model rank the anonymized Stage-1
// responses. Labels are assigned in Stage-1 collection order; the returned
// map is the single source of truth for de-anonymization. Every member ranks
// all responses, its own included, without knowing which is which.
func Stage2CollectRankings(ctx context.Context, cfg CouncilConfig, userQuery string, stage1Results []Stage1Response) ([]Stage2Ranking, map[string]string, []ModelQueryError) {
	labelToModel := make(map[string]string, len(stage1Results))
	var responsesText strings.Builder

	for i, result := range stage1Results {
		key := labelKey(indexToLabel(i))
		labelToModel[key] = result.Model
		responsesText.WriteString(fmt.Sprintf("%s:\n%s\n\n", key, result.Response))
	}

	// Ranking an empty response set is vacuous; skip the round trips
	if len(stage1Results) == 0 {
		return nil, labelToModel, nil
	}

	rankingPrompt := fmt.Sprintf(`You are evaluating different responses to the following question:

Question: %s

Here are the responses from different models (anonymized):

%s

Your task:
1. First, evaluate each response individually. For each response, explain what it does well and what it does poorly.
2. Then, at the very end of your response, provide a final ranking.

IMPORTANT: Your final ranking MUST be formatted EXACTLY as follows:
- Start with the line "FINAL RANKING:" (all caps, with colon)
- Then list the responses from best to worst as a numbered list
- Each line should be: number, period, space, then ONLY the response label (e.g., "1. Response A")
- Do not add any other text or explanations in the ranking section

Example of the correct format for your ENTIRE response:

Response A provides good detail on X but misses Y...
Response B is accurate but lacks depth on Z...
Response C offers the most comprehensive answer...

FINAL RANKING:
1. Response C
2. Response A
3. Response B

Now provide your evaluation and ranking:`, userQuery, responsesText.String())

	messages := []OpenRouterMessage{
		{Role: "user", Content: rankingPrompt},
	}

	models := cfg.EffectiveCouncilModels()
	log.Printf("[Stage 2] Querying %d council models for rankings", len(models))
	results := QueryModelsParallel(ctx, models, messages)

	var stage2Results []Stage2Ranking
	var stage2Errors []ModelQueryError
	for _, result := range results {
		if result.Err != nil {
			stage2Errors = append(stage2Errors, *result.Err)
			continue
		}
		fullText := result.Response.Content
		stage2Results = append(stage2Results, Stage2Ranking{
			Model:         result.Model,
			Ranking:       fullText,
			ParsedRanking: ParseRankingFromText(fullText),
		})
	}

	log.Printf("[Stage 2] Results: %d successful, %d failed", len(stage2Results), len(stage2Errors))
	return stage2Results, labelToModel, stage2Errors
}

// Stage3SynthesizeFinal has the chairman synthesize the final answer from
// the individual responses, the raw peer rankings, and both aggregate
// orderings. Model identities are revealed here: anonymity only matters
// while members are ranking each other. Exactly one call; on failure the
// turn degrades to "no final answer" while stage 1/2 results stand.
func Stage3SynthesizeFinal(ctx context.Context, cfg CouncilConfig, userQuery string, stage1Results []Stage1Response, stage2Results []Stage2Ranking, aggregate []AggregateRanking, tournament []TournamentRanking) (*Stage3Response, []ModelQueryError) {
	var stage1Text strings.Builder
	for _, result := range stage1Results {
		stage1Text.WriteString(fmt.Sprintf("Model: %s\nResponse: %s\n\n", result.Model, result.Response))
	}

	var stage2Text strings.Builder
	for _, result := range stage2Results {
		stage2Text.WriteString(fmt.Sprintf("Model: %s\nRanking: %s\n\n", result.Model, result.Ranking))
	}

	chairmanPrompt := fmt.Sprintf(`You are the Chairman of an LLM Council. Multiple AI models have provided responses to a user's question, and then ranked each other's responses.

Original Question: %s

STAGE 1 - Individual Responses:
%s

STAGE 2 - Peer Rankings:
%s

AGGREGATE RANKINGS:
%s

Your task as Chairman is to synthesize all of this information into a single, comprehensive, accurate answer to the user's original question. Consider:
- The individual responses and their insights
- The peer rankings and what they reveal about response quality
- Any patterns of agreement or disagreement

Provide a clear, well-reasoned final answer that represents the council's collective wisdom:`, userQuery, stage1Text.String(), stage2Text.String(), formatAggregates(aggregate, tournament))

	messages := []OpenRouterMessage{
		{Role: "user", Content: chairmanPrompt},
	}

	chairman := cfg.EffectiveChairmanModel()
	log.Printf("[Stage 3] Chairman model: %s", chairman)

	response, qerr := QueryModel(ctx, chairman, messages, ModelQueryTimeout)
	if qerr != nil {
		log.Printf("[Stage 3] Chairman failed: %s - %s", qerr.ErrorType, qerr.Message)
		return nil, []ModelQueryError{*qerr}
	}

	return &Stage3Response{
		Model:    cfg.ChairmanModel,
		Response: response.Content,
	}, nil
}

// formatAggregates renders both aggregate orderings for the chairman prompt.
func formatAggregates(aggregate []AggregateRanking, tournament []TournamentRanking) string {
	var b strings.Builder
	b.WriteString("By average peer rank (lower is better):\n")
	for i, entry := range aggregate {
		b.WriteString(fmt.Sprintf("%d. %s (average rank %.2f across %d rankings)\n", i+1, entry.Model, entry.AverageRank, entry.RankingsCount))
	}
	b.WriteString("\nBy pairwise tournament (wins-losses):\n")
	for i, entry := range tournament {
		b.WriteString(fmt.Sprintf("%d. %s (%d wins, %d losses)\n", i+1, entry.Model, entry.Wins, entry.Losses))
	}
	return b.String()
}

// RunChairmanDirect sends the conversation context straight to the chairman,
// skipping stages 1 and 2. Used for lightweight follow-ups where full
// deliberation is unnecessary; the reply carries no ranking metadata.
func RunChairmanDirect(ctx context.Context, cfg CouncilConfig, messages []OpenRouterMessage) (*Stage3Response, []ModelQueryError) {
	chairman := cfg.EffectiveChairmanModel()
	log.Printf("[Chairman-direct] Model: %s", chairman)

	response, qerr := QueryModel(ctx, chairman, messages, ModelQueryTimeout)
	if qerr != nil {
		log.Printf("[Chairman-direct] Failed: %s - %s", qerr.ErrorType, qerr.Message)
		return nil, []ModelQueryError{*qerr}
	}

	return &Stage3Response{
		Model:    cfg.ChairmanModel,
		Response: response.Content,
	}, nil
}

// GenerateConversationTitle generates a short title for a conversation.
// Uses a fast model to create a 3-5 word summary of the user's query.
func GenerateConversationTitle(ctx context.Context, userQuery string) (string, error) {
	titlePrompt := fmt.Sprintf(`Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: %s

Title:`, userQuery)

	messages := []OpenRouterMessage{
		{Role: "user", Content: titlePrompt},
	}

	response, qerr := QueryModel(ctx, TitleModel, messages, TitleGenTimeout)
	if qerr != nil {
		return "", fmt.Errorf("title generation failed: %w", qerr)
	}

	title := strings.TrimSpace(response.Content)
	title = strings.Trim(title, "\"'")

	if len(title) > 50 {
		title = title[:47] + "..."
	}

	return title, nil
}

// RunFullCouncil runs the complete 3-stage council process on the prepared
// context messages. Stages run strictly in sequence; per-member failures
// accumulate into the result's per-stage error lists instead of aborting the
// pipeline, so the caller always gets whatever stages completed.
func RunFullCouncil(ctx context.Context, cfg CouncilConfig, messages []OpenRouterMessage) *CouncilResult {
	result := &CouncilResult{}

	var currentQuery string
	if len(messages) > 0 {
		currentQuery = messages[len(messages)-1].Content
	}

	result.Stage1, result.Stage1Errors = Stage1CollectResponses(ctx, cfg, messages)

	// The ranking prompt only needs the question actually asked
	result.Stage2, result.LabelToModel, result.Stage2Errors = Stage2CollectRankings(ctx, cfg, currentQuery, result.Stage1)

	result.AggregateRankings = CalculateAggregateRankings(result.Stage2, result.LabelToModel)
	result.TournamentRankings = CalculateTournamentRankings(result.Stage2, result.LabelToModel)

	result.Stage3, result.Stage3Errors = Stage3SynthesizeFinal(ctx, cfg, currentQuery, result.Stage1, result.Stage2, result.AggregateRankings, result.TournamentRankings)

	totalErrors := len(result.Stage1Errors) + len(result.Stage2Errors) + len(result.Stage3Errors)
	log.Printf("[Council] Complete. Total errors: %d", totalErrors)

	return result
}
