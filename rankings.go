package main

import (
	"regexp"
	"sort"
	"strings"
)

// labelPattern matches an anonymized response label. Multi-letter labels
// cover councils larger than 26 members.
var (
	labelPattern         = regexp.MustCompile(`Response [A-Z]+`)
	numberedLabelPattern = regexp.MustCompile(`\d+\.\s*Response [A-Z]+`)
)

// rankingMarker is the contract line each ranking prompt asks for.
const rankingMarker = "FINAL RANKING:"

// indexToLabel converts a zero-based index to a spreadsheet-style label:
// 0..25 -> A..Z, 26 -> AA, 27 -> AB, and so on.
func indexToLabel(index int) string {
	label := ""
	index++
	for index > 0 {
		index--
		label = string(rune('A'+index%26)) + label
		index /= 26
	}
	return label
}

// labelKey formats a label the way it appears in prompts and in the
// label-to-model map (e.g. "Response A").
func labelKey(label string) string {
	return "Response " + label
}

// ParseRankingFromText extracts the ranking from a model's response text.
// Looks for a "FINAL RANKING:" section and reads the numbered list that
// follows, top to bottom. If the marker is absent, falls back to collecting
// "Response X" substrings in order of first appearance. Malformed input
// yields an empty slice, never an error: the raw text is kept alongside the
// parse so a human can audit it.
func ParseRankingFromText(rankingText string) []string {
	if strings.Contains(rankingText, rankingMarker) {
		parts := strings.SplitN(rankingText, rankingMarker, 2)
		rankingSection := parts[1]

		// Preferred format: "1. Response A" lines
		numberedMatches := numberedLabelPattern.FindAllString(rankingSection, -1)
		if len(numberedMatches) > 0 {
			var results []string
			for _, match := range numberedMatches {
				if resp := labelPattern.FindString(match); resp != "" {
					results = append(results, resp)
				}
			}
			return dedupeLabels(results)
		}

		// Marker present but no numbered list: take labels in section order
		return dedupeLabels(labelPattern.FindAllString(rankingSection, -1))
	}

	// No marker at all: best-guess ordering from the whole text
	return dedupeLabels(labelPattern.FindAllString(rankingText, -1))
}

// dedupeLabels keeps the first occurrence of each label, preserving order.
func dedupeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	result := []string{}
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			result = append(result, label)
		}
	}
	return result
}

// CalculateAggregateRankings computes the mean-position aggregate. Each
// ranking that mentions a label contributes that label's 1-indexed position;
// labels a ranker omitted contribute nothing for that ranking. Lower average
// is better. Ties break on label order so the output is reproducible.
func CalculateAggregateRankings(stage2Results []Stage2Ranking, labelToModel map[string]string) []AggregateRanking {
	type labelStats struct {
		label string
		sum   int
		count int
	}

	stats := make(map[string]*labelStats)

	for _, ranking := range stage2Results {
		for position, label := range ranking.ParsedRanking {
			if _, known := labelToModel[label]; !known {
				continue
			}
			s, ok := stats[label]
			if !ok {
				s = &labelStats{label: label}
				stats[label] = s
			}
			s.sum += position + 1 // positions are 1-indexed
			s.count++
		}
	}

	ordered := make([]*labelStats, 0, len(stats))
	for _, s := range stats {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		si, sj := ordered[i], ordered[j]
		avgI := float64(si.sum) / float64(si.count)
		avgJ := float64(sj.sum) / float64(sj.count)
		if avgI != avgJ {
			return avgI < avgJ
		}
		return si.label < sj.label
	})

	aggregate := make([]AggregateRanking, 0, len(ordered))
	for _, s := range ordered {
		aggregate = append(aggregate, AggregateRanking{
			Model:         labelToModel[s.label],
			AverageRank:   float64(s.sum) / float64(s.count),
			RankingsCount: s.count,
		})
	}

	return aggregate
}

// CalculateTournamentRankings computes the pairwise-tournament aggregate.
// For every pair of labels appearing together in one ranking, the label at
// the earlier position takes one win and the other one loss; wins accumulate
// across rankings. Ordering is by score (wins minus losses) descending, then
// raw wins descending, then label order. One outlier ranking moves each pair
// by at most a single win/loss, which is what makes this scheme sturdier
// against a rogue ranker than position averaging.
func CalculateTournamentRankings(stage2Results []Stage2Ranking, labelToModel map[string]string) []TournamentRanking {
	type labelStats struct {
		label  string
		wins   int
		losses int
		count  int
	}

	stats := make(map[string]*labelStats, len(labelToModel))
	for label := range labelToModel {
		stats[label] = &labelStats{label: label}
	}

	for _, ranking := range stage2Results {
		// Keep only known labels, preserving the ranker's order
		var ordered []string
		for _, label := range ranking.ParsedRanking {
			if _, known := labelToModel[label]; known {
				ordered = append(ordered, label)
			}
		}

		for _, label := range ordered {
			stats[label].count++
		}

		for i := 0; i < len(ordered); i++ {
			for j := i + 1; j < len(ordered); j++ {
				stats[ordered[i]].wins++
				stats[ordered[j]].losses++
			}
		}
	}

	entries := make([]*labelStats, 0, len(stats))
	for _, s := range stats {
		entries = append(entries, s)
	}
	sort.Slice(entries, func(i, j int) bool {
		si, sj := entries[i], entries[j]
		scoreI := si.wins - si.losses
		scoreJ := sj.wins - sj.losses
		if scoreI != scoreJ {
			return scoreI > scoreJ
		}
		if si.wins != sj.wins {
			return si.wins > sj.wins
		}
		return si.label < sj.label
	})

	tournament := make([]TournamentRanking, 0, len(entries))
	for _, s := range entries {
		tournament = append(tournament, TournamentRanking{
			Model:         labelToModel[s.label],
			Wins:          s.wins,
			Losses:        s.losses,
			Score:         s.wins - s.losses,
			RankingsCount: s.count,
		})
	}

	return tournament
}
