package council

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// maxLabels bounds the council size to single-letter anonymous labels.
const maxLabels = 26

var (
	rankingMarkerRe = regexp.MustCompile(`(?i)FINAL RANKING:`)
	rankedLabelRe   = regexp.MustCompile(`(?i)Response\s+([A-Z])\b`)
)

// reviewLabels returns, for one reviewer, the global response indices in
// label order: every response except the reviewer's own, labeled A, B, ...
// contiguously so the listing does not reveal which seat is missing.
func reviewLabels(n, reviewer int) []int {
	labels := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != reviewer {
			labels = append(labels, i)
		}
	}
	return labels
}

func labelLetter(pos int) string {
	return string(rune('A' + pos))
}

func buildReviewPrompt(query string, responses []stageOneResponse, reviewer int) string {
	var b strings.Builder
	for pos, idx := range reviewLabels(len(responses), reviewer) {
		if pos > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Response %s:\n%s", labelLetter(pos), responses[idx].completion.Text)
	}

	prompt := strings.ReplaceAll(reviewPromptTemplate, "{{QUERY}}", query)
	return strings.ReplaceAll(prompt, "{{RESPONSES}}", b.String())
}

// parseRanking extracts the ordered response indices from a review. It reads
// the section after the last ranking marker (the whole text when the marker
// is absent), keeps only labels valid for this reviewer, drops duplicates,
// and maps labels back to global response indices.
func parseRanking(text string, n, reviewer int) []int {
	labels := reviewLabels(n, reviewer)

	section := text
	if locs := rankingMarkerRe.FindAllStringIndex(text, -1); len(locs) > 0 {
		section = text[locs[len(locs)-1][1]:]
	}

	var ranking []int
	seen := make(map[int]bool)
	for _, m := range rankedLabelRe.FindAllStringSubmatch(section, -1) {
		pos := int(strings.ToUpper(m[1])[0] - 'A')
		if pos < 0 || pos >= len(labels) {
			continue
		}
		idx := labels[pos]
		if seen[idx] {
			continue
		}
		seen[idx] = true
		ranking = append(ranking, idx)
	}
	return ranking
}

// aggregateRankings computes each response's mean peer position and returns
// the responses best first. A response no review mentioned sits at +Inf.
// Ties break toward the lower stage-1 latency, then seat order.
func aggregateRankings(responses []stageOneResponse, rankings [][]int) []RankedResponse {
	posSum := make([]float64, len(responses))
	posCount := make([]int, len(responses))
	for _, ranking := range rankings {
		for pos, idx := range ranking {
			posSum[idx] += float64(pos + 1)
			posCount[idx]++
		}
	}

	type indexed struct {
		RankedResponse
		seat int
	}
	ranked := make([]indexed, len(responses))
	for i, r := range responses {
		mean := math.Inf(1)
		if posCount[i] > 0 {
			mean = posSum[i] / float64(posCount[i])
		}
		ranked[i] = indexed{
			RankedResponse: RankedResponse{
				Participant:  r.participant.displayName(),
				Text:         r.completion.Text,
				TokenCount:   r.completion.TokenCount,
				LatencyMS:    r.completion.LatencyMS,
				MeanPosition: mean,
			},
			seat: i,
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].MeanPosition != ranked[b].MeanPosition {
			return ranked[a].MeanPosition < ranked[b].MeanPosition
		}
		if ranked[a].LatencyMS != ranked[b].LatencyMS {
			return ranked[a].LatencyMS < ranked[b].LatencyMS
		}
		return ranked[a].seat < ranked[b].seat
	})

	out := make([]RankedResponse, len(ranked))
	for i, r := range ranked {
		out[i] = r.RankedResponse
	}
	return out
}

func buildSynthesisPrompt(query string, ranked []RankedResponse) string {
	var responses strings.Builder
	var standings strings.Builder
	for i, r := range ranked {
		if i > 0 {
			responses.WriteString("\n\n")
			standings.WriteString("\n")
		}
		fmt.Fprintf(&responses, "%s:\n%s", r.Participant, r.Text)
		if math.IsInf(r.MeanPosition, 1) {
			fmt.Fprintf(&standings, "%d. %s (unranked by peers)", i+1, r.Participant)
		} else {
			fmt.Fprintf(&standings, "%d. %s (mean peer position %.2f)", i+1, r.Participant, r.MeanPosition)
		}
	}

	prompt := strings.ReplaceAll(synthesisPromptTemplate, "{{QUERY}}", query)
	prompt = strings.ReplaceAll(prompt, "{{RESPONSES}}", responses.String())
	return strings.ReplaceAll(prompt, "{{RANKINGS}}", standings.String())
}
