// Package contextbuild renders ranked search results into a markdown
// block sized to fit a token budget.
package contextbuild

import (
	"fmt"
	"strings"

	"github.com/membootio/memboot/internal/model"
	"github.com/membootio/memboot/internal/query"
)

// DefaultMaxTokens is the budget used when the caller passes none.
const DefaultMaxTokens = 2000

// formatOverhead approximates the header, fences and score line that wrap
// each entry, in tokens.
const formatOverhead = 20

// EstimateTokens approximates the rendered cost of one result using the
// four-characters-per-token heuristic plus formatting overhead.
func EstimateTokens(r query.Result) int {
	return len(r.Content)/4 + formatOverhead
}

// Build assembles results in rank order until the next one would exceed
// maxTokens, then stops. Entries are never truncated to fit: a result is
// included whole or not at all, so assembly stays order-preserving and
// deterministic.
func Build(results []query.Result, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if len(results) == 0 {
		return "## No relevant context found.\n"
	}

	var included []query.Result
	used := 0
	for _, r := range results {
		cost := EstimateTokens(r)
		if used+cost > maxTokens {
			break
		}
		included = append(included, r)
		used += cost
	}
	if len(included) == 0 {
		return "## No relevant context found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Relevant Context (%d results)\n\n", len(included))
	for _, r := range included {
		writeEntry(&b, r)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, r query.Result) {
	if r.Ref.Type == model.EntityMemory {
		fmt.Fprintf(b, "### Memory (%s, %s)\n\n", r.MemoryKind, r.CreatedAt.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(b, "### %s:%d-%d (%s)\n\n", r.Source, r.StartOffset, r.EndOffset, r.Kind)
	}
	fmt.Fprintf(b, "```\n%s\n```\n\n", strings.TrimRight(r.Content, "\n"))
	fmt.Fprintf(b, "*Score: %.3f*\n\n", r.Score)
}
