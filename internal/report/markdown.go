package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders a run summary as a Markdown string. Timestamps
// are shown in UTC and, when loc differs, in the configured local zone.
func RenderMarkdown(s *Summary, loc *time.Location) string {
	var sb strings.Builder

	sb.WriteString("# Smart-Money Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Started: %s\n", renderTime(s.StartedAt, loc)))
	sb.WriteString(fmt.Sprintf("Finished: %s\n\n", renderTime(s.FinishedAt, loc)))

	sb.WriteString("## Pipeline Counts\n\n")
	sb.WriteString("| Stage | Count |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Fetched | %d |\n", s.Fetched))
	sb.WriteString(fmt.Sprintf("| Normalized | %d |\n", s.Normalized))
	sb.WriteString(fmt.Sprintf("| Skipped (malformed) | %d |\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("| Enriched | %d |\n", s.Enriched))
	sb.WriteString(fmt.Sprintf("| Admitted | %d |\n", s.Admitted))
	sb.WriteString(fmt.Sprintf("| Rejected | %d |\n", s.Rejected))
	sb.WriteString(fmt.Sprintf("| Signals | %d |\n", s.Signals))
	sb.WriteString(fmt.Sprintf("| Candidates | %d |\n", s.Candidates))
	sb.WriteString("\n")

	if len(s.Rejections) > 0 {
		sb.WriteString("## Rejections\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, reason := range sortedKeys(s.Rejections) {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", reason, s.Rejections[reason]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("## Signals: %d buy / %d sell\n\n", s.BuySignals, s.SellSignals))

	renderCandidates(&sb, "Top Buy Candidates", s.TopBuys)
	renderCandidates(&sb, "Top Sell Candidates", s.TopSells)

	if len(s.RecoveredErrors) > 0 {
		sb.WriteString("## Recovered Errors\n\n")
		for _, e := range s.RecoveredErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderCandidates(sb *strings.Builder, title string, candidates []Candidate) {
	sb.WriteString("## " + title + "\n\n")
	if len(candidates) == 0 {
		sb.WriteString("No candidates this run.\n\n")
		return
	}
	sb.WriteString("| Token | Chain | Score | Dominant Wallet | Reason |\n")
	sb.WriteString("|-------|-------|-------|-----------------|--------|\n")
	for _, c := range candidates {
		symbol := c.TokenSymbol
		if symbol == "" {
			symbol = c.TokenAddress
		}
		wallet := c.DominantWallet
		if wallet == "" {
			wallet = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %s | %s |\n",
			symbol, c.Chain, c.Score, wallet, c.Reason))
	}
	sb.WriteString("\n")
}

func renderTime(ms int64, loc *time.Location) string {
	t := time.UnixMilli(ms).UTC()
	out := t.Format(time.RFC3339)
	if loc != nil && loc != time.UTC {
		out += fmt.Sprintf(" (%s local)", t.In(loc).Format(time.RFC3339))
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
