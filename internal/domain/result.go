package domain

import (
	"fmt"
	"strings"
)

// User facing message texts
const (
	MessageProcessing = "Processing..."
	MessageNoResults  = "No results found."
	MessageFailure    = "Sorry, the lookup failed. Please try again later."
)

// Entry is one domain returned by a lookup
type Entry struct {
	Domain string `json:"domain"`
	Type   string `json:"type,omitempty"`
}

// LookupResult holds the ordered entries for a keyword
type LookupResult struct {
	Keyword string  `json:"keyword"`
	Entries []Entry `json:"entries"`
}

// Top returns at most n entries in their original order
func (r *LookupResult) Top(n int) []Entry {
	if r == nil || n <= 0 {
		return nil
	}
	if len(r.Entries) <= n {
		return r.Entries
	}
	return r.Entries[:n]
}

// UsageMessage is the corrective reply for a command without a keyword
func UsageMessage(action Action) string {
	return fmt.Sprintf("Please enter a keyword after the command. Usage: %s <keyword>", action.Command())
}

// FormatReply renders a lookup result as a 1-indexed list of at most MaxResults entries.
// An empty result renders as the no-results message.
func FormatReply(job *Job, result *LookupResult) string {
	entries := result.Top(MaxResults)
	if len(entries) == 0 {
		return MessageNoResults
	}

	var sb strings.Builder
	switch job.Action {
	case ActionIntent:
		fmt.Fprintf(&sb, "Result types for keyword %q:\n", job.Keyword)
	default:
		fmt.Fprintf(&sb, "Top %d domains for keyword %q:\n", MaxResults, job.Keyword)
	}

	for i, e := range entries {
		switch {
		case job.Action != ActionIntent || e.Type == "":
			fmt.Fprintf(&sb, "%d. %s\n", i+1, e.Domain)
		case e.Domain == "":
			// SERP feature without a site, e.g. people_also_ask
			fmt.Fprintf(&sb, "%d. [%s]\n", i+1, e.Type)
		default:
			fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, e.Domain, e.Type)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
